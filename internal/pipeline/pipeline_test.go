package pipeline_test

import (
	"context"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rollcall/internal/domain/debounce"
	"github.com/okian/rollcall/internal/domain/gate"
	"github.com/okian/rollcall/internal/domain/match"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/quality"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/internal/pipeline"
	"github.com/okian/rollcall/internal/vision"
	"github.com/okian/rollcall/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "text"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// scriptedFrame is one frame of a scripted capture session.
type scriptedFrame struct {
	at     time.Duration
	motion bool
	obs    []model.Observation
}

// scriptedSource plays frames back in order and reports the source closed
// once the script runs out, which ends the pipeline loop.
type scriptedSource struct {
	base     time.Time
	frames   []scriptedFrame
	idx      int
	observed int
}

func (s *scriptedSource) Capture() (vision.Frame, bool, error) {
	if s.idx >= len(s.frames) {
		return nil, false, vision.ErrClosed
	}
	f := s.frames[s.idx]
	s.idx++
	return &scriptedFrameImpl{src: s, obs: f.obs}, f.motion, nil
}

func (s *scriptedSource) Close() error { return nil }

// now returns the scripted timestamp of the frame served last.
func (s *scriptedSource) now() time.Time {
	return s.base.Add(s.frames[s.idx-1].at)
}

type scriptedFrameImpl struct {
	src *scriptedSource
	obs []model.Observation
}

func (f *scriptedFrameImpl) Observations() ([]model.Observation, error) {
	f.src.observed++
	return f.obs, nil
}

func (f *scriptedFrameImpl) Measure(types.Location) quality.Measurements {
	return quality.Measurements{}
}

func (f *scriptedFrameImpl) Close() {}

type fakeQueue struct {
	events []model.RecognitionEvent
	full   bool
}

func (q *fakeQueue) Enqueue(_ context.Context, t model.RecognitionEvent) bool {
	if q.full {
		return false
	}
	q.events = append(q.events, t)
	return true
}

type fixedSamples struct{ samples []match.Sample }

func (s *fixedSamples) Samples() []match.Sample { return s.samples }

type fakeSink struct {
	active  bool
	handled int
}

func (s *fakeSink) Active() bool { return s.active }
func (s *fakeSink) HandleFrame(context.Context, vision.Frame, time.Time) {
	s.handled++
}

func encoding(first float32) types.Encoding {
	enc := make(types.Encoding, types.EncodingSize)
	enc[0] = first
	return enc
}

func face(first float32) model.Observation {
	return model.Observation{
		Location: types.Location{Top: 10, Right: 130, Bottom: 130, Left: 10},
		Encoding: encoding(first),
	}
}

func runPipeline(src *scriptedSource, queue *fakeQueue, deb pipeline.Debouncer, samples []match.Sample, opts ...pipeline.Option) error {
	opts = append([]pipeline.Option{
		pipeline.WithFrameInterval(time.Millisecond),
		pipeline.WithClock(src.now),
	}, opts...)
	p := pipeline.New(src, gate.New(), match.New(), deb, queue, &fixedSamples{samples: samples}, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.Run(ctx)
}

func TestMotionGating(t *testing.T) {
	Convey("Given a capture session without qualifying motion", t, func() {
		src := &scriptedSource{
			base: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
			frames: []scriptedFrame{
				{at: 0, obs: []model.Observation{face(0)}},
				{at: 100 * time.Millisecond, obs: []model.Observation{face(0)}},
				{at: 200 * time.Millisecond, obs: []model.Observation{face(0)}},
			},
		}
		queue := &fakeQueue{}
		deb := debounce.NewInMemoryDebouncer()

		So(runPipeline(src, queue, deb, []match.Sample{{Name: "alice", Encoding: encoding(0)}}), ShouldBeNil)

		Convey("Recognition never runs and nothing is enqueued", func() {
			So(src.observed, ShouldEqual, 0)
			So(queue.events, ShouldBeEmpty)
		})
	})

	Convey("Given motion followed by a recognizable face", t, func() {
		src := &scriptedSource{
			base: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
			frames: []scriptedFrame{
				{at: 0, motion: true},
				{at: 100 * time.Millisecond, obs: []model.Observation{face(0)}},
			},
		}
		queue := &fakeQueue{}
		deb := debounce.NewInMemoryDebouncer()

		So(runPipeline(src, queue, deb, []match.Sample{{Name: "alice", Encoding: encoding(0)}}), ShouldBeNil)

		Convey("The recognition is enqueued with the camera source", func() {
			So(queue.events, ShouldHaveLength, 1)
			So(queue.events[0].Name, ShouldEqual, "alice")
			So(queue.events[0].Source, ShouldEqual, model.SourceCamera)
			So(queue.events[0].Confidence, ShouldAlmostEqual, 1.0, 0.001)
			So(queue.events[0].EventID, ShouldNotBeEmpty)
			So(queue.events[0].Location, ShouldNotBeNil)
		})
	})

	Convey("Given recognition frames past the gate cooldown", t, func() {
		src := &scriptedSource{
			base: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
			frames: []scriptedFrame{
				// The gate opens on the motion frame, so it is examined too.
				{at: 0, motion: true},
				// 4s later, past the 3s cooldown: the gate is closed.
				{at: 4 * time.Second, obs: []model.Observation{face(0)}},
			},
		}
		queue := &fakeQueue{}
		deb := debounce.NewInMemoryDebouncer()

		So(runPipeline(src, queue, deb, []match.Sample{{Name: "alice", Encoding: encoding(0)}}), ShouldBeNil)

		Convey("Only the motion frame is examined and the late face is skipped", func() {
			So(src.observed, ShouldEqual, 1)
			So(queue.events, ShouldBeEmpty)
		})
	})
}

func TestRecognitionDebounce(t *testing.T) {
	Convey("Given the same person recognized twice inside the window", t, func() {
		src := &scriptedSource{
			base: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
			frames: []scriptedFrame{
				{at: 0, motion: true, obs: []model.Observation{face(0)}},
				{at: 10 * time.Second, motion: true, obs: []model.Observation{face(0)}},
			},
		}
		queue := &fakeQueue{}
		deb := debounce.NewInMemoryDebouncer()

		So(runPipeline(src, queue, deb, []match.Sample{{Name: "alice", Encoding: encoding(0)}}), ShouldBeNil)

		Convey("Only the first recognition is enqueued", func() {
			So(queue.events, ShouldHaveLength, 1)
		})
	})

	Convey("Given a match below the confidence threshold", t, func() {
		// Distance 0.5 within tolerance, confidence 0.5 below the 0.6
		// threshold.
		src := &scriptedSource{
			base: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
			frames: []scriptedFrame{
				{at: 0, motion: true, obs: []model.Observation{face(0.5)}},
			},
		}
		queue := &fakeQueue{}
		deb := debounce.NewInMemoryDebouncer()

		So(runPipeline(src, queue, deb, []match.Sample{{Name: "alice", Encoding: encoding(0)}}), ShouldBeNil)

		Convey("Nothing is enqueued", func() {
			So(queue.events, ShouldBeEmpty)
		})
	})

	Convey("Given a full commit queue", t, func() {
		src := &scriptedSource{
			base: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
			frames: []scriptedFrame{
				{at: 0, motion: true, obs: []model.Observation{face(0)}},
			},
		}
		queue := &fakeQueue{full: true}
		deb := debounce.NewInMemoryDebouncer()

		So(runPipeline(src, queue, deb, []match.Sample{{Name: "alice", Encoding: encoding(0)}}), ShouldBeNil)

		Convey("The debounce mark is released so the next sighting retries", func() {
			So(queue.events, ShouldBeEmpty)
			So(deb.Size(), ShouldEqual, 0)
			So(deb.AllowAndMark(context.Background(), "alice", time.Now()), ShouldBeTrue)
		})
	})
}

func TestEnrollmentTakesFrames(t *testing.T) {
	Convey("Given an active enrollment session", t, func() {
		src := &scriptedSource{
			base: time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
			frames: []scriptedFrame{
				{at: 0, motion: true, obs: []model.Observation{face(0)}},
				{at: 100 * time.Millisecond, motion: true, obs: []model.Observation{face(0)}},
			},
		}
		queue := &fakeQueue{}
		deb := debounce.NewInMemoryDebouncer()
		sink := &fakeSink{active: true}

		So(runPipeline(src, queue, deb, []match.Sample{{Name: "alice", Encoding: encoding(0)}},
			pipeline.WithFrameSink(sink)), ShouldBeNil)

		Convey("Frames go to the session, recognition is skipped", func() {
			So(sink.handled, ShouldEqual, 2)
			So(src.observed, ShouldEqual, 0)
			So(queue.events, ShouldBeEmpty)
		})
	})
}
