package service_test

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rollcall/internal/adapters/http/api"
	"github.com/okian/rollcall/internal/adapters/store/memory"
	"github.com/okian/rollcall/internal/app"
	"github.com/okian/rollcall/internal/config"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/quality"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/internal/vision"
	"github.com/okian/rollcall/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "text"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Storage.Driver = config.DriverMemory
	cfg.Camera.Enabled = false
	cfg.Camera.FrameInterval = time.Millisecond
	cfg.Recognition.DebounceWindow = 10 * time.Second
	cfg.Recognition.QueueSize = 8
	cfg.Recognition.WorkerCount = 1
	cfg.Analytics.Engine = config.EngineMemory
	return cfg
}

// feedSource delivers frames pushed by the test and reports closed once the
// feed channel closes, which ends the pipeline loop.
type feedSource struct {
	frames chan feedFrame
}

type feedFrame struct {
	motion bool
	obs    []model.Observation
}

func newFeedSource() *feedSource {
	return &feedSource{frames: make(chan feedFrame, 8)}
}

func (s *feedSource) Capture() (vision.Frame, bool, error) {
	f, ok := <-s.frames
	if !ok {
		return nil, false, vision.ErrClosed
	}
	return &feedFrameImpl{obs: f.obs}, f.motion, nil
}

func (s *feedSource) Close() error { return nil }

type feedFrameImpl struct {
	obs []model.Observation
}

func (f *feedFrameImpl) Observations() ([]model.Observation, error) { return f.obs, nil }

func (f *feedFrameImpl) Measure(types.Location) quality.Measurements {
	return quality.Measurements{Width: 120, Height: 120, LaplacianVariance: 500, MeanBrightness: 127}
}

func (f *feedFrameImpl) Close() {}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func todayCount(ctx context.Context, svc *service.Service) int {
	records, err := svc.Store().AttendanceOn(ctx, types.DateOf(time.Now()))
	if err != nil {
		return -1
	}
	return len(records)
}

func TestServiceIngest(t *testing.T) {
	Convey("Given a started service without a camera", t, func() {
		ctx := context.Background()
		svc := service.New(testConfig(), service.WithStore(memory.New()))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		emp := model.Employee{
			EmployeeID:    model.NewEmployeeID(),
			Name:          "Dana Cole",
			WorkStartTime: "23:59",
			IsActive:      true,
		}
		So(svc.Store().CreateEmployee(ctx, emp), ShouldBeNil)

		Convey("An accepted ingest ends as an attendance record", func() {
			res := svc.Ingest(ctx, api.IngestRequest{Name: "Dana Cole", Confidence: 0.92})
			So(res.Status, ShouldEqual, api.IngestAccepted)
			So(res.EventID, ShouldNotBeEmpty)

			So(waitFor(func() bool { return todayCount(ctx, svc) == 1 }), ShouldBeTrue)

			records, err := svc.Store().AttendanceOn(ctx, types.DateOf(time.Now()))
			So(err, ShouldBeNil)
			So(records[0].EmployeeID, ShouldEqual, emp.EmployeeID)
			So(records[0].IsLate, ShouldBeFalse)

			Convey("An immediate repeat is suppressed by the debounce window", func() {
				again := svc.Ingest(ctx, api.IngestRequest{Name: "Dana Cole", Confidence: 0.92})
				So(again.Status, ShouldEqual, api.IngestSuppressed)
			})

			Convey("The event lands in the recognition log", func() {
				So(waitFor(func() bool {
					events, err := svc.Store().RecentEvents(ctx, 10)
					return err == nil && len(events) == 1
				}), ShouldBeTrue)

				events, err := svc.Store().RecentEvents(ctx, 10)
				So(err, ShouldBeNil)
				So(events[0].Source, ShouldEqual, model.SourceAPI)
			})
		})

		Convey("A low-confidence ingest is refused outright", func() {
			res := svc.Ingest(ctx, api.IngestRequest{Name: "Dana Cole", Confidence: 0.3})
			So(res.Status, ShouldEqual, api.IngestLowConfidence)
			So(todayCount(ctx, svc), ShouldEqual, 0)
		})

		Convey("Live subscribers see committed recognitions", func() {
			updates, cancel := svc.Subscribe()
			defer cancel()

			res := svc.Ingest(ctx, api.IngestRequest{Name: "Dana Cole", Confidence: 0.95})
			So(res.Status, ShouldEqual, api.IngestAccepted)

			var got api.LiveUpdate
			select {
			case got = <-updates:
			case <-time.After(5 * time.Second):
			}
			So(got.Type, ShouldEqual, "recognition")
			So(got.Event, ShouldNotBeNil)
			So(got.Event.Name, ShouldEqual, "Dana Cole")
			So(got.Attendance, ShouldBeTrue)
		})
	})
}

func TestServicePipeline(t *testing.T) {
	Convey("Given a started service with an injected capture source", t, func() {
		ctx := context.Background()
		src := newFeedSource()
		svc := service.New(testConfig(),
			service.WithStore(memory.New()),
			service.WithSource(src),
		)
		So(svc.Start(ctx), ShouldBeNil)

		encoding := make(types.Encoding, types.EncodingSize)
		encoding[5] = 0.3

		_, err := svc.Enrollment().AddSample(ctx, "dana", encoding, 0.9)
		So(err, ShouldBeNil)

		emp := model.Employee{
			EmployeeID:    model.NewEmployeeID(),
			Name:          "dana",
			WorkStartTime: "23:59",
			IsActive:      true,
		}
		So(svc.Store().CreateEmployee(ctx, emp), ShouldBeNil)

		Convey("A matching face on a moving frame marks attendance", func() {
			src.frames <- feedFrame{
				motion: true,
				obs: []model.Observation{{
					Location: types.Location{Top: 10, Right: 110, Bottom: 110, Left: 10},
					Encoding: encoding,
				}},
			}

			So(waitFor(func() bool { return todayCount(ctx, svc) == 1 }), ShouldBeTrue)

			events, err := svc.Store().RecentEvents(ctx, 10)
			So(err, ShouldBeNil)
			So(events, ShouldHaveLength, 1)
			So(events[0].Name, ShouldEqual, "dana")
			So(events[0].Source, ShouldEqual, model.SourceCamera)

			Convey("Stop drains cleanly once the feed closes", func() {
				close(src.frames)
				svc.Stop(ctx)
				So(svc.Snapshot(ctx).Running, ShouldBeFalse)
			})
		})

		Convey("A still frame is never examined", func() {
			src.frames <- feedFrame{motion: false, obs: []model.Observation{{
				Location: types.Location{Top: 10, Right: 110, Bottom: 110, Left: 10},
				Encoding: encoding,
			}}}

			So(waitFor(func() bool {
				return svc.Snapshot(ctx).Counters["frames_processed"] >= 1
			}), ShouldBeTrue)
			So(todayCount(ctx, svc), ShouldEqual, 0)

			close(src.frames)
			svc.Stop(ctx)
		})
	})
}

// slowStore delays event writes so commits are still in flight when the
// service stops.
type slowStore struct {
	*memory.Store
	delay  time.Duration
	events atomic.Int64
}

func (s *slowStore) RecordEvent(ctx context.Context, e model.RecognitionEvent) error {
	time.Sleep(s.delay)
	if err := s.Store.RecordEvent(ctx, e); err != nil {
		return err
	}
	s.events.Add(1)
	return nil
}

func TestServiceStopDrainsQueue(t *testing.T) {
	Convey("Given a service with slow storage and a backlog of accepted recognitions", t, func() {
		ctx := context.Background()
		st := &slowStore{Store: memory.New(), delay: 30 * time.Millisecond}
		svc := service.New(testConfig(), service.WithStore(st))
		So(svc.Start(ctx), ShouldBeNil)

		names := []string{"ana", "ben", "cai", "dee", "eli"}
		for _, name := range names {
			res := svc.Ingest(ctx, api.IngestRequest{Name: name, Confidence: 0.9})
			So(res.Status, ShouldEqual, api.IngestAccepted)
		}

		Convey("Stop commits every accepted recognition before returning", func() {
			svc.Stop(ctx)
			So(st.events.Load(), ShouldEqual, int64(len(names)))
		})
	})
}

func TestServiceSnapshot(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(testConfig(), service.WithStore(memory.New()))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		Convey("The snapshot reflects the running state", func() {
			snap := svc.Snapshot(ctx)
			So(snap.Running, ShouldBeTrue)
			So(snap.UptimeSeconds, ShouldBeGreaterThanOrEqualTo, 0)
			So(snap.EnrolledPeople, ShouldEqual, 0)
			So(snap.TodayAttendance, ShouldEqual, 0)
		})

		Convey("Starting twice is a no-op", func() {
			So(svc.Start(ctx), ShouldBeNil)
		})
	})
}
