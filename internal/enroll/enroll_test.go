package enroll_test

import (
	"context"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rollcall/internal/adapters/store/memory"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/quality"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/internal/enroll"
	"github.com/okian/rollcall/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "text"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeFrame struct {
	obs  []model.Observation
	err  error
	meas quality.Measurements
}

func (f *fakeFrame) Observations() ([]model.Observation, error) { return f.obs, f.err }
func (f *fakeFrame) Measure(types.Location) quality.Measurements {
	return f.meas
}
func (f *fakeFrame) Close() {}

func encoding(fill float32) types.Encoding {
	enc := make(types.Encoding, types.EncodingSize)
	for i := range enc {
		enc[i] = fill
	}
	return enc
}

func goodFrame() *fakeFrame {
	return &fakeFrame{
		obs: []model.Observation{{
			Location: types.Location{Top: 10, Right: 130, Bottom: 130, Left: 10},
			Encoding: encoding(0.5),
		}},
		meas: quality.Measurements{
			Width:             120,
			Height:            120,
			LaplacianVariance: 500,
			MeanBrightness:    127,
		},
	}
}

func TestSessionLifecycle(t *testing.T) {
	Convey("Given an enrollment manager", t, func() {
		m := enroll.New(memory.New())
		now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

		Convey("Starting with an empty name fails", func() {
			_, err := m.Start("", now)
			So(err, ShouldWrap, enroll.ErrEmptyName)
		})

		Convey("Only one session runs at a time", func() {
			_, err := m.Start("alice", now)
			So(err, ShouldBeNil)
			So(m.Active(), ShouldBeTrue)

			_, err = m.Start("bob", now)
			So(err, ShouldWrap, enroll.ErrSessionActive)
		})

		Convey("Progress without a session fails", func() {
			_, err := m.Progress()
			So(err, ShouldWrap, enroll.ErrNoSession)
		})

		Convey("Cancel ends the session", func() {
			_, err := m.Start("alice", now)
			So(err, ShouldBeNil)
			So(m.Cancel(), ShouldBeNil)
			So(m.Active(), ShouldBeFalse)
			So(m.Cancel(), ShouldWrap, enroll.ErrNoSession)
		})
	})
}

func TestSessionCapture(t *testing.T) {
	Convey("Given a running session with a 2s sample interval", t, func() {
		ctx := context.Background()
		m := enroll.New(memory.New(),
			enroll.WithSampleCount(3),
			enroll.WithSampleInterval(2*time.Second),
		)
		now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
		_, err := m.Start("alice", now)
		So(err, ShouldBeNil)

		Convey("Good frames at the interval complete the session", func() {
			for i := 0; i < 3; i++ {
				m.HandleFrame(ctx, goodFrame(), now.Add(time.Duration(i)*2*time.Second))
			}
			So(m.Active(), ShouldBeFalse)
			So(m.Samples(), ShouldHaveLength, 3)
			So(m.EnrolledCount(), ShouldEqual, 1)
			So(m.HasSamples(), ShouldBeTrue)
		})

		Convey("Frames inside the interval are ignored", func() {
			m.HandleFrame(ctx, goodFrame(), now)
			m.HandleFrame(ctx, goodFrame(), now.Add(500*time.Millisecond))

			p, err := m.Progress()
			So(err, ShouldBeNil)
			So(p.Captured, ShouldEqual, 1)
		})

		Convey("A frame with more than one face is ignored", func() {
			f := goodFrame()
			f.obs = append(f.obs, f.obs[0])
			m.HandleFrame(ctx, f, now)

			p, err := m.Progress()
			So(err, ShouldBeNil)
			So(p.Captured, ShouldEqual, 0)
		})

		Convey("A face below the quality gate is ignored", func() {
			f := goodFrame()
			f.meas.Width = 30
			f.meas.Height = 30
			m.HandleFrame(ctx, f, now)

			p, err := m.Progress()
			So(err, ShouldBeNil)
			So(p.Captured, ShouldEqual, 0)
		})

		Convey("A frame with no detectable face is ignored", func() {
			m.HandleFrame(ctx, &fakeFrame{}, now)

			p, err := m.Progress()
			So(err, ShouldBeNil)
			So(p.Captured, ShouldEqual, 0)
		})
	})
}

func TestLibrary(t *testing.T) {
	Convey("Given a manager over a store", t, func() {
		ctx := context.Background()
		st := memory.New()
		m := enroll.New(st)

		Convey("Load mirrors existing samples", func() {
			So(st.AddSample(ctx, model.FaceSample{
				SampleID: model.NewSampleID(),
				Name:     "alice",
				Encoding: encoding(0.1),
				Source:   model.SampleSourceEnrollment,
			}), ShouldBeNil)

			So(m.Load(ctx), ShouldBeNil)
			So(m.Samples(), ShouldHaveLength, 1)
			So(m.EnrolledCount(), ShouldEqual, 1)
		})

		Convey("AddSample validates the encoding length", func() {
			_, err := m.AddSample(ctx, "alice", make(types.Encoding, 4), 0.9)
			So(err, ShouldWrap, enroll.ErrBadEncoding)

			_, err = m.AddSample(ctx, "", encoding(0.1), 0.9)
			So(err, ShouldWrap, enroll.ErrEmptyName)

			s, err := m.AddSample(ctx, "alice", encoding(0.1), 0.9)
			So(err, ShouldBeNil)
			So(s.SampleID, ShouldNotBeEmpty)
			So(s.Source, ShouldEqual, model.SampleSourceImport)
			So(m.Samples(), ShouldHaveLength, 1)
		})

		Convey("Import accepts valid samples and skips malformed ones", func() {
			added, err := m.Import(ctx, []model.FaceSample{
				{Name: "alice", Encoding: encoding(0.1)},
				{Name: "", Encoding: encoding(0.2)},
				{Name: "bob", Encoding: make(types.Encoding, 7)},
				{Name: "bob", Encoding: encoding(0.3)},
			})
			So(err, ShouldBeNil)
			So(added, ShouldEqual, 2)
			So(m.EnrolledCount(), ShouldEqual, 2)

			exported, err := m.Export(ctx)
			So(err, ShouldBeNil)
			So(exported, ShouldHaveLength, 2)
		})

		Convey("Remove drops a person from the library", func() {
			_, err := m.AddSample(ctx, "alice", encoding(0.1), 0.9)
			So(err, ShouldBeNil)
			_, err = m.AddSample(ctx, "alice", encoding(0.2), 0.9)
			So(err, ShouldBeNil)

			n, err := m.Remove(ctx, "alice")
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
			So(m.HasSamples(), ShouldBeFalse)
			So(m.EnrolledCount(), ShouldEqual, 0)
		})
	})
}
