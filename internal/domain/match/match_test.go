package match_test

import (
	"math"
	"testing"

	match "github.com/okian/rollcall/internal/domain/match"
	types "github.com/okian/rollcall/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func encodingWithFirst(v float32) types.Encoding {
	enc := make(types.Encoding, types.EncodingSize)
	enc[0] = v
	return enc
}

func TestDistance(t *testing.T) {
	Convey("Given encoding distance", t, func() {
		Convey("When encodings are identical", func() {
			a := encodingWithFirst(0.5)

			Convey("Then the distance is zero", func() {
				So(match.Distance(a, a), ShouldEqual, 0)
			})
		})

		Convey("When encodings differ in one component", func() {
			a := encodingWithFirst(0)
			b := encodingWithFirst(0.3)

			Convey("Then the distance is the component delta", func() {
				So(match.Distance(a, b), ShouldAlmostEqual, 0.3, 1e-6)
			})
		})

		Convey("When encodings differ in several components", func() {
			a := make(types.Encoding, types.EncodingSize)
			b := make(types.Encoding, types.EncodingSize)
			b[0] = 3
			b[1] = 4

			Convey("Then the distance is the Euclidean norm", func() {
				So(match.Distance(a, b), ShouldAlmostEqual, 5, 1e-6)
			})
		})

		Convey("When encodings have different lengths", func() {
			a := make(types.Encoding, types.EncodingSize)
			b := make(types.Encoding, 64)

			Convey("Then they are incomparable", func() {
				So(math.IsInf(match.Distance(a, b), 1), ShouldBeTrue)
			})
		})

		Convey("When encodings are empty", func() {
			So(math.IsInf(match.Distance(types.Encoding{}, types.Encoding{}), 1), ShouldBeTrue)
		})
	})
}

func TestMatcher(t *testing.T) {
	Convey("Given a matcher with enrolled samples", t, func() {
		samples := []match.Sample{
			{Name: "alice", Encoding: encodingWithFirst(0)},
			{Name: "bob", Encoding: encodingWithFirst(2)},
		}
		m := match.New()

		Convey("When the observation is close to one sample", func() {
			got := m.Match(encodingWithFirst(0.1), samples)

			Convey("Then the nearest sample wins", func() {
				So(got.Name, ShouldEqual, "alice")
				So(got.Known(), ShouldBeTrue)
				So(got.Distance, ShouldAlmostEqual, 0.1, 1e-6)
			})

			Convey("And confidence is one minus distance", func() {
				So(got.Confidence, ShouldAlmostEqual, 0.9, 1e-6)
			})
		})

		Convey("When the observation is far from every sample", func() {
			got := m.Match(encodingWithFirst(1), samples)

			Convey("Then the result is Unknown", func() {
				So(got.Name, ShouldEqual, match.Unknown)
				So(got.Known(), ShouldBeFalse)
				So(got.Confidence, ShouldEqual, 0)
			})
		})

		Convey("When the distance is exactly the tolerance", func() {
			// 0.625 is exact in float32, so the distance carries no
			// rounding error past the tolerance.
			boundary := match.New(match.WithTolerance(0.625))
			got := boundary.Match(encodingWithFirst(0.625), samples)

			Convey("Then the match is still accepted", func() {
				So(got.Name, ShouldEqual, "alice")
				So(got.Confidence, ShouldAlmostEqual, 0.375, 1e-6)
			})
		})

		Convey("When there are no samples", func() {
			got := m.Match(encodingWithFirst(0), nil)

			Convey("Then the result is Unknown", func() {
				So(got.Name, ShouldEqual, match.Unknown)
			})

			Convey("And Best reports no candidate", func() {
				_, _, ok := m.Best(encodingWithFirst(0), nil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a custom tolerance is configured", func() {
			strict := match.New(match.WithTolerance(0.05))
			got := strict.Match(encodingWithFirst(0.1), samples)

			Convey("Then near misses become Unknown", func() {
				So(got.Name, ShouldEqual, match.Unknown)
				So(strict.Tolerance(), ShouldEqual, 0.05)
			})
		})

		Convey("When the tolerance option is invalid", func() {
			m2 := match.New(match.WithTolerance(-1))

			Convey("Then the default is kept", func() {
				So(m2.Tolerance(), ShouldEqual, match.DefaultTolerance)
			})
		})
	})
}

func TestMatcherPicksGlobalMinimum(t *testing.T) {
	Convey("Given several samples for the same person", t, func() {
		samples := []match.Sample{
			{Name: "alice", Encoding: encodingWithFirst(0.5)},
			{Name: "alice", Encoding: encodingWithFirst(0.2)},
			{Name: "bob", Encoding: encodingWithFirst(0.9)},
		}
		m := match.New()

		Convey("When matching an observation between them", func() {
			got := m.Match(encodingWithFirst(0.25), samples)

			Convey("Then the globally nearest sample decides", func() {
				So(got.Name, ShouldEqual, "alice")
				So(got.Distance, ShouldAlmostEqual, 0.05, 1e-6)
			})
		})
	})
}
