package quality_test

import (
	"testing"

	quality "github.com/okian/rollcall/internal/domain/quality"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScorer(t *testing.T) {
	Convey("Given a quality scorer", t, func() {
		s := quality.New()

		Convey("When a face has ideal size, sharp focus and mid brightness", func() {
			q := s.Score(quality.Measurements{
				Width:             120,
				Height:            120,
				LaplacianVariance: 600,
				MeanBrightness:    127,
			})

			Convey("Then the score is maximal", func() {
				So(q, ShouldAlmostEqual, 1.0, 1e-9)
			})
		})

		Convey("When the crop falls outside the frame", func() {
			q := s.Score(quality.Measurements{Width: 120, Height: 120, OutOfFrame: true})

			Convey("Then the score is zero", func() {
				So(q, ShouldEqual, 0)
			})
		})

		Convey("When the face is blurry", func() {
			sharp := s.Score(quality.Measurements{Width: 120, Height: 120, LaplacianVariance: 600, MeanBrightness: 127})
			blurry := s.Score(quality.Measurements{Width: 120, Height: 120, LaplacianVariance: 50, MeanBrightness: 127})

			Convey("Then it scores lower than a sharp face", func() {
				So(blurry, ShouldBeLessThan, sharp)
			})

			Convey("And the sharpness component scales with the variance", func() {
				So(blurry, ShouldAlmostEqual, 0.4+0.4*(50.0/500.0)+0.2, 1e-9)
			})
		})

		Convey("When the face is over- or under-exposed", func() {
			dark := s.Score(quality.Measurements{Width: 120, Height: 120, LaplacianVariance: 600, MeanBrightness: 20})
			bright := s.Score(quality.Measurements{Width: 120, Height: 120, LaplacianVariance: 600, MeanBrightness: 240})
			mid := s.Score(quality.Measurements{Width: 120, Height: 120, LaplacianVariance: 600, MeanBrightness: 127})

			Convey("Then both extremes score below mid brightness", func() {
				So(dark, ShouldBeLessThan, mid)
				So(bright, ShouldBeLessThan, mid)
			})
		})

		Convey("When the face size is far from the ideal", func() {
			ideal := s.Score(quality.Measurements{Width: 120, Height: 120, LaplacianVariance: 600, MeanBrightness: 127})
			huge := s.Score(quality.Measurements{Width: 380, Height: 380, LaplacianVariance: 600, MeanBrightness: 127})

			Convey("Then the size component drops to its floor", func() {
				So(huge, ShouldBeLessThan, ideal)
				// 380*380 is far past 2x the ideal area, so the size term is 0.
				So(huge, ShouldAlmostEqual, 0.4+0.2, 1e-9)
			})
		})

		Convey("When measurements are degenerate", func() {
			So(s.Score(quality.Measurements{Width: 0, Height: 120}), ShouldEqual, 0)
			So(s.Score(quality.Measurements{Width: 120, Height: -1}), ShouldEqual, 0)
		})
	})
}

func TestScorerAcceptance(t *testing.T) {
	Convey("Given enrollment acceptance rules", t, func() {
		s := quality.New()

		Convey("When the face is within size bounds and sharp", func() {
			q, ok := s.Acceptable(quality.Measurements{
				Width:             120,
				Height:            130,
				LaplacianVariance: 400,
				MeanBrightness:    120,
			})

			Convey("Then it is accepted with its score", func() {
				So(ok, ShouldBeTrue)
				So(q, ShouldBeGreaterThanOrEqualTo, s.MinScore())
			})
		})

		Convey("When the face is too small", func() {
			_, ok := s.Acceptable(quality.Measurements{Width: 40, Height: 120, LaplacianVariance: 600, MeanBrightness: 127})
			So(ok, ShouldBeFalse)
		})

		Convey("When the face is too large", func() {
			_, ok := s.Acceptable(quality.Measurements{Width: 120, Height: 450, LaplacianVariance: 600, MeanBrightness: 127})
			So(ok, ShouldBeFalse)
		})

		Convey("When the quality is below the minimum", func() {
			// Non-ideal size, fully blurry, dark: only a sliver of brightness weight.
			_, ok := s.Acceptable(quality.Measurements{Width: 61, Height: 61, LaplacianVariance: 0, MeanBrightness: 5})
			So(ok, ShouldBeFalse)
		})

		Convey("When custom bounds are configured", func() {
			strict := quality.New(quality.WithFaceSizeBounds(100, 200), quality.WithMinScore(0.5))

			Convey("Then the bounds apply", func() {
				So(strict.SizeAcceptable(90, 150), ShouldBeFalse)
				So(strict.SizeAcceptable(150, 150), ShouldBeTrue)
				So(strict.MinScore(), ShouldEqual, 0.5)
			})
		})

		Convey("When options are invalid", func() {
			s2 := quality.New(quality.WithFaceSizeBounds(200, 100), quality.WithMinScore(2))

			Convey("Then defaults are kept", func() {
				So(s2.SizeAcceptable(60, 60), ShouldBeTrue)
				So(s2.MinScore(), ShouldEqual, quality.DefaultMinScore)
			})
		})
	})
}
