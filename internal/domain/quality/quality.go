// Package quality scores detected faces for enrollment suitability.
package quality

// Default face size and quality bounds.
const (
	DefaultMinFaceSize = 60
	DefaultMaxFaceSize = 400
	DefaultMinScore    = 0.2

	idealFaceArea      = 120 * 120
	sharpnessReference = 500.0
	brightnessMidpoint = 127.0
)

// Weights of the quality components.
const (
	sizeWeight       = 0.4
	sharpnessWeight  = 0.4
	brightnessWeight = 0.2
)

// Measurements holds the raw image statistics of one face crop.
type Measurements struct {
	Width             int
	Height            int
	LaplacianVariance float64
	MeanBrightness    float64
	OutOfFrame        bool
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithFaceSizeBounds sets the accepted face side length range in pixels.
func WithFaceSizeBounds(minSize, maxSize int) Option {
	return func(s *Scorer) {
		if minSize > 0 && maxSize > minSize {
			s.minFaceSize = minSize
			s.maxFaceSize = maxSize
		}
	}
}

// WithMinScore sets the minimum quality accepted for enrollment.
func WithMinScore(score float64) Option {
	return func(s *Scorer) {
		if score > 0 && score <= 1 {
			s.minScore = score
		}
	}
}

// Scorer combines size, sharpness and brightness into one quality score.
type Scorer struct {
	minFaceSize int
	maxFaceSize int
	minScore    float64
}

// New creates a Scorer with configuration options.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		minFaceSize: DefaultMinFaceSize,
		maxFaceSize: DefaultMaxFaceSize,
		minScore:    DefaultMinScore,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns the quality of a face crop in [0, 1].
// A crop outside the frame scores 0.
func (s *Scorer) Score(m Measurements) float64 {
	if m.OutOfFrame || m.Width <= 0 || m.Height <= 0 {
		return 0
	}

	area := float64(m.Width * m.Height)
	sizeScore := 1 - abs(area-idealFaceArea)/idealFaceArea
	if sizeScore < 0 {
		sizeScore = 0
	}

	sharpnessScore := m.LaplacianVariance / sharpnessReference
	if sharpnessScore > 1 {
		sharpnessScore = 1
	}

	brightnessScore := 1 - abs(m.MeanBrightness-brightnessMidpoint)/brightnessMidpoint

	q := sizeScore*sizeWeight + sharpnessScore*sharpnessWeight + brightnessScore*brightnessWeight
	if q < 0 {
		return 0
	}
	if q > 1 {
		return 1
	}
	return q
}

// SizeAcceptable reports whether both face sides are inside the accepted
// range.
func (s *Scorer) SizeAcceptable(width, height int) bool {
	if width < s.minFaceSize || height < s.minFaceSize {
		return false
	}
	if width > s.maxFaceSize || height > s.maxFaceSize {
		return false
	}
	return true
}

// Acceptable reports whether a face passes both the size bounds and the
// minimum quality score.
func (s *Scorer) Acceptable(m Measurements) (float64, bool) {
	if !s.SizeAcceptable(m.Width, m.Height) {
		return 0, false
	}
	q := s.Score(m)
	return q, q >= s.minScore
}

// MinScore returns the configured minimum quality.
func (s *Scorer) MinScore() float64 { return s.minScore }

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
