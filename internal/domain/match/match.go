// Package match compares face encodings against enrolled samples.
package match

import (
	"math"

	"github.com/okian/rollcall/internal/domain/types"
)

// Unknown is the label for a face that matched no enrolled sample.
const Unknown = "Unknown"

// DefaultTolerance is the maximum distance accepted as a match.
const DefaultTolerance = 0.6

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithTolerance sets the maximum accepted distance.
func WithTolerance(tolerance float64) Option {
	return func(m *Matcher) {
		if tolerance > 0 {
			m.tolerance = tolerance
		}
	}
}

// Sample pairs a person's name with one enrolled encoding.
type Sample struct {
	Name     string
	Encoding types.Encoding
}

// Match is the outcome of comparing one observation against the samples.
type Match struct {
	Name       string
	Distance   float64
	Confidence float64
}

// Known reports whether the match resolved to an enrolled person.
func (m Match) Known() bool { return m.Name != Unknown }

// Matcher finds the nearest enrolled sample for an encoding.
type Matcher struct {
	tolerance float64
}

// New creates a Matcher with configuration options.
func New(opts ...Option) *Matcher {
	m := &Matcher{tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tolerance returns the configured maximum accepted distance.
func (m *Matcher) Tolerance() float64 { return m.tolerance }

// Best returns the nearest sample by Euclidean distance. ok is false when
// samples is empty.
func (m *Matcher) Best(enc types.Encoding, samples []Sample) (Sample, float64, bool) {
	best := math.Inf(1)
	var nearest Sample
	for _, s := range samples {
		if d := Distance(enc, s.Encoding); d < best {
			best = d
			nearest = s
		}
	}
	if math.IsInf(best, 1) {
		return Sample{}, 0, false
	}
	return nearest, best, true
}

// Match resolves an encoding to a name. The nearest sample wins only when
// its distance is within tolerance; otherwise the result is Unknown.
// Confidence is 1 − distance, clamped to [0, 1].
func (m *Matcher) Match(enc types.Encoding, samples []Sample) Match {
	nearest, dist, ok := m.Best(enc, samples)
	if !ok || dist > m.tolerance {
		return Match{Name: Unknown, Distance: dist}
	}
	return Match{
		Name:       nearest.Name,
		Distance:   dist,
		Confidence: confidence(dist),
	}
}

func confidence(distance float64) float64 {
	c := 1 - distance
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Distance is the Euclidean distance between two encodings. Encodings of
// different lengths are incomparable and yield +Inf.
func Distance(a, b types.Encoding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
