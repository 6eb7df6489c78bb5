package enroll

import (
	"time"

	"github.com/okian/rollcall/internal/domain/quality"
	"github.com/okian/rollcall/pkg/logger"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithSampleCount sets how many samples a session captures.
func WithSampleCount(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.count = n
		}
	}
}

// WithSampleInterval sets the minimum delay between captured samples.
func WithSampleInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithScorer replaces the default quality scorer.
func WithScorer(s *quality.Scorer) Option {
	return func(m *Manager) {
		if s != nil {
			m.scorer = s
		}
	}
}

// WithLogger sets the manager's logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}
