package pipeline

import (
	"time"

	"github.com/okian/rollcall/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithFrameInterval sets the target delay between frames.
func WithFrameInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithConfidenceThreshold sets the minimum confidence that may produce an
// attendance write.
func WithConfidenceThreshold(t float64) Option {
	return func(p *Pipeline) {
		if t > 0 && t < 1 {
			p.threshold = t
		}
	}
}

// WithFrameSink routes frames to a sink (the enrollment manager) while it
// is active.
func WithFrameSink(s FrameSink) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sink = s
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the pipeline's logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}
