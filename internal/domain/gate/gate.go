// Package gate holds the motion gate that decides when face recognition runs.
package gate

import (
	"sync"
	"time"
)

// DefaultCooldown keeps recognition active this long past the last motion.
const DefaultCooldown = 3 * time.Second

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithCooldown sets how long recognition stays active after the last motion.
func WithCooldown(cooldown time.Duration) Option {
	return func(g *Gate) {
		if cooldown > 0 {
			g.cooldown = cooldown
		}
	}
}

// Gate tracks motion across frames and gates the recognition step.
// Motion turns it on; it turns off once a frame arrives more than the
// cooldown after the last motion.
type Gate struct {
	mu         sync.Mutex
	cooldown   time.Duration
	lastMotion time.Time
	active     bool
}

// New creates a Gate with configuration options.
func New(opts ...Option) *Gate {
	g := &Gate{cooldown: DefaultCooldown}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Observe applies one frame's motion result at time now and reports whether
// recognition is active for this frame.
func (g *Gate) Observe(motion bool, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if motion {
		g.lastMotion = now
		g.active = true
	} else if g.active && now.Sub(g.lastMotion) > g.cooldown {
		g.active = false
	}
	return g.active
}

// Active reports the state as of the last observed frame.
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// LastMotion returns the time of the last frame with qualifying motion.
// The zero time means no motion has been observed yet.
func (g *Gate) LastMotion() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastMotion
}

// Cooldown returns the configured cooldown.
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}
