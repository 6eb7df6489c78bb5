package debounce

import "time"

// Option applies a configuration option to the in-memory debouncer.
type Option func(*inMemoryDebouncer)

// WithWindow sets the minimum interval between accepted recognitions of the
// same person.
func WithWindow(window time.Duration) Option {
	return func(d *inMemoryDebouncer) {
		if window > 0 {
			d.window = window
		}
	}
}

// WithPruneAbove sets the map size past which expired marks are pruned.
func WithPruneAbove(n int) Option {
	return func(d *inMemoryDebouncer) {
		if n > 0 {
			d.pruneAbove = n
		}
	}
}
