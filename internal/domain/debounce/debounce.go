// Package debounce suppresses repeated recognitions of the same person.
package debounce

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWindow is the minimum interval between two accepted recognitions
// of the same person.
const DefaultWindow = 30 * time.Second

// Debouncer decides whether a recognition may proceed to an attendance write.
type Debouncer interface {
	// AllowAndMark atomically checks whether name is outside its debounce
	// window at now and marks it if so. Returns false when the recognition
	// must be suppressed. This is the ONLY admission method.
	AllowAndMark(ctx context.Context, name string, now time.Time) bool

	// Release removes the mark for name, allowing the next recognition to
	// retry. Use it when a marked recognition failed to commit
	// (queue backpressure, storage error).
	Release(ctx context.Context, name string)

	// Size returns the number of names currently marked.
	Size() int64
}

// inMemoryDebouncer implements Debouncer with a map of last-accept times.
// Expired marks are pruned lazily once the map grows past pruneAbove.
type inMemoryDebouncer struct {
	mu         sync.Mutex
	window     time.Duration
	pruneAbove int
	marks      map[string]time.Time
	size       atomic.Int64
}

// NewInMemoryDebouncer creates an in-memory debouncer with configuration
// options.
func NewInMemoryDebouncer(opts ...Option) Debouncer {
	d := &inMemoryDebouncer{
		window:     DefaultWindow,
		pruneAbove: 1024,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.marks = make(map[string]time.Time)
	return d
}

// AllowAndMark admits name when it has no live mark, recording now as its
// last accepted time. A mark is live while now − mark <= window.
func (d *inMemoryDebouncer) AllowAndMark(_ context.Context, name string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.marks[name]; ok && now.Sub(last) <= d.window {
		return false
	}

	if _, ok := d.marks[name]; !ok {
		d.size.Add(1)
	}
	d.marks[name] = now

	if len(d.marks) > d.pruneAbove {
		d.prune(now)
	}
	return true
}

// Release removes the mark for name.
func (d *inMemoryDebouncer) Release(_ context.Context, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.marks[name]; ok {
		delete(d.marks, name)
		d.size.Add(-1)
	}
}

// Size returns the number of marked names.
func (d *inMemoryDebouncer) Size() int64 {
	return d.size.Load()
}

// prune drops expired marks. Must be called with d.mu held.
func (d *inMemoryDebouncer) prune(now time.Time) {
	for name, last := range d.marks {
		if now.Sub(last) > d.window {
			delete(d.marks, name)
			d.size.Add(-1)
		}
	}
}
