package debounce_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	debounce "github.com/okian/rollcall/internal/domain/debounce"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDebouncer(t *testing.T) {
	Convey("Given a debouncer with a 30s window", t, func() {
		d := debounce.NewInMemoryDebouncer(debounce.WithWindow(30 * time.Second))
		ctx := context.Background()
		base := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)

		Convey("When a person is recognized for the first time", func() {
			allowed := d.AllowAndMark(ctx, "alice", base)

			Convey("Then the recognition is admitted and marked", func() {
				So(allowed, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same person is recognized twice within the window", func() {
			So(d.AllowAndMark(ctx, "alice", base), ShouldBeTrue)
			allowed := d.AllowAndMark(ctx, "alice", base.Add(10*time.Second))

			Convey("Then the second recognition is suppressed", func() {
				So(allowed, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the window has exactly elapsed", func() {
			So(d.AllowAndMark(ctx, "alice", base), ShouldBeTrue)
			allowed := d.AllowAndMark(ctx, "alice", base.Add(30*time.Second))

			Convey("Then the recognition is still suppressed", func() {
				So(allowed, ShouldBeFalse)
			})
		})

		Convey("When more than the window has elapsed", func() {
			So(d.AllowAndMark(ctx, "alice", base), ShouldBeTrue)
			allowed := d.AllowAndMark(ctx, "alice", base.Add(30*time.Second+time.Millisecond))

			Convey("Then the recognition is admitted again", func() {
				So(allowed, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When different people are recognized together", func() {
			So(d.AllowAndMark(ctx, "alice", base), ShouldBeTrue)
			So(d.AllowAndMark(ctx, "bob", base), ShouldBeTrue)

			Convey("Then each person has an independent window", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.AllowAndMark(ctx, "alice", base.Add(time.Second)), ShouldBeFalse)
				So(d.AllowAndMark(ctx, "carol", base.Add(time.Second)), ShouldBeTrue)
			})
		})

		Convey("When a mark is released", func() {
			So(d.AllowAndMark(ctx, "alice", base), ShouldBeTrue)
			d.Release(ctx, "alice")

			Convey("Then the person may retry immediately", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.AllowAndMark(ctx, "alice", base.Add(time.Second)), ShouldBeTrue)
			})
		})

		Convey("When releasing an unknown name", func() {
			d.Release(ctx, "nobody")

			Convey("Then size is unaffected", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestInMemoryDebouncerPruning(t *testing.T) {
	Convey("Given a debouncer with a small prune threshold", t, func() {
		d := debounce.NewInMemoryDebouncer(
			debounce.WithWindow(time.Second),
			debounce.WithPruneAbove(10),
		)
		ctx := context.Background()
		base := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)

		Convey("When many marks expire and new ones arrive", func() {
			for i := 0; i < 11; i++ {
				So(d.AllowAndMark(ctx, fmt.Sprintf("person-%d", i), base), ShouldBeTrue)
			}
			So(d.Size(), ShouldEqual, 11)

			// Next admission runs past the threshold with every old mark
			// expired, triggering a prune.
			later := base.Add(time.Hour)
			So(d.AllowAndMark(ctx, "fresh", later), ShouldBeTrue)

			Convey("Then expired marks are dropped", func() {
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}

func TestInMemoryDebouncerConcurrency(t *testing.T) {
	Convey("Given concurrent recognitions of the same person", t, func() {
		d := debounce.NewInMemoryDebouncer(debounce.WithWindow(30 * time.Second))
		ctx := context.Background()
		now := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)

		Convey("When many goroutines race to admit one name", func() {
			const goroutines = 64
			var wg sync.WaitGroup
			var admitted atomic64

			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if d.AllowAndMark(ctx, "alice", now) {
						admitted.inc()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one admission wins", func() {
				So(admitted.load(), ShouldEqual, 1)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When goroutines admit distinct names", func() {
			const goroutines = 64
			var wg sync.WaitGroup

			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					d.AllowAndMark(ctx, fmt.Sprintf("person-%d", n), now)
				}(i)
			}
			wg.Wait()

			Convey("Then every name is marked once", func() {
				So(d.Size(), ShouldEqual, goroutines)
			})
		})
	})
}

type atomic64 struct {
	mu sync.Mutex
	n  int64
}

func (a *atomic64) inc() {
	a.mu.Lock()
	a.n++
	a.mu.Unlock()
}

func (a *atomic64) load() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}
