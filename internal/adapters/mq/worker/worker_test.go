package worker_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/adapters/mq/queue"
	"github.com/okian/rollcall/internal/adapters/mq/worker"
	"github.com/okian/rollcall/internal/adapters/store/memory"
	"github.com/okian/rollcall/internal/domain/debounce"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", "text"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// failingStore wraps the memory store to force attendance failures.
type failingStore struct {
	*memory.Store
	failMark bool
}

func (f *failingStore) MarkAttendance(ctx context.Context, rec model.AttendanceRecord) (bool, error) {
	if f.failMark {
		return false, errors.New("storage unavailable")
	}
	return f.Store.MarkAttendance(ctx, rec)
}

// recorder captures notifications.
type recorder struct {
	mu     sync.Mutex
	events []model.RecognitionEvent
	marked []bool
}

func (r *recorder) NotifyRecognition(e model.RecognitionEvent, marked bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	r.marked = append(r.marked, marked)
}

func (r *recorder) snapshot() ([]model.RecognitionEvent, []bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.RecognitionEvent(nil), r.events...), append([]bool(nil), r.marked...)
}

func newTask(name string, at time.Time) worker.Task {
	return model.RecognitionEvent{
		EventID:    model.NewEventID(),
		Name:       name,
		Confidence: 0.85,
		CapturedAt: at,
		Source:     model.SourceCamera,
	}
}

func drainCommit(t *testing.T, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("commit did not complete in time")
}

func TestWorkerCommit(t *testing.T) {
	ctx := context.Background()
	enter := time.Date(2026, 8, 31, 8, 55, 0, 0, time.UTC)

	Convey("Given a worker over a store with one enrolled employee", t, func() {
		st := memory.New()
		So(st.CreateEmployee(ctx, model.Employee{
			EmployeeID:    "EMP00000001",
			Name:          "Alice",
			WorkStartTime: "09:00",
			IsActive:      true,
		}), ShouldBeNil)

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		deb := debounce.NewInMemoryDebouncer()
		rec := &recorder{}
		w := worker.New(q, st, deb, worker.WithNotifier(rec))

		runCtx, cancel := context.WithCancel(ctx)
		go w.Run(runCtx)
		defer func() {
			cancel()
			_ = w.Shutdown(context.Background())
		}()

		Convey("When a recognition task is committed", func() {
			So(deb.AllowAndMark(ctx, "Alice", enter), ShouldBeTrue)
			So(q.Enqueue(ctx, newTask("Alice", enter)), ShouldBeTrue)

			drainCommit(t, func() bool {
				day, _ := st.AttendanceOn(ctx, "2026-08-31")
				return len(day) == 1
			})

			Convey("Then the event is logged and attendance marked on time", func() {
				events, err := st.RecentEvents(ctx, 10)
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 1)

				day, err := st.AttendanceOn(ctx, "2026-08-31")
				So(err, ShouldBeNil)
				So(day[0].EmployeeID, ShouldEqual, "EMP00000001")
				So(day[0].IsLate, ShouldBeFalse)
			})

			Convey("Then the notifier sees a marked commit", func() {
				events, marked := rec.snapshot()
				So(len(events), ShouldEqual, 1)
				So(marked[0], ShouldBeTrue)
			})

			Convey("And a same-day duplicate keeps exactly one record", func() {
				later := newTask("Alice", enter.Add(15*time.Minute))
				So(q.Enqueue(ctx, later), ShouldBeTrue)

				drainCommit(t, func() bool {
					events, _ := st.RecentEvents(ctx, 10)
					return len(events) == 2
				})

				day, err := st.AttendanceOn(ctx, "2026-08-31")
				So(err, ShouldBeNil)
				So(len(day), ShouldEqual, 1)
				So(day[0].EnterTime, ShouldEqual, enter)
			})
		})

		Convey("When a late recognition arrives the next day", func() {
			nextDay := time.Date(2026, 9, 1, 9, 10, 0, 0, time.UTC)
			So(q.Enqueue(ctx, newTask("Alice", nextDay)), ShouldBeTrue)

			drainCommit(t, func() bool {
				day, _ := st.AttendanceOn(ctx, "2026-09-01")
				return len(day) == 1
			})

			Convey("Then the new record is flagged late", func() {
				day, err := st.AttendanceOn(ctx, "2026-09-01")
				So(err, ShouldBeNil)
				So(day[0].IsLate, ShouldBeTrue)
			})
		})

		Convey("When the recognized name has no employee", func() {
			So(q.Enqueue(ctx, newTask("Stranger", enter)), ShouldBeTrue)

			drainCommit(t, func() bool {
				events, _ := st.RecentEvents(ctx, 10)
				return len(events) == 1
			})

			Convey("Then the event is logged but no attendance is written", func() {
				day, err := st.AttendanceOn(ctx, "2026-08-31")
				So(err, ShouldBeNil)
				So(day, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a worker whose attendance writes fail", t, func() {
		base := memory.New()
		So(base.CreateEmployee(ctx, model.Employee{
			EmployeeID:    "EMP00000001",
			Name:          "Alice",
			WorkStartTime: "09:00",
			IsActive:      true,
		}), ShouldBeNil)
		st := &failingStore{Store: base, failMark: true}

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		deb := debounce.NewInMemoryDebouncer()
		w := worker.New(q, st, deb)

		runCtx, cancel := context.WithCancel(ctx)
		go w.Run(runCtx)
		defer func() {
			cancel()
			_ = w.Shutdown(context.Background())
		}()

		Convey("When a marked recognition fails to commit", func() {
			So(deb.AllowAndMark(ctx, "Alice", enter), ShouldBeTrue)
			So(q.Enqueue(ctx, newTask("Alice", enter)), ShouldBeTrue)

			drainCommit(t, func() bool { return deb.Size() == 0 })

			Convey("Then the debounce mark is released for retry", func() {
				So(deb.AllowAndMark(ctx, "Alice", enter.Add(time.Second)), ShouldBeTrue)
			})
		})
	})
}

func TestPool(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pool of workers", t, func() {
		st := memory.New()
		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		deb := debounce.NewInMemoryDebouncer()
		p := worker.NewPool(2, q, st, deb)

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		p.Start(runCtx)

		Convey("When tasks are enqueued and the pool shuts down", func() {
			for i := 0; i < 8; i++ {
				So(q.Enqueue(ctx, newTask("Alice", time.Now())), ShouldBeTrue)
			}
			So(p.Shutdown(ctx), ShouldBeNil)

			Convey("Then the queue is closed and drained", func() {
				So(q.IsClosed(), ShouldBeTrue)
				events, err := st.RecentEvents(ctx, 100)
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 8)
			})
		})
	})
}
