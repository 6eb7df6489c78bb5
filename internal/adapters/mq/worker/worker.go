// Package worker runs the commit side of the recognition pipeline: tasks
// dequeued from the commit queue become recognition events and attendance
// records.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/rollcall/internal/adapters/store"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// poolShutdownTimeout bounds how long Shutdown waits for workers to drain.
const poolShutdownTimeout = 30 * time.Second

// Task is the payload consumed off the queue.
type Task = model.RecognitionEvent

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Task
}

// Store is the slice of persistence the commit path needs.
type Store interface {
	RecordEvent(ctx context.Context, e model.RecognitionEvent) error
	FindEmployeeByFaceName(ctx context.Context, name string) (model.Employee, error)
	MarkAttendance(ctx context.Context, rec model.AttendanceRecord) (bool, error)
}

// Releaser removes a debounce mark so a failed commit may retry on the
// next recognition.
type Releaser interface {
	Release(ctx context.Context, name string)
}

// Notifier observes committed recognitions, e.g. the live feed.
type Notifier interface {
	NotifyRecognition(e model.RecognitionEvent, marked bool)
}

// Worker processes commit tasks until stopped.
type Worker struct {
	queue    Queue
	store    Store
	releaser Releaser
	notifier Notifier
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// New creates a commit worker with configuration options.
func New(queue Queue, st Store, releaser Releaser, opts ...Option) *Worker {
	w := &Worker{
		queue:    queue,
		store:    st,
		releaser: releaser,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run consumes tasks until the context ends, the queue closes, or
// Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			if err := w.commit(ctx, task); err != nil {
				w.logger.Error(ctx, "commit failed",
					logger.String("event_id", task.EventID),
					logger.String("name", task.Name),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker and waits for the in-flight task.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}

// commit persists one accepted recognition: append the event, resolve the
// employee, and mark attendance for the day. A storage failure releases
// the task's debounce mark so the next recognition may retry.
func (w *Worker) commit(ctx context.Context, task Task) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordCommitLatency(float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.RecordCommitError()
			w.releaser.Release(ctx, task.Name)
		}
	}()

	if err = w.store.RecordEvent(ctx, task); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	metrics.RecordRecognitionEvent()

	employee, findErr := w.store.FindEmployeeByFaceName(ctx, task.Name)
	if errors.Is(findErr, store.ErrNotFound) {
		// A recognized face with no employee behind it stays in the event
		// log only. The debounce mark stands so the log is not flooded.
		w.logger.Debug(ctx, "no employee for recognized face",
			logger.String("name", task.Name),
		)
		w.notify(task, false)
		return nil
	}
	if findErr != nil {
		err = fmt.Errorf("resolve employee: %w", findErr)
		return err
	}

	startTime, parseErr := types.ParseTimeOfDay(employee.WorkStartTime)
	if parseErr != nil {
		w.logger.Warn(ctx, "bad work start time, using default",
			logger.String("employee_id", employee.EmployeeID),
			logger.String("work_start_time", employee.WorkStartTime),
		)
		startTime, _ = types.ParseTimeOfDay(model.DefaultWorkStartTime)
	}

	rec := model.NewAttendanceRecord(employee.EmployeeID, task.CapturedAt, startTime)
	rec.EmployeeName = employee.Name

	inserted, markErr := w.store.MarkAttendance(ctx, rec)
	if markErr != nil {
		err = fmt.Errorf("mark attendance: %w", markErr)
		return err
	}
	if inserted {
		metrics.RecordAttendanceMarked()
		w.logger.Info(ctx, "attendance marked",
			logger.String("employee_id", employee.EmployeeID),
			logger.String("date", rec.Date),
			logger.Bool("is_late", rec.IsLate),
		)
	} else {
		metrics.RecordAttendanceDuplicate()
	}
	w.notify(task, inserted)
	return nil
}

func (w *Worker) notify(task Task, marked bool) {
	if w.notifier != nil {
		w.notifier.NotifyRecognition(task, marked)
	}
}

// Pool manages a fixed set of commit workers.
type Pool struct {
	workers []*Worker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount commit workers over one queue.
func NewPool(workerCount int, queue Queue, st Store, releaser Releaser, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = New(queue, st, releaser, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
