// Package service wires the store, the capture pipeline, the commit workers
// and the enrollment manager together and implements the dependencies
// required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/rollcall/internal/adapters/http/api"
	eventqueue "github.com/okian/rollcall/internal/adapters/mq/queue"
	workerpool "github.com/okian/rollcall/internal/adapters/mq/worker"
	"github.com/okian/rollcall/internal/adapters/store"
	"github.com/okian/rollcall/internal/adapters/store/memory"
	"github.com/okian/rollcall/internal/adapters/store/mongo"
	"github.com/okian/rollcall/internal/adapters/store/postgres"
	"github.com/okian/rollcall/internal/analytics"
	"github.com/okian/rollcall/internal/config"
	"github.com/okian/rollcall/internal/domain/debounce"
	"github.com/okian/rollcall/internal/domain/gate"
	"github.com/okian/rollcall/internal/domain/match"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/quality"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/internal/enroll"
	"github.com/okian/rollcall/internal/pipeline"
	"github.com/okian/rollcall/internal/vision"
	"github.com/okian/rollcall/internal/vision/capture"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

const liveUpdateBuffer = 8

// Service implements the API dependencies for the attendance system.
type Service struct {
	cfg *config.Config

	mu        sync.RWMutex
	store     store.Store
	queue     *eventqueue.InMemoryQueue
	debouncer debounce.Debouncer
	enroller  *enroll.Manager
	reports   *analytics.Service
	pool      *workerpool.Pool
	pipe      *pipeline.Pipeline
	source    vision.Source

	started    bool
	startedAt  time.Time
	pipeCancel context.CancelFunc
	poolCancel context.CancelFunc
	pipeDone   chan struct{}

	subMu  sync.Mutex
	subs   map[int]chan api.LiveUpdate
	nextID int

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a store, bypassing the configured driver.
func WithStore(st store.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithSource injects a capture source, bypassing the camera. The pipeline
// runs when a source is present even if the camera is disabled in config.
func WithSource(src vision.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service from the loaded configuration.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:  cfg,
		subs: map[int]chan api.LiveUpdate{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start connects the store, loads the face library and starts the commit
// workers and, when a camera or injected source is available, the capture
// pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	if err := s.openStore(ctx); err != nil {
		return err
	}
	if err := s.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	s.debouncer = debounce.NewInMemoryDebouncer(
		debounce.WithWindow(s.cfg.Recognition.DebounceWindow),
	)
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.cfg.Recognition.QueueSize),
	)
	metrics.UpdateQueueCapacity(s.cfg.Recognition.QueueSize)

	s.enroller = enroll.New(s.store,
		enroll.WithSampleCount(s.cfg.Enrollment.SampleCount),
		enroll.WithSampleInterval(s.cfg.Enrollment.SampleInterval),
		enroll.WithScorer(quality.New(
			quality.WithFaceSizeBounds(s.cfg.Enrollment.MinFaceSize, s.cfg.Enrollment.MaxFaceSize),
			quality.WithMinScore(s.cfg.Enrollment.MinQuality),
		)),
	)
	if err := s.enroller.Load(ctx); err != nil {
		return err
	}

	s.reports = analytics.New(s.store,
		analytics.WithEngine(s.cfg.Analytics.Engine),
		analytics.WithWindowDays(s.cfg.Analytics.DefaultWindowDays),
	)

	s.pool = workerpool.NewPool(s.cfg.Recognition.WorkerCount, s.queue, s.store, s.debouncer,
		workerpool.WithNotifier(s),
	)

	// The workers and the pipeline get separate contexts so Stop can halt
	// capture first and still let the workers drain the queued commits.
	poolCtx, poolCancel := context.WithCancel(context.WithoutCancel(ctx))
	s.poolCancel = poolCancel
	s.pool.Start(poolCtx)

	pipeCtx, pipeCancel := context.WithCancel(context.WithoutCancel(ctx))
	s.pipeCancel = pipeCancel

	if err := s.startPipeline(pipeCtx); err != nil {
		pipeCancel()
		poolCancel()
		return err
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "attendance service started",
		logger.String("driver", s.cfg.Storage.Driver),
		logger.Int("workers", s.cfg.Recognition.WorkerCount),
		logger.Int("queue_size", s.cfg.Recognition.QueueSize),
		logger.Bool("camera", s.source != nil),
	)
	return nil
}

// openStore selects the configured driver unless one was injected.
func (s *Service) openStore(ctx context.Context) error {
	if s.store != nil {
		return nil
	}

	var err error
	switch s.cfg.Storage.Driver {
	case config.DriverMongo:
		s.store, err = mongo.New(ctx,
			mongo.WithURI(s.cfg.Storage.URI),
			mongo.WithDatabase(s.cfg.Storage.Database),
			mongo.WithConnectTimeout(s.cfg.Storage.ConnectTimeout),
		)
	case config.DriverPostgres:
		s.store, err = postgres.New(ctx,
			postgres.WithURI(s.cfg.Storage.URI),
			postgres.WithConnectTimeout(s.cfg.Storage.ConnectTimeout),
		)
	default:
		s.store = memory.New()
	}
	if err != nil {
		return fmt.Errorf("open %s store: %w", s.cfg.Storage.Driver, err)
	}
	return nil
}

// startPipeline opens the camera when enabled and runs the frame loop.
// Without a camera the service still serves the API.
func (s *Service) startPipeline(ctx context.Context) error {
	if s.source == nil {
		if !s.cfg.Camera.Enabled {
			return nil
		}
		rec, err := capture.NewRecognizer(s.cfg.Recognition.ModelDir)
		if err != nil {
			return err
		}
		cam, err := capture.NewCamera(s.cfg.Camera.Device, rec,
			capture.WithMotionDetector(capture.NewMotionDetector(
				capture.WithMinContourArea(s.cfg.Motion.MinContourArea),
				capture.WithDiffThreshold(s.cfg.Motion.Threshold),
			)),
		)
		if err != nil {
			return err
		}
		s.source = cam
	}

	s.pipe = pipeline.New(
		s.source,
		gate.New(gate.WithCooldown(s.cfg.Motion.Cooldown)),
		match.New(match.WithTolerance(s.cfg.Recognition.Tolerance)),
		s.debouncer,
		s.queue,
		s.enroller,
		pipeline.WithFrameSink(s.enroller),
		pipeline.WithFrameInterval(s.cfg.Camera.FrameInterval),
		pipeline.WithConfidenceThreshold(s.cfg.Recognition.ConfidenceThreshold),
	)
	s.pipeDone = make(chan struct{})
	go func() {
		defer close(s.pipeDone)
		if err := s.pipe.Run(ctx); err != nil {
			s.logger.Error(ctx, "capture pipeline failed", logger.Error(err))
		}
	}()
	return nil
}

// Stop drains the commit queue and releases the camera and the store.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping attendance service")

	// Stop the producers first, then close the queue so the workers finish
	// every accepted recognition before their context goes away.
	if s.pipeCancel != nil {
		s.pipeCancel()
	}
	if s.source != nil {
		_ = s.source.Close()
	}
	if s.pipeDone != nil {
		<-s.pipeDone
	}
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
		}
	}
	if s.poolCancel != nil {
		s.poolCancel()
	}
	if s.store != nil {
		if err := s.store.Close(ctx); err != nil {
			s.logger.Warn(ctx, "store close failed", logger.Error(err))
		}
	}

	s.subMu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subMu.Unlock()

	s.started = false
	s.logger.Info(ctx, "attendance service stopped")
}

// Store exposes the persistence surface.
func (s *Service) Store() store.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Enrollment exposes the sample library and session manager.
func (s *Service) Enrollment() *enroll.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enroller
}

// Reports exposes the analytics engines.
func (s *Service) Reports() *analytics.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reports
}

// Ingest pushes an external recognition through the same
// debounce-then-commit path the camera pipeline uses.
func (s *Service) Ingest(ctx context.Context, req api.IngestRequest) api.IngestResult {
	if req.Confidence <= s.cfg.Recognition.ConfidenceThreshold {
		return api.IngestResult{Status: api.IngestLowConfidence}
	}
	if !s.debouncer.AllowAndMark(ctx, req.Name, time.Now()) {
		metrics.RecordRecognitionSuppressed()
		return api.IngestResult{Status: api.IngestSuppressed}
	}

	capturedAt := req.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	source := req.Source
	if source == "" {
		source = model.SourceAPI
	}
	ev := model.RecognitionEvent{
		EventID:    model.NewEventID(),
		Name:       req.Name,
		Confidence: req.Confidence,
		CapturedAt: capturedAt,
		Location:   req.Location,
		Source:     source,
	}
	if !s.queue.Enqueue(ctx, ev) {
		s.debouncer.Release(ctx, req.Name)
		metrics.RecordQueueDropped()
		return api.IngestResult{Status: api.IngestQueueFull}
	}
	return api.IngestResult{Status: api.IngestAccepted, EventID: ev.EventID}
}

// Snapshot assembles the status read model for /status and the live feed.
func (s *Service) Snapshot(ctx context.Context) api.StatusSnapshot {
	s.mu.RLock()
	pipe := s.pipe
	startedAt := s.startedAt
	started := s.started
	s.mu.RUnlock()

	snap := api.StatusSnapshot{
		Running:  started,
		Counters: map[string]uint64{},
	}
	if started {
		snap.UptimeSeconds = time.Since(startedAt).Seconds()
	}
	if pipe != nil {
		ps := pipe.Status()
		snap.Running = ps.Running
		snap.DetectionActive = ps.DetectionActive
		snap.LastMotion = ps.LastMotion
		snap.Counters = ps.Counters()
	}
	if s.enroller != nil {
		snap.EnrolledPeople = s.enroller.EnrolledCount()
	}
	if st := s.Store(); st != nil {
		if records, err := st.AttendanceOn(ctx, types.DateOf(time.Now())); err == nil {
			snap.TodayAttendance = len(records)
		}
	}
	return snap
}

// Subscribe registers a live feed consumer.
func (s *Service) Subscribe() (<-chan api.LiveUpdate, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan api.LiveUpdate, liveUpdateBuffer)
	s.subs[id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// NotifyRecognition pushes a committed recognition to live feed consumers.
// Slow consumers miss updates instead of blocking the commit worker.
func (s *Service) NotifyRecognition(e model.RecognitionEvent, marked bool) {
	update := api.LiveUpdate{
		Type: "recognition",
		Event: &api.RecognitionEventView{
			EventID:    e.EventID,
			Name:       e.Name,
			Confidence: e.Confidence,
			CapturedAt: e.CapturedAt,
			Source:     e.Source,
		},
		Attendance: marked,
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- update:
		default:
		}
	}
}

var _ api.Dependencies = (*Service)(nil)
var _ workerpool.Notifier = (*Service)(nil)
