// Package pipeline runs the capture loop: read a frame, update the motion
// gate, recognize faces while the gate is open and hand accepted
// recognitions to the commit queue. One goroutine owns the loop; everything
// it publishes is snapshot-copied.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/okian/rollcall/internal/domain/gate"
	"github.com/okian/rollcall/internal/domain/match"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/vision"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// DefaultFrameInterval targets roughly 30 frames per second.
const DefaultFrameInterval = 33 * time.Millisecond

// DefaultConfidenceThreshold is the minimum confidence that may produce an
// attendance write.
const DefaultConfidenceThreshold = 0.6

// Enqueuer hands accepted recognitions to the commit workers. Enqueue
// reports false when the queue is full or closed; the pipeline never
// blocks on it.
type Enqueuer interface {
	Enqueue(ctx context.Context, t model.RecognitionEvent) bool
}

// Debouncer suppresses repeat recognitions of the same person.
type Debouncer interface {
	AllowAndMark(ctx context.Context, name string, now time.Time) bool
	Release(ctx context.Context, name string)
}

// SampleSource serves the enrolled samples the matcher compares against.
type SampleSource interface {
	Samples() []match.Sample
}

// FrameSink receives frames while it is active, instead of the recognition
// step. The enrollment manager implements it.
type FrameSink interface {
	Active() bool
	HandleFrame(ctx context.Context, frame vision.Frame, now time.Time)
}

// Status is a point-in-time snapshot of the loop.
type Status struct {
	Running         bool      `json:"running"`
	DetectionActive bool      `json:"face_detection_active"`
	LastMotion      time.Time `json:"last_motion_time"`
	FramesProcessed uint64    `json:"frames_processed"`
	MotionDetected  uint64    `json:"motion_detected"`
	FacesDetected   uint64    `json:"faces_detected"`
	FacesRecognized uint64    `json:"faces_recognized"`
	QueueDropped    uint64    `json:"queue_dropped"`
}

// Counters returns the snapshot's counters keyed by name, for reports.
func (s Status) Counters() map[string]uint64 {
	return map[string]uint64{
		"frames_processed": s.FramesProcessed,
		"motion_detected":  s.MotionDetected,
		"faces_detected":   s.FacesDetected,
		"faces_recognized": s.FacesRecognized,
		"queue_dropped":    s.QueueDropped,
	}
}

// Pipeline drives one camera. Construct with New, run with Run.
type Pipeline struct {
	src       vision.Source
	gate      *gate.Gate
	matcher   *match.Matcher
	debouncer Debouncer
	queue     Enqueuer
	samples   SampleSource
	sink      FrameSink
	threshold float64
	interval  time.Duration
	now       func() time.Time
	log       logger.Logger

	running         atomic.Bool
	framesProcessed atomic.Uint64
	motionDetected  atomic.Uint64
	facesDetected   atomic.Uint64
	facesRecognized atomic.Uint64
	queueDropped    atomic.Uint64
}

// New wires a Pipeline. src, g, matcher, debouncer, queue and samples are
// required; the frame sink is optional.
func New(src vision.Source, g *gate.Gate, matcher *match.Matcher, debouncer Debouncer, queue Enqueuer, samples SampleSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		src:       src,
		gate:      g,
		matcher:   matcher,
		debouncer: debouncer,
		queue:     queue,
		samples:   samples,
		threshold: DefaultConfidenceThreshold,
		interval:  DefaultFrameInterval,
		now:       time.Now,
		log:       logger.Named("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the frame loop until ctx is cancelled or the source closes.
func (p *Pipeline) Run(ctx context.Context) error {
	p.running.Store(true)
	defer func() {
		p.running.Store(false)
		metrics.UpdateDetectionActive(false)
	}()

	p.log.Info(ctx, "capture loop started", logger.Duration("frame_interval", p.interval))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info(ctx, "capture loop stopped")
			return nil
		case <-ticker.C:
		}

		if err := p.step(ctx); err != nil {
			if errors.Is(err, vision.ErrClosed) {
				p.log.Info(ctx, "capture source closed")
				return nil
			}
			p.log.Warn(ctx, "frame skipped", logger.Error(err))
		}
	}
}

// Running reports whether the loop is executing.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Status snapshots the loop state for the API and the live feed.
func (p *Pipeline) Status() Status {
	return Status{
		Running:         p.running.Load(),
		DetectionActive: p.gate.Active(),
		LastMotion:      p.gate.LastMotion(),
		FramesProcessed: p.framesProcessed.Load(),
		MotionDetected:  p.motionDetected.Load(),
		FacesDetected:   p.facesDetected.Load(),
		FacesRecognized: p.facesRecognized.Load(),
		QueueDropped:    p.queueDropped.Load(),
	}
}

func (p *Pipeline) step(ctx context.Context) error {
	start := time.Now()
	frame, motion, err := p.src.Capture()
	if err != nil {
		return err
	}
	defer frame.Close()
	defer func() {
		metrics.RecordFrameLatency(float64(time.Since(start).Milliseconds()))
	}()

	p.framesProcessed.Add(1)
	metrics.RecordFrameProcessed()

	now := p.now()
	if motion {
		p.motionDetected.Add(1)
		metrics.RecordMotionDetected()
	}
	active := p.gate.Observe(motion, now)
	metrics.UpdateDetectionActive(active)

	// An enrollment session takes the frame instead of recognition, so the
	// person standing in front of the camera is not marked present while
	// being enrolled.
	if p.sink != nil && p.sink.Active() {
		p.sink.HandleFrame(ctx, frame, now)
		return nil
	}

	if !active {
		return nil
	}
	samples := p.samples.Samples()
	if len(samples) == 0 {
		return nil
	}

	obs, err := frame.Observations()
	if err != nil {
		return err
	}
	if len(obs) > 0 {
		p.facesDetected.Add(uint64(len(obs)))
		metrics.RecordFacesDetected(len(obs))
	}

	for _, ob := range obs {
		p.handleMatch(ctx, ob, samples, now)
	}
	return nil
}

func (p *Pipeline) handleMatch(ctx context.Context, ob model.Observation, samples []match.Sample, now time.Time) {
	mt := p.matcher.Match(ob.Encoding, samples)
	if !mt.Known() {
		return
	}
	p.facesRecognized.Add(1)
	metrics.RecordFaceRecognized()

	if mt.Confidence <= p.threshold {
		p.log.Debug(ctx, "match below confidence threshold",
			logger.String("name", mt.Name),
			logger.Float64("confidence", mt.Confidence))
		return
	}
	if !p.debouncer.AllowAndMark(ctx, mt.Name, now) {
		metrics.RecordRecognitionSuppressed()
		return
	}

	loc := ob.Location
	ev := model.RecognitionEvent{
		EventID:    model.NewEventID(),
		Name:       mt.Name,
		Confidence: mt.Confidence,
		CapturedAt: now,
		Location:   &loc,
		Source:     model.SourceCamera,
	}
	if !p.queue.Enqueue(ctx, ev) {
		p.debouncer.Release(ctx, mt.Name)
		p.queueDropped.Add(1)
		metrics.RecordQueueDropped()
		p.log.Warn(ctx, "commit queue full, recognition dropped",
			logger.String("name", mt.Name))
	}
}
