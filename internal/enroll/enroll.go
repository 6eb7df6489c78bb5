// Package enroll owns the face sample library and server-side enrollment
// sessions. The library is an in-memory mirror of the face store so the
// matcher never touches storage on the frame path.
package enroll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/rollcall/internal/domain/match"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/quality"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/internal/vision"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

// Session defaults.
const (
	DefaultSampleCount    = 5
	DefaultSampleInterval = 2 * time.Second
)

// Store is the slice of the face store the manager needs.
type Store interface {
	AddSample(ctx context.Context, s model.FaceSample) error
	AllSamples(ctx context.Context) ([]model.FaceSample, error)
	DeleteByName(ctx context.Context, name string) (int, error)
}

// Progress reports the state of the running enrollment session.
type Progress struct {
	Name      string    `json:"name"`
	Captured  int       `json:"captured"`
	Target    int       `json:"target"`
	StartedAt time.Time `json:"started_at"`
}

type session struct {
	name       string
	target     int
	captured   int
	startedAt  time.Time
	lastSample time.Time
}

// Manager runs enrollment sessions and serves enrolled samples to the
// matcher. At most one session runs at a time.
type Manager struct {
	store    Store
	scorer   *quality.Scorer
	count    int
	interval time.Duration
	log      logger.Logger

	mu      sync.RWMutex
	samples []match.Sample
	counts  map[string]int
	session *session
}

// New creates a Manager with configuration options.
func New(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		scorer:   quality.New(),
		count:    DefaultSampleCount,
		interval: DefaultSampleInterval,
		log:      logger.Named("enroll"),
		counts:   map[string]int{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load fills the library from the store. Call it once at startup.
func (m *Manager) Load(ctx context.Context) error {
	all, err := m.store.AllSamples(ctx)
	if err != nil {
		return fmt.Errorf("load face samples: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = make([]match.Sample, 0, len(all))
	m.counts = map[string]int{}
	for _, s := range all {
		m.samples = append(m.samples, match.Sample{Name: s.Name, Encoding: s.Encoding})
		m.counts[s.Name]++
	}
	metrics.UpdateEnrolledPeople(len(m.counts))
	return nil
}

// Samples returns the current library. The slice is replaced, never
// mutated, so callers may hold it across frames.
func (m *Manager) Samples() []match.Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.samples
}

// HasSamples reports whether anyone is enrolled.
func (m *Manager) HasSamples() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.samples) > 0
}

// EnrolledCount returns the number of distinct enrolled people.
func (m *Manager) EnrolledCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.counts)
}

// Start begins an enrollment session for name.
func (m *Manager) Start(name string, now time.Time) (Progress, error) {
	if name == "" {
		return Progress{}, ErrEmptyName
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return Progress{}, ErrSessionActive
	}
	m.session = &session{name: name, target: m.count, startedAt: now}
	m.log.Info(context.Background(), "enrollment session started",
		logger.String("name", name), logger.Int("target", m.count))
	return m.progressLocked(), nil
}

// Progress reports the running session.
func (m *Manager) Progress() (Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Progress{}, ErrNoSession
	}
	return m.progressLocked(), nil
}

// Cancel aborts the running session.
func (m *Manager) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ErrNoSession
	}
	m.log.Info(context.Background(), "enrollment session cancelled",
		logger.String("name", m.session.name),
		logger.Int("captured", m.session.captured))
	m.session = nil
	return nil
}

// Active reports whether a session is running. The capture loop checks this
// before handing over a frame.
func (m *Manager) Active() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil
}

// HandleFrame offers one frame to the running session. The frame counts
// only when the sample interval elapsed, exactly one face is visible and
// the crop passes the quality gate. Detection and the store write run
// outside the lock so readers are not blocked.
func (m *Manager) HandleFrame(ctx context.Context, frame vision.Frame, now time.Time) {
	m.mu.RLock()
	s := m.session
	due := s != nil && now.Sub(s.lastSample) >= m.interval
	name := ""
	if s != nil {
		name = s.name
	}
	m.mu.RUnlock()
	if !due {
		return
	}

	obs, err := frame.Observations()
	if err != nil {
		m.log.Error(ctx, "enrollment detection failed", logger.Error(err))
		return
	}
	if len(obs) != 1 {
		m.log.Debug(ctx, "enrollment frame skipped",
			logger.Int("faces", len(obs)))
		return
	}

	q, ok := m.scorer.Acceptable(frame.Measure(obs[0].Location))
	if !ok {
		m.log.Debug(ctx, "enrollment sample below quality gate",
			logger.Float64("quality", q))
		return
	}

	sample := model.FaceSample{
		SampleID:  model.NewSampleID(),
		Name:      name,
		Encoding:  obs[0].Encoding,
		Quality:   q,
		Source:    model.SampleSourceEnrollment,
		CreatedAt: now,
	}
	if err := m.store.AddSample(ctx, sample); err != nil {
		m.log.Error(ctx, "enrollment sample store failed", logger.Error(err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLocked(sample)
	if m.session == nil || m.session.name != name {
		// Session ended while we were detecting; the sample still counts
		// as library material.
		return
	}
	m.session.captured++
	m.session.lastSample = now
	m.log.Info(ctx, "enrollment sample captured",
		logger.String("name", name),
		logger.Int("captured", m.session.captured),
		logger.Int("target", m.session.target),
		logger.Float64("quality", q))
	if m.session.captured >= m.session.target {
		m.log.Info(ctx, "enrollment session complete", logger.String("name", name))
		m.session = nil
	}
}

// AddSample stores a caller-supplied encoding under name.
func (m *Manager) AddSample(ctx context.Context, name string, enc types.Encoding, q float64) (model.FaceSample, error) {
	if name == "" {
		return model.FaceSample{}, ErrEmptyName
	}
	if len(enc) != types.EncodingSize {
		return model.FaceSample{}, fmt.Errorf("%w: got %d, want %d", ErrBadEncoding, len(enc), types.EncodingSize)
	}

	sample := model.FaceSample{
		SampleID:  model.NewSampleID(),
		Name:      name,
		Encoding:  enc,
		Quality:   q,
		Source:    model.SampleSourceImport,
		CreatedAt: time.Now(),
	}
	if err := m.store.AddSample(ctx, sample); err != nil {
		return model.FaceSample{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLocked(sample)
	return sample, nil
}

// Export returns the whole face store for backup.
func (m *Manager) Export(ctx context.Context) ([]model.FaceSample, error) {
	return m.store.AllSamples(ctx)
}

// Import adds a batch of exported samples and returns how many were
// accepted. Samples with a malformed encoding are skipped.
func (m *Manager) Import(ctx context.Context, samples []model.FaceSample) (int, error) {
	added := 0
	for _, s := range samples {
		if s.Name == "" || len(s.Encoding) != types.EncodingSize {
			m.log.Warn(ctx, "import sample skipped",
				logger.String("name", s.Name),
				logger.Int("encoding_len", len(s.Encoding)))
			continue
		}
		if s.SampleID == "" {
			s.SampleID = model.NewSampleID()
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now()
		}
		s.Source = model.SampleSourceImport
		if err := m.store.AddSample(ctx, s); err != nil {
			return added, fmt.Errorf("import sample for %q: %w", s.Name, err)
		}

		m.mu.Lock()
		m.addLocked(s)
		m.mu.Unlock()
		added++
	}
	return added, nil
}

// Remove deletes every sample enrolled under name and returns how many were
// removed.
func (m *Manager) Remove(ctx context.Context, name string) (int, error) {
	n, err := m.store.DeleteByName(ctx, name)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]match.Sample, 0, len(m.samples))
	for _, s := range m.samples {
		if s.Name != name {
			kept = append(kept, s)
		}
	}
	m.samples = kept
	delete(m.counts, name)
	metrics.UpdateEnrolledPeople(len(m.counts))
	return n, nil
}

// addLocked appends to the copy-on-write library. Callers hold m.mu.
func (m *Manager) addLocked(s model.FaceSample) {
	next := make([]match.Sample, len(m.samples), len(m.samples)+1)
	copy(next, m.samples)
	m.samples = append(next, match.Sample{Name: s.Name, Encoding: s.Encoding})
	m.counts[s.Name]++
	metrics.UpdateEnrolledPeople(len(m.counts))
}

func (m *Manager) progressLocked() Progress {
	return Progress{
		Name:      m.session.name,
		Captured:  m.session.captured,
		Target:    m.session.target,
		StartedAt: m.session.startedAt,
	}
}
