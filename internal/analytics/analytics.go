package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/rollcall/internal/adapters/store"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/pkg/logger"
)

// DefaultWindowDays is the report window when the caller gives none.
const DefaultWindowDays = 30

const realtimeWindowDays = 7

// Aggregator is the store-side report computation surface. Drivers that can
// push aggregation into the database implement it; the memory store does not.
type Aggregator interface {
	PeakHours(ctx context.Context, since time.Time) ([]HourStat, error)
	DailyPatterns(ctx context.Context, from, to string) ([]WeekdayStat, error)
	Performance(ctx context.Context, from, to string) ([]PerformanceRow, error)
	Accuracy(ctx context.Context, since time.Time) ([]WeekStat, error)
	Realtime(ctx context.Context, since time.Time) ([]NameWeekdayStat, error)
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithEngine sets the engine mode: aggregate, memory or auto.
func WithEngine(mode string) Option {
	return func(s *Service) {
		switch mode {
		case EngineAggregate, EngineMemory, EngineAuto:
			s.mode = mode
		}
	}
}

// WithWindowDays sets the default report window.
func WithWindowDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.windowDays = days
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service produces the five reports and the comprehensive bundle.
type Service struct {
	store      store.Store
	aggregator Aggregator
	mode       string
	windowDays int
	now        func() time.Time
	logger     logger.Logger
}

// New creates a report service over a store. When the store also implements
// Aggregator, mode auto prefers the store-side computation.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:      st,
		mode:       EngineAuto,
		windowDays: DefaultWindowDays,
		now:        time.Now,
		logger:     logger.Get().Named("analytics"),
	}
	if agg, ok := st.(Aggregator); ok {
		s.aggregator = agg
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run resolves the engine mode: aggregate only, memory only, or aggregate
// with a logged fallback to memory.
func run[T any](ctx context.Context, s *Service, name string, agg func(context.Context) (T, error), mem func(context.Context) (T, error)) (T, string, error) {
	switch s.mode {
	case EngineMemory:
		out, err := mem(ctx)
		return out, EngineMemory, err
	case EngineAggregate:
		if s.aggregator == nil {
			var zero T
			return zero, "", fmt.Errorf("%w: store has no aggregation support", ErrNoAggregator)
		}
		out, err := agg(ctx)
		return out, EngineAggregate, err
	default:
		if s.aggregator != nil {
			out, err := agg(ctx)
			if err == nil {
				return out, EngineAggregate, nil
			}
			s.logger.Warn(ctx, "aggregate engine failed, falling back to memory",
				logger.String("report", name),
				logger.Error(err),
			)
		}
		out, err := mem(ctx)
		return out, EngineMemory, err
	}
}

func (s *Service) meta(engine string, days int) Meta {
	return Meta{Engine: engine, GeneratedAt: s.now(), WindowDays: days}
}

func (s *Service) window(days int) (int, time.Time, string, string) {
	if days <= 0 {
		days = s.windowDays
	}
	now := s.now()
	since := now.AddDate(0, 0, -days)
	return days, since, types.DateOf(since), types.DateOf(now)
}

// PeakHours groups recognition events of the window by hour of day.
func (s *Service) PeakHours(ctx context.Context, days int) (PeakHoursReport, error) {
	days, since, _, _ := s.window(days)

	hours, engine, err := run(ctx, s, "peak-hours",
		func(ctx context.Context) ([]HourStat, error) { return s.aggregator.PeakHours(ctx, since) },
		func(ctx context.Context) ([]HourStat, error) { return s.memPeakHours(ctx, since) },
	)
	if err != nil {
		return PeakHoursReport{}, fmt.Errorf("peak hours report: %w", err)
	}

	report := PeakHoursReport{Meta: s.meta(engine, days), Hours: hours}
	for i := range hours {
		if report.BusiestHour == nil || hours[i].Count > report.BusiestHour.Count {
			report.BusiestHour = &hours[i]
		}
	}
	return report, nil
}

// DailyPatterns groups attendance of the window by weekday.
func (s *Service) DailyPatterns(ctx context.Context, days int) (DailyPatternsReport, error) {
	days, _, from, to := s.window(days)

	weekdays, engine, err := run(ctx, s, "daily-patterns",
		func(ctx context.Context) ([]WeekdayStat, error) { return s.aggregator.DailyPatterns(ctx, from, to) },
		func(ctx context.Context) ([]WeekdayStat, error) { return s.memDailyPatterns(ctx, from, to) },
	)
	if err != nil {
		return DailyPatternsReport{}, fmt.Errorf("daily patterns report: %w", err)
	}
	return DailyPatternsReport{Meta: s.meta(engine, days), Weekdays: weekdays}, nil
}

// Performance ranks employees by punctuality over the window.
func (s *Service) Performance(ctx context.Context, days int) (PerformanceReport, error) {
	days, _, from, to := s.window(days)

	rows, engine, err := run(ctx, s, "performance",
		func(ctx context.Context) ([]PerformanceRow, error) { return s.aggregator.Performance(ctx, from, to) },
		func(ctx context.Context) ([]PerformanceRow, error) { return s.memPerformance(ctx, from, to) },
	)
	if err != nil {
		return PerformanceReport{}, fmt.Errorf("performance report: %w", err)
	}
	return PerformanceReport{Meta: s.meta(engine, days), Employees: rows}, nil
}

// Accuracy tracks recognition confidence by ISO week over the window.
func (s *Service) Accuracy(ctx context.Context, days int) (AccuracyReport, error) {
	days, since, _, _ := s.window(days)

	weeks, engine, err := run(ctx, s, "accuracy",
		func(ctx context.Context) ([]WeekStat, error) { return s.aggregator.Accuracy(ctx, since) },
		func(ctx context.Context) ([]WeekStat, error) { return s.memAccuracy(ctx, since) },
	)
	if err != nil {
		return AccuracyReport{}, fmt.Errorf("accuracy report: %w", err)
	}
	return AccuracyReport{Meta: s.meta(engine, days), Weeks: weeks}, nil
}

// Realtime covers the last seven days of recognitions by name and weekday.
func (s *Service) Realtime(ctx context.Context) (RealtimeReport, error) {
	now := s.now()
	since := now.AddDate(0, 0, -realtimeWindowDays)

	rows, engine, err := run(ctx, s, "realtime",
		func(ctx context.Context) ([]NameWeekdayStat, error) { return s.aggregator.Realtime(ctx, since) },
		func(ctx context.Context) ([]NameWeekdayStat, error) { return s.memRealtime(ctx, since) },
	)
	if err != nil {
		return RealtimeReport{}, fmt.Errorf("realtime report: %w", err)
	}

	report := RealtimeReport{Meta: s.meta(engine, realtimeWindowDays), ByNameWeekday: rows}

	// Today's totals always come from the raw log; they are cheap.
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	events, err := s.store.EventsSince(ctx, today)
	if err != nil {
		return RealtimeReport{}, fmt.Errorf("realtime report: today's events: %w", err)
	}
	unique := make(map[string]struct{})
	for _, e := range events {
		unique[e.Name] = struct{}{}
	}
	report.TodayEvents = len(events)
	report.TodayUnique = len(unique)
	return report, nil
}

// Comprehensive bundles all five reports with runtime counters.
func (s *Service) Comprehensive(ctx context.Context, days int, rt RuntimeStats) (ComprehensiveReport, error) {
	if days <= 0 {
		days = s.windowDays
	}

	peak, err := s.PeakHours(ctx, days)
	if err != nil {
		return ComprehensiveReport{}, err
	}
	daily, err := s.DailyPatterns(ctx, days)
	if err != nil {
		return ComprehensiveReport{}, err
	}
	perf, err := s.Performance(ctx, days)
	if err != nil {
		return ComprehensiveReport{}, err
	}
	acc, err := s.Accuracy(ctx, days)
	if err != nil {
		return ComprehensiveReport{}, err
	}
	rtReport, err := s.Realtime(ctx)
	if err != nil {
		return ComprehensiveReport{}, err
	}

	return ComprehensiveReport{
		Meta:          s.meta(peak.Engine, days),
		PeakHours:     peak,
		DailyPatterns: daily,
		Performance:   perf,
		Accuracy:      acc,
		Realtime:      rtReport,
		Runtime:       rt,
	}, nil
}
