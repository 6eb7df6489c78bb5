package simulate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rollcall/pkg/logger"
)

// Run loads the scenario, submits every sighting and verifies the resulting
// attendance through the API.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Named("simulate")

	sc := DefaultScenario()
	if cfg.ScenarioFile != "" {
		var err error
		if sc, err = LoadScenario(cfg.ScenarioFile); err != nil {
			return nil, err
		}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	sightings := sc.expand()
	stats := &Stats{EventsGenerated: len(sightings)}
	log.Info(ctx, "scenario loaded",
		logger.Int("people", len(sc.People)),
		logger.Int("sightings", len(sightings)),
		logger.Int("workers", cfg.Workers),
	)

	start := time.Now()
	c := newClient(cfg.BaseURL, cfg.Timeout)

	var (
		submitted     atomic.Int64
		accepted      atomic.Int64
		suppressed    atomic.Int64
		lowConfidence atomic.Int64
		backpressure  atomic.Int64
		failed        atomic.Int64
	)

	feed := make(chan sighting)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range feed {
				res := c.submit(ctx, s)
				submitted.Add(1)
				switch res {
				case outcomeAccepted:
					accepted.Add(1)
				case outcomeSuppressed:
					suppressed.Add(1)
				case outcomeLowConfidence:
					lowConfidence.Add(1)
				case outcomeBackpressure:
					backpressure.Add(1)
				default:
					failed.Add(1)
				}
				if cfg.Verbose {
					log.Info(ctx, "sighting submitted",
						logger.String("name", s.Name),
						logger.Float64("confidence", s.Confidence),
						logger.String("outcome", string(res)),
					)
				}
				if sc.Spacing > 0 {
					select {
					case <-ctx.Done():
						return
					case <-time.After(sc.Spacing):
					}
				}
			}
		}()
	}

	for _, s := range sightings {
		select {
		case <-ctx.Done():
			close(feed)
			wg.Wait()
			return stats, ctx.Err()
		case feed <- s:
		}
	}
	close(feed)
	wg.Wait()

	stats.EventsSubmitted = int(submitted.Load())
	stats.Accepted = int(accepted.Load())
	stats.Suppressed = int(suppressed.Load())
	stats.LowConfidence = int(lowConfidence.Load())
	stats.Backpressure = int(backpressure.Load())
	stats.Failed = int(failed.Load())
	stats.Duration = time.Since(start)

	if count, err := c.todayAttendance(ctx); err != nil {
		log.Warn(ctx, "attendance verification failed", logger.Error(err))
	} else {
		stats.AttendanceSeen = count
	}

	log.Info(ctx, "simulation finished",
		logger.Int("submitted", stats.EventsSubmitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("suppressed", stats.Suppressed),
		logger.Int("low_confidence", stats.LowConfidence),
		logger.Int("backpressure", stats.Backpressure),
		logger.Int("failed", stats.Failed),
		logger.Int("attendance_seen", stats.AttendanceSeen),
		logger.Duration("took", stats.Duration),
	)
	return stats, nil
}
