// Package simulate drives recognition traffic against a running service,
// posting ingest requests from a YAML scenario and verifying the resulting
// attendance.
package simulate

import "time"

// Config holds the simulator settings.
type Config struct {
	// BaseURL is the root of the target service.
	BaseURL string
	// ScenarioFile is a YAML scenario; empty uses the built-in default.
	ScenarioFile string
	// Workers is the number of concurrent submitters.
	Workers int
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// Verbose enables per-request logging.
	Verbose bool
}

// Stats accumulates the simulation outcome.
type Stats struct {
	EventsGenerated int
	EventsSubmitted int
	Accepted        int
	Suppressed      int
	LowConfidence   int
	Backpressure    int
	Failed          int
	AttendanceSeen  int
	Duration        time.Duration
}
