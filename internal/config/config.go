// Package config defines service configuration and its loading order:
// defaults, then an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"time"
)

// Config contains the full process configuration.
type Config struct {
	Logging     Logging     `koanf:"logging"`
	API         API         `koanf:"api"`
	Camera      Camera      `koanf:"camera"`
	Motion      Motion      `koanf:"motion"`
	Recognition Recognition `koanf:"recognition"`
	Enrollment  Enrollment  `koanf:"enrollment"`
	Storage     Storage     `koanf:"storage"`
	Analytics   Analytics   `koanf:"analytics"`
	Tracing     Tracing     `koanf:"tracing"`
}

// Logging controls the global logger.
type Logging struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is "text" or "json".
	Format string `koanf:"format"`
}

// API configures the HTTP surface.
type API struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// ReadTimeout, WriteTimeout and IdleTimeout bound the HTTP server.
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// OperatorPasswordHash is a bcrypt hash of the operator password.
	// Empty disables authentication on mutating endpoints.
	OperatorPasswordHash string `koanf:"operator_password_hash"`
	// JWTSecret signs operator tokens. Required when auth is enabled.
	JWTSecret string `koanf:"jwt_secret"`
	// TokenTTL is the operator token lifetime.
	TokenTTL time.Duration `koanf:"token_ttl"`
	// LiveRefreshInterval is the push period of the live status feed.
	LiveRefreshInterval time.Duration `koanf:"live_refresh_interval"`
	// MaxEventLimit caps GET /events?limit.
	MaxEventLimit int `koanf:"max_event_limit"`
	// CORSOrigins lists allowed origins for the dashboard.
	CORSOrigins []string `koanf:"cors_origins"`
}

// Camera configures the capture device and the frame loop.
type Camera struct {
	// Enabled turns the capture pipeline on. Off, the service still serves
	// the API (enrollment by upload, external ingest, reports).
	Enabled bool `koanf:"enabled"`
	// Device is the capture device id.
	Device int `koanf:"device"`
	// FrameInterval is the target delay between frames.
	FrameInterval time.Duration `koanf:"frame_interval"`
}

// Motion configures frame-differencing motion detection and the gate.
type Motion struct {
	// MinContourArea is the minimum contour area in pixels that counts
	// as motion.
	MinContourArea float64 `koanf:"min_contour_area"`
	// Threshold is the binary threshold applied to the frame difference.
	Threshold float64 `koanf:"threshold"`
	// Cooldown keeps recognition active this long past the last motion.
	Cooldown time.Duration `koanf:"cooldown"`
}

// Recognition configures matching and the debounce window.
type Recognition struct {
	// Tolerance is the maximum encoding distance accepted as a match.
	Tolerance float64 `koanf:"tolerance"`
	// ConfidenceThreshold is the minimum confidence that may produce an
	// attendance write.
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`
	// DebounceWindow is the minimum interval between accepted recognitions
	// of the same person.
	DebounceWindow time.Duration `koanf:"debounce_window"`
	// QueueSize bounds the commit queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of commit workers.
	WorkerCount int `koanf:"worker_count"`
	// ModelDir locates the face detection and encoding models.
	ModelDir string `koanf:"model_dir"`
}

// Enrollment configures sample capture sessions.
type Enrollment struct {
	// SampleCount is the number of samples captured per session.
	SampleCount int `koanf:"sample_count"`
	// SampleInterval is the delay between captured samples.
	SampleInterval time.Duration `koanf:"sample_interval"`
	// MinQuality is the minimum accepted sample quality in [0, 1].
	MinQuality float64 `koanf:"min_quality"`
	// MinFaceSize and MaxFaceSize bound the accepted face side length.
	MinFaceSize int `koanf:"min_face_size"`
	MaxFaceSize int `koanf:"max_face_size"`
}

// Storage selects and configures the store driver.
type Storage struct {
	// Driver is one of "mongo", "postgres", "memory".
	Driver string `koanf:"driver"`
	// URI is the connection string of the selected driver.
	URI string `koanf:"uri"`
	// Database is the database name (mongo).
	Database string `koanf:"database"`
	// ConnectTimeout bounds the initial connection attempt.
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// Analytics configures report generation.
type Analytics struct {
	// Engine is "aggregate", "memory" or "auto". Auto tries the store-side
	// aggregation first and falls back to in-process computation.
	Engine string `koanf:"engine"`
	// DefaultWindowDays is the report window when the caller gives none.
	DefaultWindowDays int `koanf:"default_window_days"`
}

// Tracing configures optional OpenTelemetry export.
type Tracing struct {
	// Endpoint is the OTLP gRPC endpoint. Empty disables export.
	Endpoint string `koanf:"endpoint"`
	// Insecure disables TLS on the exporter connection.
	Insecure bool `koanf:"insecure"`
}

// Storage driver names.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Analytics engine modes.
const (
	EngineAggregate = "aggregate"
	EngineMemory    = "memory"
	EngineAuto      = "auto"
)

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		API: API{
			Addr:                ":8080",
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        30 * time.Second,
			IdleTimeout:         60 * time.Second,
			ShutdownTimeout:     15 * time.Second,
			TokenTTL:            time.Hour,
			LiveRefreshInterval: 5 * time.Second,
			MaxEventLimit:       200,
			CORSOrigins:         []string{"*"},
		},
		Camera: Camera{
			Enabled:       false,
			Device:        0,
			FrameInterval: 33 * time.Millisecond,
		},
		Motion: Motion{
			MinContourArea: 500,
			Threshold:      25,
			Cooldown:       3 * time.Second,
		},
		Recognition: Recognition{
			Tolerance:           0.6,
			ConfidenceThreshold: 0.6,
			DebounceWindow:      30 * time.Second,
			QueueSize:           64,
			WorkerCount:         1,
			ModelDir:            "models",
		},
		Enrollment: Enrollment{
			SampleCount:    5,
			SampleInterval: 2 * time.Second,
			MinQuality:     0.2,
			MinFaceSize:    60,
			MaxFaceSize:    400,
		},
		Storage: Storage{
			Driver:         DriverMongo,
			URI:            "mongodb://localhost:27017",
			Database:       "rollcall",
			ConnectTimeout: 10 * time.Second,
		},
		Analytics: Analytics{
			Engine:            EngineAuto,
			DefaultWindowDays: 30,
		},
		Tracing: Tracing{},
	}
}

// Validate checks cross-field constraints after loading.
func (c *Config) Validate() error {
	if c.API.Addr == "" {
		return fmt.Errorf("%w: api.addr must not be empty", ErrInvalidConfig)
	}
	switch c.Storage.Driver {
	case DriverMongo, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	switch c.Analytics.Engine {
	case EngineAggregate, EngineMemory, EngineAuto:
	default:
		return fmt.Errorf("%w: unknown analytics engine %q", ErrInvalidConfig, c.Analytics.Engine)
	}
	if c.Recognition.Tolerance <= 0 || c.Recognition.Tolerance > 1 {
		return fmt.Errorf("%w: recognition.tolerance must be in (0, 1]", ErrInvalidConfig)
	}
	if c.Recognition.ConfidenceThreshold < 0 || c.Recognition.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: recognition.confidence_threshold must be in [0, 1]", ErrInvalidConfig)
	}
	if c.Enrollment.SampleCount < 1 {
		return fmt.Errorf("%w: enrollment.sample_count must be positive", ErrInvalidConfig)
	}
	if c.API.OperatorPasswordHash != "" && c.API.JWTSecret == "" {
		return fmt.Errorf("%w: api.jwt_secret is required when auth is enabled", ErrInvalidConfig)
	}
	return nil
}

// AuthEnabled reports whether operator authentication is configured.
func (c *Config) AuthEnabled() bool {
	return c.API.OperatorPasswordHash != ""
}
