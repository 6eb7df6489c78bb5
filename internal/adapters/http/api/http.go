// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/okian/rollcall/internal/adapters/store"
	"github.com/okian/rollcall/internal/analytics"
	"github.com/okian/rollcall/internal/domain/types"
	"github.com/okian/rollcall/internal/enroll"
)

// Defaults for optional Config fields.
const (
	DefaultTokenTTL            = time.Hour
	DefaultLiveRefreshInterval = 5 * time.Second
	DefaultEventLimit          = 10
	DefaultMaxEventLimit       = 200
)

// IngestStatus is the outcome of an external recognition ingest.
type IngestStatus string

// Ingest outcomes.
const (
	IngestAccepted      IngestStatus = "accepted"
	IngestSuppressed    IngestStatus = "suppressed"
	IngestLowConfidence IngestStatus = "low_confidence"
	IngestQueueFull     IngestStatus = "queue_full"
)

// IngestRequest carries one external recognition into the commit path.
type IngestRequest struct {
	Name       string
	Confidence float64
	CapturedAt time.Time
	Location   *types.Location
	// Source is "api" or "simulated"; empty means "api".
	Source string
}

// IngestResult reports what the commit path did with an ingest.
type IngestResult struct {
	Status  IngestStatus
	EventID string
}

// StatusSnapshot is the read model served by /status and the live feed.
type StatusSnapshot struct {
	Running         bool              `json:"running"`
	DetectionActive bool              `json:"face_detection_active"`
	LastMotion      time.Time         `json:"last_motion_time"`
	EnrolledPeople  int               `json:"enrolled_people"`
	TodayAttendance int               `json:"today_attendance"`
	Counters        map[string]uint64 `json:"counters"`
	UptimeSeconds   float64           `json:"uptime_seconds"`
}

// LiveUpdate is one message on the live feed: a periodic status snapshot or
// a committed recognition.
type LiveUpdate struct {
	Type       string                `json:"type"`
	Status     *StatusSnapshot       `json:"status,omitempty"`
	Event      *RecognitionEventView `json:"event,omitempty"`
	Attendance bool                  `json:"attendance_marked,omitempty"`
}

// RecognitionEventView is the wire shape of a recognition on the live feed.
type RecognitionEventView struct {
	EventID    string    `json:"event_id"`
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"`
	CapturedAt time.Time `json:"captured_at"`
	Source     string    `json:"source"`
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Store exposes the persistence surface for read and directory paths.
	Store() store.Store

	// Enrollment exposes the sample library and session manager.
	Enrollment() *enroll.Manager

	// Reports exposes the analytics engines.
	Reports() *analytics.Service

	// Ingest pushes an external recognition through the debounce-then-commit
	// path the camera uses.
	Ingest(ctx context.Context, req IngestRequest) IngestResult

	// Snapshot returns the current pipeline and attendance state.
	Snapshot(ctx context.Context) StatusSnapshot

	// Subscribe registers a live feed consumer. The cancel func must be
	// called when the consumer goes away.
	Subscribe() (<-chan LiveUpdate, func())
}

// Config carries the HTTP-surface settings the handlers need.
type Config struct {
	// OperatorPasswordHash is a bcrypt hash; empty disables auth.
	OperatorPasswordHash string
	// JWTSecret signs operator tokens.
	JWTSecret string
	// TokenTTL is the operator token lifetime.
	TokenTTL time.Duration
	// LiveRefreshInterval is the push period of the live feed.
	LiveRefreshInterval time.Duration
	// MaxEventLimit caps GET /events?limit.
	MaxEventLimit int
	// CORSOrigins lists allowed origins.
	CORSOrigins []string
}

// Server wires HTTP routes for the attendance API.
type Server struct {
	cfg        Config
	health     *HealthHandler
	auth       *AuthHandler
	status     *StatusHandler
	live       *LiveHandler
	employees  *EmployeesHandler
	enrollment *EnrollmentHandler
	attendance *AttendanceHandler
	events     *EventsHandler
	reports    *AnalyticsHandler
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies, cfg Config) *Server {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.LiveRefreshInterval <= 0 {
		cfg.LiveRefreshInterval = DefaultLiveRefreshInterval
	}
	if cfg.MaxEventLimit <= 0 {
		cfg.MaxEventLimit = DefaultMaxEventLimit
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	return &Server{
		cfg:        cfg,
		health:     NewHealthHandler(deps),
		auth:       NewAuthHandler(cfg),
		status:     NewStatusHandler(deps),
		live:       NewLiveHandler(deps, cfg.LiveRefreshInterval),
		employees:  NewEmployeesHandler(deps),
		enrollment: NewEnrollmentHandler(deps),
		attendance: NewAttendanceHandler(deps),
		events:     NewEventsHandler(deps, cfg.MaxEventLimit),
		reports:    NewAnalyticsHandler(deps),
	}
}

// Register attaches all API routes to r. Mutating routes go through the
// auth guard, which is a no-op when no operator password is configured.
func (s *Server) Register(r chi.Router) {
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	guard := s.auth.Require

	r.Get("/healthz", MetricsMiddleware(s.health.HandleHealth, "healthz"))
	r.Get("/metrics", s.health.HandleMetrics)
	r.Post("/auth/login", MetricsMiddleware(s.auth.HandleLogin, "auth_login"))
	r.Get("/status", MetricsMiddleware(s.status.HandleStatus, "status"))
	// The live feed hijacks the connection; it stays outside the metrics
	// wrapper.
	r.Get("/live", s.live.HandleLive)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/employees", MetricsMiddleware(s.employees.HandleList, "employees_list"))
		r.Post("/employees", guard(MetricsMiddleware(s.employees.HandleCreate, "employees_create")))
		r.Get("/employees/{id}", MetricsMiddleware(s.employees.HandleGet, "employees_get"))
		r.Delete("/employees/{id}", guard(MetricsMiddleware(s.employees.HandleDeactivate, "employees_deactivate")))
		r.Post("/employees/{id}/face", guard(MetricsMiddleware(s.employees.HandleLinkFace, "employees_link_face")))

		r.Post("/enrollment/sessions", guard(MetricsMiddleware(s.enrollment.HandleStartSession, "enrollment_start")))
		r.Get("/enrollment/sessions/current", MetricsMiddleware(s.enrollment.HandleSessionStatus, "enrollment_status"))
		r.Delete("/enrollment/sessions/current", guard(MetricsMiddleware(s.enrollment.HandleCancelSession, "enrollment_cancel")))

		r.Get("/faces/names", MetricsMiddleware(s.enrollment.HandleNames, "faces_names"))
		r.Post("/faces", guard(MetricsMiddleware(s.enrollment.HandleAddSample, "faces_add")))
		r.Get("/faces/export", MetricsMiddleware(s.enrollment.HandleExport, "faces_export"))
		r.Post("/faces/import", guard(MetricsMiddleware(s.enrollment.HandleImport, "faces_import")))
		r.Delete("/faces/{name}", guard(MetricsMiddleware(s.enrollment.HandleDeleteFace, "faces_delete")))

		r.Get("/attendance/today", MetricsMiddleware(s.attendance.HandleToday, "attendance_today"))
		r.Get("/attendance/history/{id}", MetricsMiddleware(s.attendance.HandleHistory, "attendance_history"))
		r.Get("/attendance/range", MetricsMiddleware(s.attendance.HandleRange, "attendance_range"))

		r.Get("/events", MetricsMiddleware(s.events.HandleRecent, "events_recent"))
		r.Post("/events", guard(MetricsMiddleware(s.events.HandleIngest, "events_ingest")))

		r.Get("/analytics/peak-hours", MetricsMiddleware(s.reports.HandlePeakHours, "analytics_peak_hours"))
		r.Get("/analytics/daily-patterns", MetricsMiddleware(s.reports.HandleDailyPatterns, "analytics_daily_patterns"))
		r.Get("/analytics/performance", MetricsMiddleware(s.reports.HandlePerformance, "analytics_performance"))
		r.Get("/analytics/accuracy", MetricsMiddleware(s.reports.HandleAccuracy, "analytics_accuracy"))
		r.Get("/analytics/realtime", MetricsMiddleware(s.reports.HandleRealtime, "analytics_realtime"))
		r.Get("/analytics/comprehensive", MetricsMiddleware(s.reports.HandleComprehensive, "analytics_comprehensive"))
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
