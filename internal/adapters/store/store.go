// Package store defines the persistence contract for employees, face
// samples, attendance and the recognition event log.
//
// Drivers live in subpackages: mongo (primary), postgres (alternative),
// memory (tests and single-binary runs). All drivers enforce the same
// invariants: employee ids and phones are unique, and at most one
// attendance record exists per (employee_id, date).
package store

import (
	"context"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

// Store is the full persistence surface used by the service.
type Store interface {
	EmployeeStore
	FaceStore
	AttendanceStore
	EventStore

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Migrate creates indexes, constraints and schema as needed.
	// Safe to call on every start.
	Migrate(ctx context.Context) error

	// Close releases the underlying handles.
	Close(ctx context.Context) error
}

// EmployeeStore manages the employee directory.
type EmployeeStore interface {
	// CreateEmployee inserts a new employee. Returns ErrDuplicateEmployee
	// when the id exists and ErrDuplicatePhone when the phone is taken.
	CreateEmployee(ctx context.Context, e model.Employee) error

	// GetEmployee returns the employee with the given id, or ErrNotFound.
	GetEmployee(ctx context.Context, employeeID string) (model.Employee, error)

	// FindEmployeeByName returns the first active employee with the exact
	// name, or ErrNotFound.
	FindEmployeeByName(ctx context.Context, name string) (model.Employee, error)

	// FindEmployeeByFaceName resolves a face-sample name to an employee:
	// a sample-to-employee link wins, an exact name match is the fallback.
	FindEmployeeByFaceName(ctx context.Context, name string) (model.Employee, error)

	// ListEmployees returns employees ordered by id, optionally only
	// active ones.
	ListEmployees(ctx context.Context, activeOnly bool) ([]model.Employee, error)

	// DeactivateEmployee clears is_active, or ErrNotFound.
	DeactivateEmployee(ctx context.Context, employeeID string) error

	// LinkFace associates a face-sample name with the employee and sets
	// face_enrolled, or ErrNotFound.
	LinkFace(ctx context.Context, employeeID, faceName string) error
}

// FaceStore accumulates enrolled face samples.
type FaceStore interface {
	// AddSample appends one face sample.
	AddSample(ctx context.Context, s model.FaceSample) error

	// SamplesByName returns every sample enrolled under name.
	SamplesByName(ctx context.Context, name string) ([]model.FaceSample, error)

	// AllSamples returns every enrolled sample.
	AllSamples(ctx context.Context) ([]model.FaceSample, error)

	// Names returns the distinct enrolled names.
	Names(ctx context.Context) ([]string, error)

	// CountByName returns the number of samples enrolled under name.
	CountByName(ctx context.Context, name string) (int, error)

	// DeleteByName removes every sample enrolled under name and returns
	// how many were removed.
	DeleteByName(ctx context.Context, name string) (int, error)
}

// AttendanceStore writes and queries day-granularity attendance.
type AttendanceStore interface {
	// MarkAttendance inserts the record unless one already exists for the
	// same (employee_id, date). Returns false when the day's record was
	// already present.
	MarkAttendance(ctx context.Context, rec model.AttendanceRecord) (bool, error)

	// AttendanceOn returns the records of one date, employee names filled
	// in, ordered by enter time.
	AttendanceOn(ctx context.Context, date string) ([]model.AttendanceRecord, error)

	// AttendanceHistory returns the records of one employee over the last
	// days, newest first.
	AttendanceHistory(ctx context.Context, employeeID string, days int) ([]model.AttendanceRecord, error)

	// AttendanceRange returns the records with from <= date <= to.
	AttendanceRange(ctx context.Context, from, to string) ([]model.AttendanceRecord, error)
}

// EventStore appends and queries the recognition event log.
type EventStore interface {
	// RecordEvent appends one recognition event.
	RecordEvent(ctx context.Context, e model.RecognitionEvent) error

	// RecentEvents returns up to limit events, newest first.
	RecentEvents(ctx context.Context, limit int) ([]model.RecognitionEvent, error)

	// EventsSince returns the events captured at or after t, oldest first.
	EventsSince(ctx context.Context, t time.Time) ([]model.RecognitionEvent, error)
}
