// Package model contains domain models passed between layers.
package model

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/okian/rollcall/internal/domain/types"
)

// Recognition event sources.
const (
	SourceCamera    = "camera"
	SourceAPI       = "api"
	SourceSimulated = "simulated"
)

// Face sample sources.
const (
	SampleSourceEnrollment = "enrollment"
	SampleSourceImport     = "import"
)

// DefaultWorkStartTime applies when an employee is created without one.
const DefaultWorkStartTime = "09:00"

// Employee is a directory entry.
type Employee struct {
	EmployeeID    string    `json:"employee_id" bson:"employee_id"`
	Name          string    `json:"name" bson:"name"`
	Phone         string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Department    string    `json:"department,omitempty" bson:"department,omitempty"`
	Position      string    `json:"position,omitempty" bson:"position,omitempty"`
	WorkStartTime string    `json:"work_start_time" bson:"work_start_time"`
	IsActive      bool      `json:"is_active" bson:"is_active"`
	FaceEnrolled  bool      `json:"face_enrolled" bson:"face_enrolled"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

// NewEmployeeID generates an employee id of the form "EMP" + 8 hex digits.
func NewEmployeeID() string {
	u := uuid.New()
	return "EMP" + strings.ToUpper(hex.EncodeToString(u[:4]))
}

// FaceSample is one enrolled face encoding for a person.
type FaceSample struct {
	SampleID   string         `json:"sample_id" bson:"sample_id"`
	Name       string         `json:"name" bson:"name"`
	EmployeeID string         `json:"employee_id,omitempty" bson:"employee_id,omitempty"`
	Encoding   types.Encoding `json:"encoding" bson:"encoding"`
	Quality    float64        `json:"quality" bson:"quality"`
	Source     string         `json:"source" bson:"source"`
	CreatedAt  time.Time      `json:"created_at" bson:"created_at"`
}

// NewSampleID generates a face sample id.
func NewSampleID() string {
	return uuid.NewString()
}

// AttendanceRecord marks an employee present on a date. At most one record
// exists per (employee_id, date); the store enforces it.
type AttendanceRecord struct {
	EmployeeID   string    `json:"employee_id" bson:"employee_id"`
	EmployeeName string    `json:"employee_name,omitempty" bson:"employee_name,omitempty"`
	Date         string    `json:"date" bson:"date"`
	EnterTime    time.Time `json:"enter_time" bson:"enter_time"`
	IsLate       bool      `json:"is_late" bson:"is_late"`
}

// NewAttendanceRecord builds a record for an arrival, computing the date and
// the lateness flag from the employee's work start time.
func NewAttendanceRecord(employeeID string, enter time.Time, start types.TimeOfDay) AttendanceRecord {
	return AttendanceRecord{
		EmployeeID: employeeID,
		Date:       types.DateOf(enter),
		EnterTime:  enter,
		IsLate:     start.Before(enter),
	}
}

// RecognitionEvent is one accepted recognition, appended to the event log.
// It also serves as the commit task carried by the queue.
type RecognitionEvent struct {
	EventID    string          `json:"event_id" bson:"event_id"`
	Name       string          `json:"name" bson:"name"`
	Confidence float64         `json:"confidence" bson:"confidence"`
	CapturedAt time.Time       `json:"captured_at" bson:"captured_at"`
	Location   *types.Location `json:"location,omitempty" bson:"location,omitempty"`
	Source     string          `json:"source" bson:"source"`
}

// NewEventID generates a time-ordered recognition event id.
func NewEventID() string {
	return ulid.Make().String()
}

// Observation is one detected face in a frame: where it is and its encoding.
type Observation struct {
	Location types.Location
	Encoding types.Encoding
}
