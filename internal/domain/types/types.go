// Package types contains common types used across the application.
package types

import (
	"fmt"
	"time"
)

// Layouts for day-granularity dates and "HH:MM" clock times.
const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04"
)

// EncodingSize is the length of a face encoding vector.
const EncodingSize = 128

// Encoding is a fixed-length feature vector for a detected face.
type Encoding []float32

// Location is a face bounding box in frame coordinates.
type Location struct {
	Top    int `json:"top" bson:"top"`
	Right  int `json:"right" bson:"right"`
	Bottom int `json:"bottom" bson:"bottom"`
	Left   int `json:"left" bson:"left"`
}

// Width returns the box width in pixels.
func (l Location) Width() int { return l.Right - l.Left }

// Height returns the box height in pixels.
func (l Location) Height() int { return l.Bottom - l.Top }

// DateOf formats t as a day-granularity date in t's location.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// TimeOfDay is a wall-clock time without a date, e.g. a work start time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String formats the time of day as "HH:MM".
func (td TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", td.Hour, td.Minute)
}

// Before reports whether the clock time of t is strictly after td.
// Seconds count: 09:00:30 is after 09:00.
func (td TimeOfDay) Before(t time.Time) bool {
	h, m, s := t.Clock()
	if h != td.Hour {
		return h > td.Hour
	}
	if m != td.Minute {
		return m > td.Minute
	}
	return s > 0
}
