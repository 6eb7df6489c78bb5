// Package analytics computes attendance and recognition reports.
//
// Two engines produce the same numbers: the aggregate engine pushes the
// computation into the store (Mongo aggregation pipelines or SQL), the
// memory engine fetches raw rows and computes in-process. Mode "auto"
// tries the aggregate path and falls back to memory on error.
package analytics

import (
	"fmt"
	"time"
)

// Engine labels carried by every report.
const (
	EngineAggregate = "aggregate"
	EngineMemory    = "memory"
	EngineAuto      = "auto"
)

// Weekdays in report order.
var weekdayOrder = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// HourStat aggregates recognition events of one hour of day.
type HourStat struct {
	Hour          int     `json:"hour"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
	UniqueNames   int     `json:"unique_names"`
}

// WeekdayStat aggregates attendance of one weekday.
type WeekdayStat struct {
	Weekday   string  `json:"weekday"`
	Total     int     `json:"total"`
	LateCount int     `json:"late_count"`
	LateRate  float64 `json:"late_rate"`
}

// PerformanceRow summarizes one employee's punctuality over the window.
type PerformanceRow struct {
	EmployeeID   string  `json:"employee_id"`
	Name         string  `json:"name"`
	DaysPresent  int     `json:"days_present"`
	LateDays     int     `json:"late_days"`
	Punctuality  float64 `json:"punctuality"`
	AvgEnterTime string  `json:"avg_enter_time"`
}

// WeekStat aggregates recognition confidence over one ISO week.
type WeekStat struct {
	Week          string  `json:"week"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
	MinConfidence float64 `json:"min_confidence"`
	MaxConfidence float64 `json:"max_confidence"`
	StdDev        float64 `json:"std_dev"`
}

// NameWeekdayStat aggregates recognitions of one person on one weekday.
type NameWeekdayStat struct {
	Name          string  `json:"name"`
	Weekday       string  `json:"weekday"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Meta is attached to every report.
type Meta struct {
	Engine      string    `json:"engine"`
	GeneratedAt time.Time `json:"generated_at"`
	WindowDays  int       `json:"window_days"`
}

// PeakHoursReport groups recognition events by hour of day.
type PeakHoursReport struct {
	Meta
	Hours       []HourStat `json:"hours"`
	BusiestHour *HourStat  `json:"busiest_hour,omitempty"`
}

// DailyPatternsReport groups attendance by weekday.
type DailyPatternsReport struct {
	Meta
	Weekdays []WeekdayStat `json:"weekdays"`
}

// PerformanceReport ranks employees by punctuality.
type PerformanceReport struct {
	Meta
	Employees []PerformanceRow `json:"employees"`
}

// AccuracyReport tracks recognition confidence by ISO week.
type AccuracyReport struct {
	Meta
	Weeks []WeekStat `json:"weeks"`
}

// RealtimeReport covers the last seven days of recognitions plus today.
type RealtimeReport struct {
	Meta
	ByNameWeekday []NameWeekdayStat `json:"by_name_weekday"`
	TodayEvents   int               `json:"today_events"`
	TodayUnique   int               `json:"today_unique"`
}

// RuntimeStats carries pipeline counters into the comprehensive report.
type RuntimeStats struct {
	Counters      map[string]uint64 `json:"counters"`
	UptimeSeconds float64           `json:"uptime_seconds"`
}

// ComprehensiveReport bundles all five reports with runtime state.
type ComprehensiveReport struct {
	Meta
	PeakHours     PeakHoursReport     `json:"peak_hours"`
	DailyPatterns DailyPatternsReport `json:"daily_patterns"`
	Performance   PerformanceReport   `json:"performance"`
	Accuracy      AccuracyReport      `json:"accuracy"`
	Realtime      RealtimeReport      `json:"realtime"`
	Runtime       RuntimeStats        `json:"runtime"`
}

// isoWeek formats t's ISO week as "2026-W35".
func isoWeek(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
