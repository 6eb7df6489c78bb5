package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/rollcall/internal/analytics"
)

// SQL aggregation backs the store-side analytics engine. Each query mirrors
// the memory engine's computation.

// pgWeekdays maps EXTRACT(DOW) output (0=Sunday..6=Saturday) to names.
var pgWeekdays = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// PeakHours groups recognition events by hour of day.
func (s *Store) PeakHours(ctx context.Context, since time.Time) (out []analytics.HourStat, err error) {
	start := time.Now()
	defer func() { observe("agg_peak_hours", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT EXTRACT(HOUR FROM captured_at AT TIME ZONE 'UTC')::int AS hour,
		       COUNT(1),
		       AVG(confidence),
		       COUNT(DISTINCT name)
		FROM recognition_events
		WHERE captured_at >= $1
		GROUP BY hour
		ORDER BY hour`, since)
	if err != nil {
		return nil, fmt.Errorf("peak hours query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stat analytics.HourStat
		var avg float64
		if err = rows.Scan(&stat.Hour, &stat.Count, &avg, &stat.UniqueNames); err != nil {
			return nil, fmt.Errorf("scan peak hours: %w", err)
		}
		stat.AvgConfidence = round3(avg)
		out = append(out, stat)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate peak hours: %w", err)
	}
	return out, nil
}

// DailyPatterns groups attendance by weekday, Monday first.
func (s *Store) DailyPatterns(ctx context.Context, from, to string) (out []analytics.WeekdayStat, err error) {
	start := time.Now()
	defer func() { observe("agg_daily_patterns", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT EXTRACT(DOW FROM enter_time AT TIME ZONE 'UTC')::int AS dow,
		       COUNT(1),
		       SUM(CASE WHEN is_late THEN 1 ELSE 0 END)
		FROM attendance
		WHERE date >= $1 AND date <= $2
		GROUP BY dow
		ORDER BY (dow + 6) % 7`, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily patterns query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dow, total, late int
		if err = rows.Scan(&dow, &total, &late); err != nil {
			return nil, fmt.Errorf("scan daily patterns: %w", err)
		}
		if dow < 0 || dow > 6 || total == 0 {
			continue
		}
		out = append(out, analytics.WeekdayStat{
			Weekday:   pgWeekdays[dow],
			Total:     total,
			LateCount: late,
			LateRate:  round3(float64(late) / float64(total)),
		})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily patterns: %w", err)
	}
	return out, nil
}

// Performance summarizes per-employee punctuality, best first.
func (s *Store) Performance(ctx context.Context, from, to string) (out []analytics.PerformanceRow, err error) {
	start := time.Now()
	defer func() { observe("agg_performance", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT a.employee_id,
		       COALESCE(e.name, ''),
		       COUNT(1) AS present,
		       SUM(CASE WHEN a.is_late THEN 1 ELSE 0 END) AS late,
		       AVG(EXTRACT(HOUR FROM a.enter_time AT TIME ZONE 'UTC') * 60
		         + EXTRACT(MINUTE FROM a.enter_time AT TIME ZONE 'UTC'))
		FROM attendance a
		LEFT JOIN employees e ON e.employee_id = a.employee_id
		WHERE a.date >= $1 AND a.date <= $2
		GROUP BY a.employee_id, e.name
		ORDER BY 1.0 - SUM(CASE WHEN a.is_late THEN 1 ELSE 0 END)::float / COUNT(1) DESC,
		         a.employee_id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("performance query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row analytics.PerformanceRow
		var avgMinutes float64
		if err = rows.Scan(&row.EmployeeID, &row.Name, &row.DaysPresent, &row.LateDays, &avgMinutes); err != nil {
			return nil, fmt.Errorf("scan performance: %w", err)
		}
		if row.DaysPresent == 0 {
			continue
		}
		minutes := int(avgMinutes)
		row.Punctuality = round3(1 - float64(row.LateDays)/float64(row.DaysPresent))
		row.AvgEnterTime = fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
		out = append(out, row)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate performance: %w", err)
	}
	return out, nil
}

// Accuracy aggregates recognition confidence by ISO week.
func (s *Store) Accuracy(ctx context.Context, since time.Time) (out []analytics.WeekStat, err error) {
	start := time.Now()
	defer func() { observe("agg_accuracy", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT to_char(captured_at AT TIME ZONE 'UTC', 'IYYY-"W"IW') AS week,
		       COUNT(1),
		       AVG(confidence),
		       MIN(confidence),
		       MAX(confidence),
		       COALESCE(STDDEV_POP(confidence), 0)
		FROM recognition_events
		WHERE captured_at >= $1
		GROUP BY week
		ORDER BY week`, since)
	if err != nil {
		return nil, fmt.Errorf("accuracy query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stat analytics.WeekStat
		var avg, stdDev float64
		if err = rows.Scan(&stat.Week, &stat.Count, &avg, &stat.MinConfidence, &stat.MaxConfidence, &stdDev); err != nil {
			return nil, fmt.Errorf("scan accuracy: %w", err)
		}
		stat.AvgConfidence = round3(avg)
		stat.StdDev = round3(stdDev)
		out = append(out, stat)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accuracy: %w", err)
	}
	return out, nil
}

// Realtime groups recognitions by (name, weekday).
func (s *Store) Realtime(ctx context.Context, since time.Time) (out []analytics.NameWeekdayStat, err error) {
	start := time.Now()
	defer func() { observe("agg_realtime", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT name,
		       EXTRACT(DOW FROM captured_at AT TIME ZONE 'UTC')::int AS dow,
		       COUNT(1),
		       AVG(confidence)
		FROM recognition_events
		WHERE captured_at >= $1
		GROUP BY name, dow
		ORDER BY name, (dow + 6) % 7`, since)
	if err != nil {
		return nil, fmt.Errorf("realtime query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stat analytics.NameWeekdayStat
		var dow int
		var avg float64
		if err = rows.Scan(&stat.Name, &dow, &stat.Count, &avg); err != nil {
			return nil, fmt.Errorf("scan realtime: %w", err)
		}
		if dow < 0 || dow > 6 {
			continue
		}
		stat.Weekday = pgWeekdays[dow]
		stat.AvgConfidence = round3(avg)
		out = append(out, stat)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate realtime: %w", err)
	}
	return out, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

var _ analytics.Aggregator = (*Store)(nil)
