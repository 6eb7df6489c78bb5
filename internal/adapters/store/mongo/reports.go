package mongo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/okian/rollcall/internal/analytics"
)

// The aggregation pipelines below are the store-side analytics engine.
// Each mirrors the memory engine's computation exactly; the analytics
// service may silently substitute one for the other.

// mongoWeekdays maps $dayOfWeek output (1=Sunday..7=Saturday) to names.
var mongoWeekdays = [8]string{
	"", "Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// weekdayRank orders names Monday..Sunday for report output.
var weekdayRank = map[string]int{
	"Monday": 0, "Tuesday": 1, "Wednesday": 2, "Thursday": 3,
	"Friday": 4, "Saturday": 5, "Sunday": 6,
}

// PeakHours groups recognition events by hour of day.
func (s *Store) PeakHours(ctx context.Context, since time.Time) (out []analytics.HourStat, err error) {
	start := time.Now()
	defer func() { observe("agg_peak_hours", start, err) }()

	pipeline := []bson.M{
		{"$match": bson.M{"captured_at": bson.M{"$gte": since}}},
		{"$group": bson.M{
			"_id":            bson.M{"$hour": "$captured_at"},
			"count":          bson.M{"$sum": 1},
			"avg_confidence": bson.M{"$avg": "$confidence"},
			"names":          bson.M{"$addToSet": "$name"},
		}},
		{"$project": bson.M{
			"count":          1,
			"avg_confidence": 1,
			"unique_names":   bson.M{"$size": "$names"},
		}},
		{"$sort": bson.M{"_id": 1}},
	}

	cur, err := s.db.Collection(colEvents).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("peak hours pipeline: %w", err)
	}
	var rows []struct {
		Hour          int     `bson:"_id"`
		Count         int     `bson:"count"`
		AvgConfidence float64 `bson:"avg_confidence"`
		UniqueNames   int     `bson:"unique_names"`
	}
	if err = cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode peak hours: %w", err)
	}

	out = make([]analytics.HourStat, 0, len(rows))
	for _, r := range rows {
		out = append(out, analytics.HourStat{
			Hour:          r.Hour,
			Count:         r.Count,
			AvgConfidence: round3(r.AvgConfidence),
			UniqueNames:   r.UniqueNames,
		})
	}
	return out, nil
}

// DailyPatterns groups attendance by weekday.
func (s *Store) DailyPatterns(ctx context.Context, from, to string) (out []analytics.WeekdayStat, err error) {
	start := time.Now()
	defer func() { observe("agg_daily_patterns", start, err) }()

	pipeline := []bson.M{
		{"$match": bson.M{"date": bson.M{"$gte": from, "$lte": to}}},
		{"$group": bson.M{
			"_id":   bson.M{"$dayOfWeek": "$enter_time"},
			"total": bson.M{"$sum": 1},
			"late":  bson.M{"$sum": bson.M{"$cond": bson.A{"$is_late", 1, 0}}},
		}},
	}

	cur, err := s.db.Collection(colAttendance).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("daily patterns pipeline: %w", err)
	}
	var rows []struct {
		Day   int `bson:"_id"`
		Total int `bson:"total"`
		Late  int `bson:"late"`
	}
	if err = cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode daily patterns: %w", err)
	}

	out = make([]analytics.WeekdayStat, 0, len(rows))
	for _, r := range rows {
		if r.Day < 1 || r.Day > 7 || r.Total == 0 {
			continue
		}
		out = append(out, analytics.WeekdayStat{
			Weekday:   mongoWeekdays[r.Day],
			Total:     r.Total,
			LateCount: r.Late,
			LateRate:  round3(float64(r.Late) / float64(r.Total)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return weekdayRank[out[i].Weekday] < weekdayRank[out[j].Weekday] })
	return out, nil
}

// Performance summarizes per-employee punctuality.
func (s *Store) Performance(ctx context.Context, from, to string) (out []analytics.PerformanceRow, err error) {
	start := time.Now()
	defer func() { observe("agg_performance", start, err) }()

	pipeline := []bson.M{
		{"$match": bson.M{"date": bson.M{"$gte": from, "$lte": to}}},
		{"$group": bson.M{
			"_id":     "$employee_id",
			"present": bson.M{"$sum": 1},
			"late":    bson.M{"$sum": bson.M{"$cond": bson.A{"$is_late", 1, 0}}},
			"avg_minutes": bson.M{"$avg": bson.M{"$add": bson.A{
				bson.M{"$multiply": bson.A{bson.M{"$hour": "$enter_time"}, 60}},
				bson.M{"$minute": "$enter_time"},
			}}},
		}},
		{"$lookup": bson.M{
			"from":         colEmployees,
			"localField":   "_id",
			"foreignField": "employee_id",
			"as":           "employee",
		}},
		{"$project": bson.M{
			"present":     1,
			"late":        1,
			"avg_minutes": 1,
			"name":        bson.M{"$arrayElemAt": bson.A{"$employee.name", 0}},
		}},
	}

	cur, err := s.db.Collection(colAttendance).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("performance pipeline: %w", err)
	}
	var rows []struct {
		EmployeeID string  `bson:"_id"`
		Present    int     `bson:"present"`
		Late       int     `bson:"late"`
		AvgMinutes float64 `bson:"avg_minutes"`
		Name       string  `bson:"name"`
	}
	if err = cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode performance: %w", err)
	}

	out = make([]analytics.PerformanceRow, 0, len(rows))
	for _, r := range rows {
		if r.Present == 0 {
			continue
		}
		minutes := int(r.AvgMinutes)
		out = append(out, analytics.PerformanceRow{
			EmployeeID:   r.EmployeeID,
			Name:         r.Name,
			DaysPresent:  r.Present,
			LateDays:     r.Late,
			Punctuality:  round3(1 - float64(r.Late)/float64(r.Present)),
			AvgEnterTime: fmt.Sprintf("%02d:%02d", minutes/60, minutes%60),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Punctuality != out[j].Punctuality {
			return out[i].Punctuality > out[j].Punctuality
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, nil
}

// Accuracy aggregates recognition confidence by ISO week.
func (s *Store) Accuracy(ctx context.Context, since time.Time) (out []analytics.WeekStat, err error) {
	start := time.Now()
	defer func() { observe("agg_accuracy", start, err) }()

	pipeline := []bson.M{
		{"$match": bson.M{"captured_at": bson.M{"$gte": since}}},
		{"$group": bson.M{
			"_id": bson.M{
				"year": bson.M{"$isoWeekYear": "$captured_at"},
				"week": bson.M{"$isoWeek": "$captured_at"},
			},
			"count":   bson.M{"$sum": 1},
			"avg":     bson.M{"$avg": "$confidence"},
			"min":     bson.M{"$min": "$confidence"},
			"max":     bson.M{"$max": "$confidence"},
			"std_dev": bson.M{"$stdDevPop": "$confidence"},
		}},
		{"$sort": bson.M{"_id.year": 1, "_id.week": 1}},
	}

	cur, err := s.db.Collection(colEvents).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("accuracy pipeline: %w", err)
	}
	var rows []struct {
		ID struct {
			Year int `bson:"year"`
			Week int `bson:"week"`
		} `bson:"_id"`
		Count  int     `bson:"count"`
		Avg    float64 `bson:"avg"`
		Min    float64 `bson:"min"`
		Max    float64 `bson:"max"`
		StdDev float64 `bson:"std_dev"`
	}
	if err = cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode accuracy: %w", err)
	}

	out = make([]analytics.WeekStat, 0, len(rows))
	for _, r := range rows {
		out = append(out, analytics.WeekStat{
			Week:          fmt.Sprintf("%04d-W%02d", r.ID.Year, r.ID.Week),
			Count:         r.Count,
			AvgConfidence: round3(r.Avg),
			MinConfidence: r.Min,
			MaxConfidence: r.Max,
			StdDev:        round3(r.StdDev),
		})
	}
	return out, nil
}

// Realtime groups recognitions by (name, weekday).
func (s *Store) Realtime(ctx context.Context, since time.Time) (out []analytics.NameWeekdayStat, err error) {
	start := time.Now()
	defer func() { observe("agg_realtime", start, err) }()

	pipeline := []bson.M{
		{"$match": bson.M{"captured_at": bson.M{"$gte": since}}},
		{"$group": bson.M{
			"_id": bson.M{
				"name": "$name",
				"day":  bson.M{"$dayOfWeek": "$captured_at"},
			},
			"count": bson.M{"$sum": 1},
			"avg":   bson.M{"$avg": "$confidence"},
		}},
	}

	cur, err := s.db.Collection(colEvents).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("realtime pipeline: %w", err)
	}
	var rows []struct {
		ID struct {
			Name string `bson:"name"`
			Day  int    `bson:"day"`
		} `bson:"_id"`
		Count int     `bson:"count"`
		Avg   float64 `bson:"avg"`
	}
	if err = cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode realtime: %w", err)
	}

	out = make([]analytics.NameWeekdayStat, 0, len(rows))
	for _, r := range rows {
		if r.ID.Day < 1 || r.ID.Day > 7 {
			continue
		}
		out = append(out, analytics.NameWeekdayStat{
			Name:          r.ID.Name,
			Weekday:       mongoWeekdays[r.ID.Day],
			Count:         r.Count,
			AvgConfidence: round3(r.Avg),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return weekdayRank[out[i].Weekday] < weekdayRank[out[j].Weekday]
	})
	return out, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

var _ analytics.Aggregator = (*Store)(nil)
