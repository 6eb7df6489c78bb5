package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

// The memory engine computes every report in-process from raw store rows.
// It is the fallback when the store-side aggregation fails or is disabled.

func (s *Service) memPeakHours(ctx context.Context, since time.Time) ([]HourStat, error) {
	events, err := s.store.EventsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	type acc struct {
		count int
		sum   float64
		names map[string]struct{}
	}
	byHour := make(map[int]*acc)
	for _, e := range events {
		h := e.CapturedAt.Hour()
		a := byHour[h]
		if a == nil {
			a = &acc{names: make(map[string]struct{})}
			byHour[h] = a
		}
		a.count++
		a.sum += e.Confidence
		a.names[e.Name] = struct{}{}
	}

	out := make([]HourStat, 0, len(byHour))
	for h, a := range byHour {
		out = append(out, HourStat{
			Hour:          h,
			Count:         a.count,
			AvgConfidence: round3(a.sum / float64(a.count)),
			UniqueNames:   len(a.names),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out, nil
}

func (s *Service) memDailyPatterns(ctx context.Context, from, to string) ([]WeekdayStat, error) {
	records, err := s.store.AttendanceRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch attendance: %w", err)
	}

	type acc struct{ total, late int }
	byDay := make(map[string]*acc)
	for _, rec := range records {
		day := rec.EnterTime.Weekday().String()
		a := byDay[day]
		if a == nil {
			a = &acc{}
			byDay[day] = a
		}
		a.total++
		if rec.IsLate {
			a.late++
		}
	}

	out := make([]WeekdayStat, 0, len(byDay))
	for _, day := range weekdayOrder {
		a, ok := byDay[day]
		if !ok {
			continue
		}
		out = append(out, WeekdayStat{
			Weekday:   day,
			Total:     a.total,
			LateCount: a.late,
			LateRate:  round3(float64(a.late) / float64(a.total)),
		})
	}
	return out, nil
}

func (s *Service) memPerformance(ctx context.Context, from, to string) ([]PerformanceRow, error) {
	records, err := s.store.AttendanceRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch attendance: %w", err)
	}
	employees, err := s.store.ListEmployees(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("fetch employees: %w", err)
	}
	names := make(map[string]string, len(employees))
	for _, e := range employees {
		names[e.EmployeeID] = e.Name
	}

	type acc struct {
		present, late int
		enterMinutes  int
	}
	byEmployee := make(map[string]*acc)
	for _, rec := range records {
		a := byEmployee[rec.EmployeeID]
		if a == nil {
			a = &acc{}
			byEmployee[rec.EmployeeID] = a
		}
		a.present++
		if rec.IsLate {
			a.late++
		}
		a.enterMinutes += rec.EnterTime.Hour()*60 + rec.EnterTime.Minute()
	}

	out := make([]PerformanceRow, 0, len(byEmployee))
	for id, a := range byEmployee {
		avg := a.enterMinutes / a.present
		out = append(out, PerformanceRow{
			EmployeeID:   id,
			Name:         names[id],
			DaysPresent:  a.present,
			LateDays:     a.late,
			Punctuality:  round3(1 - float64(a.late)/float64(a.present)),
			AvgEnterTime: fmt.Sprintf("%02d:%02d", avg/60, avg%60),
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

func (s *Service) memAccuracy(ctx context.Context, since time.Time) ([]WeekStat, error) {
	events, err := s.store.EventsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	byWeek := make(map[string][]float64)
	for _, e := range events {
		week := isoWeek(e.CapturedAt)
		byWeek[week] = append(byWeek[week], e.Confidence)
	}

	out := make([]WeekStat, 0, len(byWeek))
	for week, confidences := range byWeek {
		stat := WeekStat{
			Week:          week,
			Count:         len(confidences),
			MinConfidence: confidences[0],
			MaxConfidence: confidences[0],
		}
		var sum float64
		for _, c := range confidences {
			sum += c
			stat.MinConfidence = math.Min(stat.MinConfidence, c)
			stat.MaxConfidence = math.Max(stat.MaxConfidence, c)
		}
		mean := sum / float64(len(confidences))
		var variance float64
		for _, c := range confidences {
			variance += (c - mean) * (c - mean)
		}
		stat.AvgConfidence = round3(mean)
		stat.StdDev = round3(math.Sqrt(variance / float64(len(confidences))))
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out, nil
}

func (s *Service) memRealtime(ctx context.Context, since time.Time) ([]NameWeekdayStat, error) {
	events, err := s.store.EventsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	type key struct{ name, weekday string }
	type acc struct {
		count int
		sum   float64
	}
	grouped := make(map[key]*acc)
	for _, e := range events {
		k := key{name: e.Name, weekday: e.CapturedAt.Weekday().String()}
		a := grouped[k]
		if a == nil {
			a = &acc{}
			grouped[k] = a
		}
		a.count++
		a.sum += e.Confidence
	}

	dayRank := make(map[string]int, len(weekdayOrder))
	for i, day := range weekdayOrder {
		dayRank[day] = i
	}

	out := make([]NameWeekdayStat, 0, len(grouped))
	for k, a := range grouped {
		out = append(out, NameWeekdayStat{
			Name:          k.name,
			Weekday:       k.weekday,
			Count:         a.count,
			AvgConfidence: round3(a.sum / float64(a.count)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return dayRank[out[i].Weekday] < dayRank[out[j].Weekday]
	})
	return out, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
