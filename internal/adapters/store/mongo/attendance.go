package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

// MarkAttendance inserts the record unless the day's record already exists.
// The unique (employee_id, date) index turns the race into a duplicate-key
// error, reported as inserted=false.
func (s *Store) MarkAttendance(ctx context.Context, rec model.AttendanceRecord) (inserted bool, err error) {
	start := time.Now()
	defer func() { observe("mark_attendance", start, err) }()

	if rec.EmployeeName == "" {
		if e, lookupErr := s.GetEmployee(ctx, rec.EmployeeID); lookupErr == nil {
			rec.EmployeeName = e.Name
		}
	}

	_, err = s.db.Collection(colAttendance).InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	return true, nil
}

// AttendanceOn returns the records of one date ordered by enter time.
func (s *Store) AttendanceOn(ctx context.Context, date string) (out []model.AttendanceRecord, err error) {
	start := time.Now()
	defer func() { observe("attendance_on", start, err) }()

	opts := options.Find().SetSort(bson.D{{Key: "enter_time", Value: 1}})
	cur, err := s.db.Collection(colAttendance).Find(ctx, bson.M{"date": date}, opts)
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	if err = cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode attendance: %w", err)
	}
	return out, nil
}

// AttendanceHistory returns the records of one employee over the last days.
func (s *Store) AttendanceHistory(ctx context.Context, employeeID string, days int) (out []model.AttendanceRecord, err error) {
	start := time.Now()
	defer func() { observe("attendance_history", start, err) }()

	cutoff := types.DateOf(time.Now().AddDate(0, 0, -days))
	filter := bson.M{
		"employee_id": employeeID,
		"date":        bson.M{"$gte": cutoff},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cur, err := s.db.Collection(colAttendance).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find attendance history: %w", err)
	}
	if err = cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode attendance history: %w", err)
	}
	return out, nil
}

// AttendanceRange returns the records with from <= date <= to.
func (s *Store) AttendanceRange(ctx context.Context, from, to string) (out []model.AttendanceRecord, err error) {
	start := time.Now()
	defer func() { observe("attendance_range", start, err) }()

	filter := bson.M{"date": bson.M{"$gte": from, "$lte": to}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "enter_time", Value: 1}})
	cur, err := s.db.Collection(colAttendance).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find attendance range: %w", err)
	}
	if err = cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode attendance range: %w", err)
	}
	return out, nil
}
