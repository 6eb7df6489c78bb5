package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/okian/rollcall/internal/adapters/store"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

const attendanceColumns = `employee_id, employee_name, date, enter_time, is_late`

func scanAttendance(row pgx.Row) (model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := row.Scan(&rec.EmployeeID, &rec.EmployeeName, &rec.Date, &rec.EnterTime, &rec.IsLate)
	return rec, err
}

// MarkAttendance inserts the record unless the day's record already exists.
// ON CONFLICT DO NOTHING makes the write idempotent per (employee_id, date).
// A missing employee row is store.ErrNotFound, not a silent duplicate.
func (s *Store) MarkAttendance(ctx context.Context, rec model.AttendanceRecord) (inserted bool, err error) {
	start := time.Now()
	defer func() { observe("mark_attendance", start, err) }()

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO attendance (employee_id, employee_name, date, enter_time, is_late)
		SELECT e.employee_id, e.name, $2, $3, $4
		FROM employees e WHERE e.employee_id = $1
		ON CONFLICT (employee_id, date) DO NOTHING`,
		rec.EmployeeID, rec.Date, rec.EnterTime, rec.IsLate,
	)
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err = s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM employees WHERE employee_id = $1)`,
		rec.EmployeeID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check employee: %w", err)
	}
	if !exists {
		err = fmt.Errorf("employee %s: %w", rec.EmployeeID, store.ErrNotFound)
		return false, err
	}
	return false, nil
}

// AttendanceOn returns the records of one date ordered by enter time.
func (s *Store) AttendanceOn(ctx context.Context, date string) (out []model.AttendanceRecord, err error) {
	start := time.Now()
	defer func() { observe("attendance_on", start, err) }()

	rows, err := s.pool.Query(ctx,
		`SELECT `+attendanceColumns+` FROM attendance WHERE date = $1 ORDER BY enter_time`, date)
	if err != nil {
		return nil, fmt.Errorf("select attendance: %w", err)
	}
	return collectAttendance(rows)
}

// AttendanceHistory returns the records of one employee over the last days.
func (s *Store) AttendanceHistory(ctx context.Context, employeeID string, days int) (out []model.AttendanceRecord, err error) {
	start := time.Now()
	defer func() { observe("attendance_history", start, err) }()

	cutoff := types.DateOf(time.Now().AddDate(0, 0, -days))
	rows, err := s.pool.Query(ctx, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE employee_id = $1 AND date >= $2 ORDER BY date DESC`,
		employeeID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("select attendance history: %w", err)
	}
	return collectAttendance(rows)
}

// AttendanceRange returns the records with from <= date <= to.
func (s *Store) AttendanceRange(ctx context.Context, from, to string) (out []model.AttendanceRecord, err error) {
	start := time.Now()
	defer func() { observe("attendance_range", start, err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE date >= $1 AND date <= $2 ORDER BY date, enter_time`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("select attendance range: %w", err)
	}
	return collectAttendance(rows)
}

func collectAttendance(rows pgx.Rows) ([]model.AttendanceRecord, error) {
	defer rows.Close()

	var out []model.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return out, nil
}
