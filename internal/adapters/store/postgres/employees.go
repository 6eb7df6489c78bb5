package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/okian/rollcall/internal/adapters/store"
	"github.com/okian/rollcall/internal/domain/model"
)

const uniqueViolation = "23505"

const employeeColumns = `employee_id, name, COALESCE(phone, ''), department, position,
	work_start_time, is_active, face_enrolled, created_at, updated_at`

func scanEmployee(row pgx.Row) (model.Employee, error) {
	var e model.Employee
	err := row.Scan(&e.EmployeeID, &e.Name, &e.Phone, &e.Department, &e.Position,
		&e.WorkStartTime, &e.IsActive, &e.FaceEnrolled, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// CreateEmployee inserts a new employee row.
func (s *Store) CreateEmployee(ctx context.Context, e model.Employee) (err error) {
	start := time.Now()
	defer func() { observe("create_employee", start, err) }()

	var phone any
	if e.Phone != "" {
		phone = e.Phone
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO employees (employee_id, name, phone, department, position,
			work_start_time, is_active, face_enrolled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.EmployeeID, e.Name, phone, e.Department, e.Position,
		e.WorkStartTime, e.IsActive, e.FaceEnrolled, e.CreatedAt, e.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "phone") {
			return fmt.Errorf("%w: %s", store.ErrDuplicatePhone, e.Phone)
		}
		return fmt.Errorf("%w: %s", store.ErrDuplicateEmployee, e.EmployeeID)
	}
	if err != nil {
		return fmt.Errorf("insert employee: %w", err)
	}
	return nil
}

// GetEmployee returns the employee with the given id.
func (s *Store) GetEmployee(ctx context.Context, employeeID string) (e model.Employee, err error) {
	start := time.Now()
	defer func() { observe("get_employee", start, err) }()

	e, err = scanEmployee(s.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE employee_id = $1`, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Employee{}, fmt.Errorf("%w: employee %s", store.ErrNotFound, employeeID)
	}
	if err != nil {
		return model.Employee{}, fmt.Errorf("select employee: %w", err)
	}
	return e, nil
}

// FindEmployeeByName returns the first active employee with the exact name.
func (s *Store) FindEmployeeByName(ctx context.Context, name string) (e model.Employee, err error) {
	start := time.Now()
	defer func() { observe("find_employee_by_name", start, err) }()

	e, err = scanEmployee(s.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees
		 WHERE name = $1 AND is_active ORDER BY employee_id LIMIT 1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Employee{}, fmt.Errorf("%w: employee named %q", store.ErrNotFound, name)
	}
	if err != nil {
		return model.Employee{}, fmt.Errorf("select employee by name: %w", err)
	}
	return e, nil
}

// FindEmployeeByFaceName resolves a face-sample name to an employee.
func (s *Store) FindEmployeeByFaceName(ctx context.Context, name string) (model.Employee, error) {
	var employeeID string
	err := s.pool.QueryRow(ctx, `
		SELECT employee_id FROM face_samples
		WHERE name = $1 AND employee_id IS NOT NULL AND employee_id <> ''
		LIMIT 1`, name).Scan(&employeeID)
	switch {
	case err == nil:
		return s.GetEmployee(ctx, employeeID)
	case errors.Is(err, pgx.ErrNoRows):
		return s.FindEmployeeByName(ctx, name)
	default:
		return model.Employee{}, fmt.Errorf("select face link: %w", err)
	}
}

// ListEmployees returns employees ordered by id.
func (s *Store) ListEmployees(ctx context.Context, activeOnly bool) (out []model.Employee, err error) {
	start := time.Now()
	defer func() { observe("list_employees", start, err) }()

	query := `SELECT ` + employeeColumns + ` FROM employees`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY employee_id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select employees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, scanErr := scanEmployee(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan employee: %w", scanErr)
		}
		out = append(out, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return out, nil
}

// DeactivateEmployee clears is_active.
func (s *Store) DeactivateEmployee(ctx context.Context, employeeID string) (err error) {
	start := time.Now()
	defer func() { observe("deactivate_employee", start, err) }()

	tag, err := s.pool.Exec(ctx,
		`UPDATE employees SET is_active = FALSE, updated_at = now() WHERE employee_id = $1`,
		employeeID)
	if err != nil {
		return fmt.Errorf("deactivate employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: employee %s", store.ErrNotFound, employeeID)
	}
	return nil
}

// LinkFace associates face samples named faceName with the employee.
func (s *Store) LinkFace(ctx context.Context, employeeID, faceName string) (err error) {
	start := time.Now()
	defer func() { observe("link_face", start, err) }()

	tag, err := s.pool.Exec(ctx,
		`UPDATE employees SET face_enrolled = TRUE, updated_at = now() WHERE employee_id = $1`,
		employeeID)
	if err != nil {
		return fmt.Errorf("flag employee enrolled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: employee %s", store.ErrNotFound, employeeID)
	}

	if _, err = s.pool.Exec(ctx,
		`UPDATE face_samples SET employee_id = $1 WHERE name = $2`,
		employeeID, faceName); err != nil {
		return fmt.Errorf("link face samples: %w", err)
	}
	return nil
}
