package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/rollcall/internal/adapters/store"
	"github.com/okian/rollcall/internal/domain/model"
)

// CreateEmployee inserts a new employee document.
func (s *Store) CreateEmployee(ctx context.Context, e model.Employee) (err error) {
	start := time.Now()
	defer func() { observe("create_employee", start, err) }()

	_, err = s.db.Collection(colEmployees).InsertOne(ctx, e)
	if mongo.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), "phone") {
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

	err = s.db.Collection(colEmployees).
		FindOne(ctx, bson.M{"employee_id": employeeID}).
		Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Employee{}, fmt.Errorf("%w: employee %s", store.ErrNotFound, employeeID)
	}
	if err != nil {
		return model.Employee{}, fmt.Errorf("find employee: %w", err)
	}
	return e, nil
}

// FindEmployeeByName returns the first active employee with the exact name.
func (s *Store) FindEmployeeByName(ctx context.Context, name string) (e model.Employee, err error) {
	start := time.Now()
	defer func() { observe("find_employee_by_name", start, err) }()

	err = s.db.Collection(colEmployees).
		FindOne(ctx, bson.M{"name": name, "is_active": true}).
		Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Employee{}, fmt.Errorf("%w: employee named %q", store.ErrNotFound, name)
	}
	if err != nil {
		return model.Employee{}, fmt.Errorf("find employee by name: %w", err)
	}
	return e, nil
}

// FindEmployeeByFaceName resolves a face-sample name to an employee. A
// sample carrying an employee link wins; exact name match is the fallback.
func (s *Store) FindEmployeeByFaceName(ctx context.Context, name string) (model.Employee, error) {
	var sample model.FaceSample
	err := s.db.Collection(colFaces).
		FindOne(ctx, bson.M{"name": name, "employee_id": bson.M{"$nin": bson.A{"", nil}}}).
		Decode(&sample)
	switch {
	case err == nil:
		return s.GetEmployee(ctx, sample.EmployeeID)
	case errors.Is(err, mongo.ErrNoDocuments):
		return s.FindEmployeeByName(ctx, name)
	default:
		return model.Employee{}, fmt.Errorf("find face link: %w", err)
	}
}

// ListEmployees returns employees ordered by id.
func (s *Store) ListEmployees(ctx context.Context, activeOnly bool) (out []model.Employee, err error) {
	start := time.Now()
	defer func() { observe("list_employees", start, err) }()

	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "employee_id", Value: 1}})
	cur, err := s.db.Collection(colEmployees).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	if err = cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode employees: %w", err)
	}
	return out, nil
}

// DeactivateEmployee clears is_active.
func (s *Store) DeactivateEmployee(ctx context.Context, employeeID string) (err error) {
	start := time.Now()
	defer func() { observe("deactivate_employee", start, err) }()

	res, err := s.db.Collection(colEmployees).UpdateOne(ctx,
		bson.M{"employee_id": employeeID},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("deactivate employee: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: employee %s", store.ErrNotFound, employeeID)
	}
	return nil
}

// LinkFace marks face samples named faceName as belonging to the employee
// and flags the employee as enrolled.
func (s *Store) LinkFace(ctx context.Context, employeeID, faceName string) (err error) {
	start := time.Now()
	defer func() { observe("link_face", start, err) }()

	res, err := s.db.Collection(colEmployees).UpdateOne(ctx,
		bson.M{"employee_id": employeeID},
		bson.M{"$set": bson.M{"face_enrolled": true, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("flag employee enrolled: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: employee %s", store.ErrNotFound, employeeID)
	}

	_, err = s.db.Collection(colFaces).UpdateMany(ctx,
		bson.M{"name": faceName},
		bson.M{"$set": bson.M{"employee_id": employeeID}},
	)
	if err != nil {
		return fmt.Errorf("link face samples: %w", err)
	}
	return nil
}
