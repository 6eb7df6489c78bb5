// Package memory implements store.Store with mutex-guarded maps.
// It backs tests and single-binary runs that need no external database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/rollcall/internal/adapters/store"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/types"
)

// Store is the in-memory driver.
type Store struct {
	mu sync.RWMutex

	// employees is keyed by employee_id. phones and faceLinks map a phone
	// number and an enrolled face name back to the owning employee_id.
	// samples is keyed by face name, attendance by date then employee_id.
	employees  map[string]model.Employee
	phones     map[string]string
	faceLinks  map[string]string
	samples    map[string][]model.FaceSample
	attendance map[string]map[string]model.AttendanceRecord
	events     []model.RecognitionEvent

	closed bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		employees:  make(map[string]model.Employee),
		phones:     make(map[string]string),
		faceLinks:  make(map[string]string),
		samples:    make(map[string][]model.FaceSample),
		attendance: make(map[string]map[string]model.AttendanceRecord),
	}
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

// Migrate is a no-op; maps need no schema.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Close marks the store closed.
func (s *Store) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// CreateEmployee inserts a new employee.
func (s *Store) CreateEmployee(_ context.Context, e model.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.employees[e.EmployeeID]; ok {
		return fmt.Errorf("%w: %s", store.ErrDuplicateEmployee, e.EmployeeID)
	}
	if e.Phone != "" {
		if owner, ok := s.phones[e.Phone]; ok {
			return fmt.Errorf("%w: held by %s", store.ErrDuplicatePhone, owner)
		}
		s.phones[e.Phone] = e.EmployeeID
	}
	s.employees[e.EmployeeID] = e
	return nil
}

// GetEmployee returns the employee with the given id.
func (s *Store) GetEmployee(_ context.Context, employeeID string) (model.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.employees[employeeID]
	if !ok {
		return model.Employee{}, fmt.Errorf("%w: employee %s", store.ErrNotFound, employeeID)
	}
	return e, nil
}

// FindEmployeeByName returns the first active employee with the exact name.
func (s *Store) FindEmployeeByName(_ context.Context, name string) (model.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findByNameLocked(name)
}

func (s *Store) findByNameLocked(name string) (model.Employee, error) {
	ids := make([]string, 0, len(s.employees))
	for id := range s.employees {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		e := s.employees[id]
		if e.Name == name && e.IsActive {
			return e, nil
		}
	}
	return model.Employee{}, fmt.Errorf("%w: employee named %q", store.ErrNotFound, name)
}

// FindEmployeeByFaceName resolves a face-sample name to an employee.
func (s *Store) FindEmployeeByFaceName(_ context.Context, name string) (model.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.faceLinks[name]; ok {
		if e, ok := s.employees[id]; ok {
			return e, nil
		}
	}
	return s.findByNameLocked(name)
}

// ListEmployees returns employees ordered by id.
func (s *Store) ListEmployees(_ context.Context, activeOnly bool) ([]model.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		if activeOnly && !e.IsActive {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// DeactivateEmployee clears is_active.
func (s *Store) DeactivateEmployee(_ context.Context, employeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.employees[employeeID]
	if !ok {
		return fmt.Errorf("%w: employee %s", store.ErrNotFound, employeeID)
	}
	e.IsActive = false
	e.UpdatedAt = time.Now()
	s.employees[employeeID] = e
	return nil
}

// LinkFace associates a face-sample name with the employee.
func (s *Store) LinkFace(_ context.Context, employeeID, faceName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.employees[employeeID]
	if !ok {
		return fmt.Errorf("%w: employee %s", store.ErrNotFound, employeeID)
	}
	s.faceLinks[faceName] = employeeID
	e.FaceEnrolled = true
	e.UpdatedAt = time.Now()
	s.employees[employeeID] = e
	return nil
}

// AddSample appends one face sample.
func (s *Store) AddSample(_ context.Context, sample model.FaceSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy the encoding so later caller mutation cannot corrupt the store.
	enc := make(types.Encoding, len(sample.Encoding))
	copy(enc, sample.Encoding)
	sample.Encoding = enc

	s.samples[sample.Name] = append(s.samples[sample.Name], sample)
	if sample.EmployeeID != "" {
		s.faceLinks[sample.Name] = sample.EmployeeID
	}
	return nil
}

// SamplesByName returns every sample enrolled under name.
func (s *Store) SamplesByName(_ context.Context, name string) ([]model.FaceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.FaceSample, len(s.samples[name]))
	copy(out, s.samples[name])
	return out, nil
}

// AllSamples returns every enrolled sample.
func (s *Store) AllSamples(_ context.Context) ([]model.FaceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.samples))
	for name := range s.samples {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []model.FaceSample
	for _, name := range names {
		out = append(out, s.samples[name]...)
	}
	return out, nil
}

// Names returns the distinct enrolled names.
func (s *Store) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.samples))
	for name, list := range s.samples {
		if len(list) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// CountByName returns the number of samples enrolled under name.
func (s *Store) CountByName(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples[name]), nil
}

// DeleteByName removes every sample enrolled under name.
func (s *Store) DeleteByName(_ context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.samples[name])
	delete(s.samples, name)
	delete(s.faceLinks, name)
	return n, nil
}

// MarkAttendance inserts the record unless the day's record already exists.
func (s *Store) MarkAttendance(_ context.Context, rec model.AttendanceRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, ok := s.attendance[rec.Date]
	if !ok {
		day = make(map[string]model.AttendanceRecord)
		s.attendance[rec.Date] = day
	}
	if _, exists := day[rec.EmployeeID]; exists {
		return false, nil
	}
	if e, ok := s.employees[rec.EmployeeID]; ok {
		rec.EmployeeName = e.Name
	}
	day[rec.EmployeeID] = rec
	return true, nil
}

// AttendanceOn returns the records of one date ordered by enter time.
func (s *Store) AttendanceOn(_ context.Context, date string) ([]model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := s.attendance[date]
	out := make([]model.AttendanceRecord, 0, len(day))
	for _, rec := range day {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnterTime.Before(out[j].EnterTime) })
	return out, nil
}

// AttendanceHistory returns the records of one employee over the last days.
func (s *Store) AttendanceHistory(_ context.Context, employeeID string, days int) ([]model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := types.DateOf(time.Now().AddDate(0, 0, -days))
	var out []model.AttendanceRecord
	for date, day := range s.attendance {
		if date < cutoff {
			continue
		}
		if rec, ok := day[employeeID]; ok {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// AttendanceRange returns the records with from <= date <= to.
func (s *Store) AttendanceRange(_ context.Context, from, to string) ([]model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.AttendanceRecord
	for date, day := range s.attendance {
		if date < from || date > to {
			continue
		}
		for _, rec := range day {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].EnterTime.Before(out[j].EnterTime)
	})
	return out, nil
}

// RecordEvent appends one recognition event.
func (s *Store) RecordEvent(_ context.Context, e model.RecognitionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(_ context.Context, limit int) ([]model.RecognitionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]model.RecognitionEvent, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

// EventsSince returns the events captured at or after t, oldest first.
func (s *Store) EventsSince(_ context.Context, t time.Time) ([]model.RecognitionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.RecognitionEvent
	for _, e := range s.events {
		if !e.CapturedAt.Before(t) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CapturedAt.Before(out[j].CapturedAt) })
	return out, nil
}

var _ store.Store = (*Store)(nil)
