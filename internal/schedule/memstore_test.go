package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"shifter/shift-service/internal/models"
	"shifter/shift-service/internal/store"
)

// memStore is an in-memory store.ShiftStore with the same ordering guarantees
// as the SQL backends.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	shifts    map[int64]models.Shift
	employees map[string]models.Employee
	branches  map[int64]models.Branch

	// insertHook runs before an insert; a non-nil error aborts it.
	insertHook func(shift models.Shift) error
}

func newMemStore() *memStore {
	return &memStore{
		shifts:    make(map[int64]models.Shift),
		employees: make(map[string]models.Employee),
		branches:  map[int64]models.Branch{1: {ID: 1, Name: "Tel-Aviv"}},
	}
}

func (m *memStore) addEmployee(id, first, last string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[id] = models.Employee{ID: id, FirstName: first, LastName: last}
}

func (m *memStore) sorted(keep func(models.Shift) bool) []models.Shift {
	out := []models.Shift{}
	for _, shift := range m.shifts {
		if keep(shift) {
			out = append(out, shift)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memStore) ListEmployeeShifts(ctx context.Context, employeeID string) ([]models.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(s models.Shift) bool { return s.EmployeeID == employeeID }), nil
}

func (m *memStore) ListBranchShiftsBetween(ctx context.Context, branchID int64, from, to time.Time) ([]models.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(s models.Shift) bool {
		return s.BranchID == branchID && !s.StartTime.Before(from) && !s.StartTime.After(to)
	}), nil
}

func (m *memStore) ListBranchShifts(ctx context.Context, branchID int64) ([]models.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(s models.Shift) bool { return s.BranchID == branchID }), nil
}

func (m *memStore) GetShift(ctx context.Context, shiftID int64) (models.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	shift, ok := m.shifts[shiftID]
	if !ok {
		return models.Shift{}, store.ErrShiftNotFound
	}
	return shift, nil
}

func (m *memStore) InsertShift(ctx context.Context, shift models.Shift) (models.Shift, error) {
	m.mu.Lock()
	hook := m.insertHook
	m.mu.Unlock()
	if hook != nil {
		if err := hook(shift); err != nil {
			return models.Shift{}, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	shift.ID = m.nextID
	m.shifts[shift.ID] = shift
	return shift, nil
}

func (m *memStore) UpdateShift(ctx context.Context, shift models.Shift) (models.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shifts[shift.ID]; !ok {
		return models.Shift{}, store.ErrShiftNotFound
	}
	m.shifts[shift.ID] = shift
	return shift, nil
}

func (m *memStore) DeleteShift(ctx context.Context, shiftID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shifts[shiftID]; !ok {
		return false, nil
	}
	delete(m.shifts, shiftID)
	return true, nil
}

func (m *memStore) GetEmployee(ctx context.Context, employeeID string) (models.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	employee, ok := m.employees[employeeID]
	if !ok {
		return models.Employee{}, store.ErrEmployeeNotFound
	}
	return employee, nil
}

func (m *memStore) GetBranch(ctx context.Context, branchID int64) (models.Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	branch, ok := m.branches[branchID]
	if !ok {
		return models.Branch{}, store.ErrBranchNotFound
	}
	return branch, nil
}

// put stores a shift directly, bypassing the scheduler.
func (m *memStore) put(shift models.Shift) models.Shift {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	shift.ID = m.nextID
	m.shifts[shift.ID] = shift
	return shift
}
