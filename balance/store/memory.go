// Package store provides in-memory balance.Repository implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warp/time-balance/balance"
	"github.com/warp/time-balance/calendar"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	employees  map[string]balance.Employee
	attendance map[dayKey]balance.AttendanceEntry
	absences   map[dayKey]balance.AbsenceEntry
	ledger     map[dayKey]balance.PeriodBalance
}

type dayKey struct {
	EmployeeID string
	Date       calendar.Date
}

var _ balance.Repository = (*Memory)(nil)

func NewMemory() *Memory {
	m := &Memory{}
	m.reset()
	return m
}

func (m *Memory) reset() {
	m.employees = make(map[string]balance.Employee)
	m.attendance = make(map[dayKey]balance.AttendanceEntry)
	m.absences = make(map[dayKey]balance.AbsenceEntry)
	m.ledger = make(map[dayKey]balance.PeriodBalance)
}

// FindEmployeeByName returns the first employee (by ID) whose name matches
// case-insensitively.
func (m *Memory) FindEmployeeByName(_ context.Context, name string) (*balance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *balance.Employee
	for _, e := range m.employees {
		if !strings.EqualFold(e.Name, name) {
			continue
		}
		if found == nil || e.ID < found.ID {
			emp := e
			found = &emp
		}
	}
	return found, nil
}

func (m *Memory) SaveEmployee(_ context.Context, emp balance.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.employees[emp.ID]; ok {
		emp.CreatedAt = existing.CreatedAt
	} else if emp.CreatedAt.IsZero() {
		emp.CreatedAt = time.Now().UTC()
	}
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id string) (*balance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emp, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &emp, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]balance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]balance.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// =============================================================================
// ENTRIES
// =============================================================================

func (m *Memory) SaveAttendance(_ context.Context, entry balance.AttendanceEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance[dayKey{EmployeeID: entry.EmployeeID, Date: entry.Date}] = entry
	return nil
}

// SaveAbsences validates every entry before writing any.
func (m *Memory) SaveAbsences(_ context.Context, entries []balance.AbsenceEntry) error {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.absences[dayKey{EmployeeID: e.EmployeeID, Date: e.Date}] = e
	}
	return nil
}

func (m *Memory) ListAttendance(_ context.Context, employeeID string, rng calendar.Range) ([]balance.AttendanceEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []balance.AttendanceEntry
	for k, e := range m.attendance {
		if k.EmployeeID == employeeID && rng.Contains(k.Date) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *Memory) ListAbsences(_ context.Context, employeeID string, rng calendar.Range) ([]balance.AbsenceEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []balance.AbsenceEntry
	for k, e := range m.absences {
		if k.EmployeeID == employeeID && rng.Contains(k.Date) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// =============================================================================
// LEDGER
// =============================================================================

func (m *Memory) GetPeriodBalance(_ context.Context, employeeID string, key calendar.Date) (*balance.PeriodBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pb, ok := m.ledger[dayKey{EmployeeID: employeeID, Date: key}]
	if !ok {
		return nil, nil
	}
	return &pb, nil
}

func (m *Memory) UpsertPeriodBalance(_ context.Context, pb balance.PeriodBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pb.Difference = balance.Round(pb.Difference)
	pb.CarryOver = balance.Round(pb.CarryOver)
	pb.UpdatedAt = time.Now().UTC()
	m.ledger[dayKey{EmployeeID: pb.EmployeeID, Date: pb.PeriodKey}] = pb
	return nil
}

func (m *Memory) ListPeriodBalances(_ context.Context, employeeID string) ([]balance.PeriodBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []balance.PeriodBalance
	for k, pb := range m.ledger {
		if k.EmployeeID == employeeID {
			result = append(result, pb)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PeriodKey.Before(result[j].PeriodKey) })
	return result, nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return nil
}
