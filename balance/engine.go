/*
engine.go - Period aggregation

PURPOSE:
  Computes the time balance of one employee for one period and persists the
  resulting carry-over. Monthly, quarterly and yearly reports all run through
  ComputeBalance; they only differ in the Period they pass.

ALGORITHM:
  1. Resolve the employee by case-insensitive name
  2. Load attendance and absences in [Start, End)
  3. actual   = sum(attendance.Hours) + sum(absence.CreditedHours)
  4. excluded = set of absence dates
  5. expected = sum over walked days of ExpectedHours(day), only when >0 and
                the day is not excluded
  6. prior    = carry-over stored at PriorKey, 0 when absent
  7. difference = actual - expected; carry-over = prior + difference
  8. Upsert (employee, Key) with difference and carry-over (2 places)
  9. Return the full breakdown

EXAMPLE (8h Mon-Fri, February 2024, 21 weekdays):
  attendance 02-05 8h, absence 02-06 4h, prior 5.25
  actual = 12, expected = 168 - 8 = 160, difference = -148
  carry-over = 5.25 - 148 = -142.75

SIDE EFFECTS:
  Storage reads and the single upsert. No logging; callers log around the
  returned Result or error.
*/
package balance

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/time-balance/calendar"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// ComputeMonth computes one calendar month.
func (e *Engine) ComputeMonth(ctx context.Context, employeeName string, year, month int) (*Result, error) {
	p, err := MonthPeriod(year, month)
	if err != nil {
		return nil, err
	}
	return e.ComputeBalance(ctx, employeeName, p)
}

// ComputePeriod computes a month, quarter or year from raw caller input.
func (e *Engine) ComputePeriod(ctx context.Context, employeeName, periodType, year, value string) (*Result, error) {
	p, err := ParsePeriod(periodType, year, value)
	if err != nil {
		return nil, err
	}
	return e.ComputeBalance(ctx, employeeName, p)
}

// ComputeBalance is the single aggregation path. On any error nothing is
// persisted and no Result is returned.
func (e *Engine) ComputeBalance(ctx context.Context, employeeName string, p Period) (*Result, error) {
	name := strings.TrimSpace(employeeName)
	if name == "" {
		return nil, &EmployeeNotFoundError{Name: employeeName}
	}

	emp, err := e.store.FindEmployeeByName(ctx, name)
	if err != nil {
		return nil, storageErr("find employee", err)
	}
	if emp == nil {
		return nil, &EmployeeNotFoundError{Name: employeeName}
	}

	attendance, err := e.store.ListAttendance(ctx, emp.ID, p.Range)
	if err != nil {
		return nil, storageErr("list attendance", err)
	}
	absences, err := e.store.ListAbsences(ctx, emp.ID, p.Range)
	if err != nil {
		return nil, storageErr("list absences", err)
	}

	worked := decimal.Zero
	for _, a := range attendance {
		worked = worked.Add(a.Hours)
	}

	credited := decimal.Zero
	excluded := make(map[calendar.Date]struct{}, len(absences))
	for _, a := range absences {
		credited = credited.Add(a.CreditedHours)
		excluded[a.Date] = struct{}{}
	}

	expected, expectedDays, err := expectedTotal(emp.Schedule, p.Range, excluded)
	if err != nil {
		return nil, err
	}

	prior := decimal.Zero
	stored, err := e.store.GetPeriodBalance(ctx, emp.ID, p.PriorKey)
	if err != nil {
		return nil, storageErr("get carry-over", err)
	}
	if stored != nil {
		prior = stored.CarryOver
	}

	actual := worked.Add(credited)
	// carry-over == prior + difference, both as displayed.
	difference := Round(actual.Sub(expected))
	prior = Round(prior)

	res := &Result{
		Employee:       *emp,
		Period:         p,
		PriorCarryOver: prior,
		ExpectedHours:  Round(expected),
		WorkedHours:    Round(worked),
		AbsenceHours:   Round(credited),
		ActualHours:    Round(actual),
		Difference:     difference,
		CarryOver:      prior.Add(difference),
		ExpectedDays:   expectedDays,
		Attendance:     attendance,
		Absences:       absences,
	}

	if err := e.store.UpsertPeriodBalance(ctx, res.Ledger()); err != nil {
		return nil, storageErr("upsert balance", err)
	}
	return res, nil
}

// expectedTotal walks rng and sums the expected hours of every day that is
// scheduled (>0) and has no absence.
func expectedTotal(schedule WeeklySchedule, rng calendar.Range, excluded map[calendar.Date]struct{}) (decimal.Decimal, int, error) {
	total := decimal.Zero
	days := 0

	w := rng.Walk()
	for w.Next() {
		day := w.Day().Date
		h := ExpectedHours(schedule, day)
		if !h.IsPositive() {
			continue
		}
		if _, ok := excluded[day]; ok {
			continue
		}
		total = total.Add(h)
		days++
	}
	if err := w.Err(); err != nil {
		return decimal.Zero, 0, err
	}
	return total, days, nil
}
