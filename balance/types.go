/*
Package balance provides the time-balance calculation engine.

PURPOSE:
  Given an employee's weekly schedule plus raw attendance and absence
  records, derive the hours the employee was expected to work in a period,
  compare them against what was actually worked or credited, and chain the
  surplus/deficit into a running carry-over ledger keyed by period.

KEY CONCEPTS IN THIS FILE (types.go):
  - WeeklySchedule:  Mon-Fri contractual hours, weekends implicitly 0
  - AttendanceEntry: one day of actual worked hours
  - AbsenceEntry:    one day of credited non-worked hours
  - PeriodBalance:   persisted ledger row (difference + carry-over)
  - Result:          full breakdown returned to reporting callers

PRECISION:
  All hour values are decimal.Decimal. Sums run at full precision and are
  rounded to 2 places only at the output boundary, using the same rounding
  that is persisted to the ledger.

SEE ALSO:
  - engine.go: ComputeBalance, the single aggregation code path
  - period.go: period keys and prior-key derivation
  - store.go:  collaborator interfaces
*/
package balance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/time-balance/calendar"
)

// OutputPlaces is the number of decimal places kept at the output boundary.
const OutputPlaces = 2

// Round applies the output rounding policy.
func Round(d decimal.Decimal) decimal.Decimal { return d.Round(OutputPlaces) }

// Hours builds a decimal hour value from a float literal.
func Hours(h float64) decimal.Decimal { return decimal.NewFromFloat(h) }

// =============================================================================
// WEEKLY SCHEDULE
// =============================================================================

// WeeklySchedule maps weekdays to contractual hours. A zero field means the
// day is not expected, which is also what an undefined field resolves to.
type WeeklySchedule struct {
	Monday    decimal.Decimal `json:"monday"`
	Tuesday   decimal.Decimal `json:"tuesday"`
	Wednesday decimal.Decimal `json:"wednesday"`
	Thursday  decimal.Decimal `json:"thursday"`
	Friday    decimal.Decimal `json:"friday"`
}

// UniformSchedule assigns the same hours to every weekday.
func UniformSchedule(hours float64) WeeklySchedule {
	h := Hours(hours)
	return WeeklySchedule{Monday: h, Tuesday: h, Wednesday: h, Thursday: h, Friday: h}
}

// Weekly returns the total contractual hours of one week.
func (s WeeklySchedule) Weekly() decimal.Decimal {
	return s.Monday.Add(s.Tuesday).Add(s.Wednesday).Add(s.Thursday).Add(s.Friday)
}

// =============================================================================
// EMPLOYEE AND RAW ENTRIES
// =============================================================================

type Employee struct {
	ID        string
	Name      string
	Email     string
	Schedule  WeeklySchedule
	CreatedAt time.Time
}

// AttendanceEntry is one day of worked hours, already net of breaks.
// At most one per (employee, date).
type AttendanceEntry struct {
	ID         string
	EmployeeID string
	Date       calendar.Date
	Hours      decimal.Decimal
	Comment    string
}

// AbsenceType is opaque to the engine; the absence package enumerates it.
type AbsenceType string

// AbsenceEntry is one day of credited non-worked hours. At most one per
// (employee, date). Its day never accrues expected hours, even when the
// credited value is 0.
type AbsenceEntry struct {
	ID            string
	EmployeeID    string
	Date          calendar.Date
	Type          AbsenceType
	CreditedHours decimal.Decimal
	Comment       string
}

// Validate checks the entry invariants the engine relies on.
func (e AttendanceEntry) Validate() error {
	return validateEntry(e.EmployeeID, e.Date, e.Hours, "hours")
}

func (e AbsenceEntry) Validate() error {
	return validateEntry(e.EmployeeID, e.Date, e.CreditedHours, "credited_hours")
}

func validateEntry(employeeID string, date calendar.Date, hours decimal.Decimal, field string) error {
	switch {
	case employeeID == "":
		return &InvalidEntryError{Field: "employee_id", Reason: "required"}
	case date.IsZero():
		return &InvalidEntryError{Field: "date", Reason: "required"}
	case hours.IsNegative():
		return &InvalidEntryError{Field: field, Reason: "must not be negative"}
	case hours.GreaterThan(decimal.NewFromInt(24)):
		return &InvalidEntryError{Field: field, Reason: "must not exceed 24"}
	}
	return nil
}

// =============================================================================
// LEDGER ROW AND RESULT
// =============================================================================

// PeriodBalance is the persisted ledger row, unique per (EmployeeID, PeriodKey).
type PeriodBalance struct {
	EmployeeID string
	PeriodKey  calendar.Date
	Difference decimal.Decimal
	CarryOver  decimal.Decimal
	UpdatedAt  time.Time
}

// Result is the full breakdown of one computation.
type Result struct {
	Employee Employee
	Period   Period

	PriorCarryOver decimal.Decimal
	ExpectedHours  decimal.Decimal
	WorkedHours    decimal.Decimal
	AbsenceHours   decimal.Decimal
	ActualHours    decimal.Decimal
	Difference     decimal.Decimal
	CarryOver      decimal.Decimal

	// ExpectedDays counts the days that contributed to ExpectedHours.
	ExpectedDays int

	Attendance []AttendanceEntry
	Absences   []AbsenceEntry
}

// Ledger returns the row persisted for this result.
func (r *Result) Ledger() PeriodBalance {
	return PeriodBalance{
		EmployeeID: r.Employee.ID,
		PeriodKey:  r.Period.Key,
		Difference: r.Difference,
		CarryOver:  r.CarryOver,
	}
}
