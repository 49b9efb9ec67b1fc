/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

HOURS:
  Every hour value is a decimal string ("-142.75"), never a float, so the
  two-place rounding of the engine survives the round trip.

VALIDATION:
  Request types carry go-playground/validator tags, checked by validate()
  in validation.go before a handler touches the store.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/schedule.go: ScheduleJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/time-balance/balance"
	"github.com/warp/time-balance/factory"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Email       string               `json:"email,omitempty"`
	Schedule    factory.ScheduleJSON `json:"schedule"`
	WeeklyHours decimal.Decimal      `json:"weekly_hours"`
	CreatedAt   string               `json:"created_at,omitempty"`
}

// CreateEmployeeRequest is the request to create an employee. Schedule may
// name a preset, list weekdays, or both.
type CreateEmployeeRequest struct {
	ID       string                `json:"id" validate:"omitempty,max=64"`
	Name     string                `json:"name" validate:"required,max=200"`
	Email    string                `json:"email" validate:"omitempty,email"`
	Schedule *factory.ScheduleJSON `json:"schedule" validate:"required"`
}

func toEmployeeDTO(e balance.Employee, f *factory.ScheduleFactory) EmployeeDTO {
	dto := EmployeeDTO{
		ID:          e.ID,
		Name:        e.Name,
		Email:       e.Email,
		Schedule:    f.ToJSON(e.Schedule),
		WeeklyHours: e.Schedule.Weekly(),
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// ENTRIES
// =============================================================================

// AttendanceRequest records the hours worked on one day.
type AttendanceRequest struct {
	Date    string           `json:"date" validate:"required,datetime=2006-01-02"`
	Hours   *decimal.Decimal `json:"hours" validate:"required"`
	Comment string           `json:"comment" validate:"max=500"`
}

// AbsenceRequest records a single day (date) or an inclusive period
// (from/to). Hours overrides the credit per day; it defaults to the
// scheduled hours.
type AbsenceRequest struct {
	Date    string           `json:"date" validate:"omitempty,datetime=2006-01-02"`
	From    string           `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To      string           `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Type    string           `json:"type" validate:"omitempty,oneof=vacation sick day_off public_holiday training other"`
	Hours   *decimal.Decimal `json:"hours"`
	Comment string           `json:"comment" validate:"max=500"`
}

type AttendanceDTO struct {
	ID      string          `json:"id,omitempty"`
	Date    string          `json:"date"`
	Hours   decimal.Decimal `json:"hours"`
	Comment string          `json:"comment,omitempty"`
}

type AbsenceDTO struct {
	ID            string          `json:"id,omitempty"`
	Date          string          `json:"date"`
	Type          string          `json:"type"`
	CreditedHours decimal.Decimal `json:"credited_hours"`
	Comment       string          `json:"comment,omitempty"`
}

// =============================================================================
// BALANCES
// =============================================================================

// BalanceDTO is the full breakdown of one computation.
type BalanceDTO struct {
	EmployeeID     string          `json:"employee_id"`
	EmployeeName   string          `json:"employee_name"`
	PeriodType     string          `json:"period_type"`
	Period         string          `json:"period"`
	Start          string          `json:"start"`
	End            string          `json:"end"`
	ExpectedDays   int             `json:"expected_days"`
	ExpectedHours  decimal.Decimal `json:"expected_hours"`
	WorkedHours    decimal.Decimal `json:"worked_hours"`
	AbsenceHours   decimal.Decimal `json:"absence_hours"`
	ActualHours    decimal.Decimal `json:"actual_hours"`
	Difference     decimal.Decimal `json:"difference"`
	PriorCarryOver decimal.Decimal `json:"prior_carry_over"`
	CarryOver      decimal.Decimal `json:"carry_over"`
	Attendance     []AttendanceDTO `json:"attendance"`
	Absences       []AbsenceDTO    `json:"absences"`
}

// ToBalanceDTO flattens a computation for JSON output (API and CLI).
func ToBalanceDTO(r *balance.Result) BalanceDTO {
	dto := BalanceDTO{
		EmployeeID:     r.Employee.ID,
		EmployeeName:   r.Employee.Name,
		PeriodType:     string(r.Period.Type),
		Period:         r.Period.Label,
		Start:          r.Period.Range.Start.String(),
		End:            r.Period.Range.End.String(),
		ExpectedDays:   r.ExpectedDays,
		ExpectedHours:  r.ExpectedHours,
		WorkedHours:    r.WorkedHours,
		AbsenceHours:   r.AbsenceHours,
		ActualHours:    r.ActualHours,
		Difference:     r.Difference,
		PriorCarryOver: r.PriorCarryOver,
		CarryOver:      r.CarryOver,
		Attendance:     make([]AttendanceDTO, len(r.Attendance)),
		Absences:       make([]AbsenceDTO, len(r.Absences)),
	}
	for i, a := range r.Attendance {
		dto.Attendance[i] = AttendanceDTO{ID: a.ID, Date: a.Date.String(), Hours: a.Hours, Comment: a.Comment}
	}
	for i, a := range r.Absences {
		dto.Absences[i] = AbsenceDTO{ID: a.ID, Date: a.Date.String(), Type: string(a.Type), CreditedHours: a.CreditedHours, Comment: a.Comment}
	}
	return dto
}

// LedgerEntryDTO is one stored carry-over row.
type LedgerEntryDTO struct {
	PeriodKey  string          `json:"period_key"`
	Difference decimal.Decimal `json:"difference"`
	CarryOver  decimal.Decimal `json:"carry_over"`
	UpdatedAt  string          `json:"updated_at,omitempty"`
}

// =============================================================================
// ADMIN / SCENARIOS
// =============================================================================

// MonthCloseRequest selects the month to close; empty closes the month
// before today.
type MonthCloseRequest struct {
	Year  int `json:"year" validate:"omitempty,min=1900,max=9999"`
	Month int `json:"month" validate:"omitempty,min=1,max=12"`
}

type MonthCloseResponse struct {
	Period   string            `json:"period"`
	Computed int               `json:"computed"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
