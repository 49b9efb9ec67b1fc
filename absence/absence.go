// Package absence turns multi-day absence requests into the per-day
// AbsenceEntry rows the balance engine reads.
package absence

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/time-balance/balance"
	"github.com/warp/time-balance/calendar"
)

// =============================================================================
// ABSENCE KINDS
// =============================================================================

// Kind is the reason for an absence. It is stored as balance.AbsenceType.
type Kind string

const (
	KindVacation      Kind = "vacation"
	KindSick          Kind = "sick"
	KindDayOff        Kind = "day_off"
	KindPublicHoliday Kind = "public_holiday"
	KindTraining      Kind = "training"
	KindOther         Kind = "other"
)

var kinds = []Kind{KindVacation, KindSick, KindDayOff, KindPublicHoliday, KindTraining, KindOther}

// Kinds lists every known kind.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// ParseKind is case-insensitive. An empty string is KindOther.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindOther, nil
	}
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &balance.InvalidEntryError{Field: "type", Reason: fmt.Sprintf("unknown absence type %q", s)}
}

func (k Kind) AbsenceType() balance.AbsenceType { return balance.AbsenceType(k) }

// =============================================================================
// REQUEST
// =============================================================================

// Request is an absence over the inclusive range [From, To].
type Request struct {
	EmployeeID string
	Kind       Kind
	From       calendar.Date
	To         calendar.Date
	Comment    string

	// Hours overrides the credit of every expanded day (half days).
	// Nil credits the scheduled hours of each day.
	Hours *decimal.Decimal
}

// Entries expands the request against the employee's schedule. Days with
// nothing scheduled (weekends, a free Friday) produce no entry.
func (r Request) Entries(schedule balance.WeeklySchedule) ([]balance.AbsenceEntry, error) {
	if r.EmployeeID == "" {
		return nil, &balance.InvalidEntryError{Field: "employee_id", Reason: "required"}
	}
	if r.Hours != nil && (r.Hours.IsNegative() || r.Hours.GreaterThan(decimal.NewFromInt(24))) {
		return nil, &balance.InvalidEntryError{Field: "hours", Reason: "must be between 0 and 24"}
	}

	entries, err := expand(schedule, r.Kind, r.From, r.To, r.Comment, r.Hours)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].EmployeeID = r.EmployeeID
	}
	return entries, nil
}

// Expand returns one entry per scheduled day of [from, to], each crediting
// that day's expected hours. EmployeeID is left empty.
func Expand(schedule balance.WeeklySchedule, kind Kind, from, to calendar.Date, comment string) ([]balance.AbsenceEntry, error) {
	return expand(schedule, kind, from, to, comment, nil)
}

func expand(schedule balance.WeeklySchedule, kind Kind, from, to calendar.Date, comment string, hours *decimal.Decimal) ([]balance.AbsenceEntry, error) {
	if from.IsZero() || to.IsZero() {
		return nil, &balance.InvalidEntryError{Field: "from", Reason: "from and to are required"}
	}
	if to.Before(from) {
		return nil, &balance.InvalidEntryError{Field: "to", Reason: fmt.Sprintf("%s is before %s", to, from)}
	}
	if kind == "" {
		kind = KindOther
	}

	var entries []balance.AbsenceEntry
	w := calendar.NewRange(from, to.AddDays(1)).Walk()
	for w.Next() {
		day := w.Day().Date
		expected := balance.ExpectedHours(schedule, day)
		if !expected.IsPositive() {
			continue
		}
		credit := expected
		if hours != nil {
			credit = *hours
		}
		entries = append(entries, balance.AbsenceEntry{
			Date:          day,
			Type:          kind.AbsenceType(),
			CreditedHours: balance.Round(credit),
			Comment:       comment,
		})
	}
	if err := w.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
