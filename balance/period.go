package balance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/warp/time-balance/calendar"
)

// =============================================================================
// PERIOD - What a single computation covers and how it chains
// =============================================================================

// Period parametrizes one computation:
//   - Range:    the days aggregated, [Start, End)
//   - Key:      the ledger row written, first day of the period's first month
//   - PriorKey: the ledger row read as starting carry-over, first day of the
//     month before the period starts
//
// Carry-over always chains at month granularity. A quarter or year starts
// from the single month preceding it, there is no separate quarterly ledger.
type Period struct {
	Type     PeriodType
	Label    string
	Range    calendar.Range
	Key      calendar.Date
	PriorKey calendar.Date
}

type PeriodType string

const (
	PeriodMonth   PeriodType = "month"
	PeriodQuarter PeriodType = "quarter"
	PeriodYear    PeriodType = "year"
	PeriodCustom  PeriodType = "custom"
)

// minYear and maxYear bound accepted years to something a payroll system
// can mean.
const (
	minYear = 1900
	maxYear = 9999
)

// NewPeriod builds a month-aligned period over rng. Key and PriorKey are
// derived from rng.Start.
func NewPeriod(rng calendar.Range) Period {
	key := rng.Start.FirstOfMonth()
	return Period{
		Type:     PeriodCustom,
		Label:    rng.String(),
		Range:    rng,
		Key:      key,
		PriorKey: key.AddMonths(-1),
	}
}

func MonthPeriod(year, month int) (Period, error) {
	if err := checkYear(year); err != nil {
		return Period{}, err
	}
	if month < 1 || month > 12 {
		return Period{}, &InvalidPeriodError{Field: "month", Value: strconv.Itoa(month), Reason: "must be between 1 and 12"}
	}
	p := NewPeriod(calendar.MonthRange(year, time.Month(month)))
	p.Type = PeriodMonth
	p.Label = fmt.Sprintf("%04d-%02d", year, month)
	return p, nil
}

func QuarterPeriod(year, quarter int) (Period, error) {
	if err := checkYear(year); err != nil {
		return Period{}, err
	}
	if quarter < 1 || quarter > 4 {
		return Period{}, &InvalidPeriodError{Field: "quarter", Value: strconv.Itoa(quarter), Reason: "must be between 1 and 4"}
	}
	p := NewPeriod(calendar.QuarterRange(year, quarter))
	p.Type = PeriodQuarter
	p.Label = fmt.Sprintf("%04d-Q%d", year, quarter)
	return p, nil
}

func YearPeriod(year int) (Period, error) {
	if err := checkYear(year); err != nil {
		return Period{}, err
	}
	p := NewPeriod(calendar.YearRange(year))
	p.Type = PeriodYear
	p.Label = fmt.Sprintf("%04d", year)
	return p, nil
}

// ParsePeriod builds a period from raw caller input.
//
//	ParsePeriod("month", "2024", "2")   -> 2024-02
//	ParsePeriod("quarter", "2024", "Q1") -> 2024-Q1 (also "1")
//	ParsePeriod("year", "2024", "")      -> 2024
func ParsePeriod(periodType, year, value string) (Period, error) {
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return Period{}, &InvalidPeriodError{Field: "year", Value: year, Reason: "must be numeric"}
	}

	switch PeriodType(strings.ToLower(strings.TrimSpace(periodType))) {
	case PeriodMonth:
		m, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return Period{}, &InvalidPeriodError{Field: "month", Value: value, Reason: "must be numeric"}
		}
		return MonthPeriod(y, m)

	case PeriodQuarter:
		raw := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(value)), "Q")
		q, err := strconv.Atoi(raw)
		if err != nil {
			return Period{}, &InvalidPeriodError{Field: "quarter", Value: value, Reason: "must be 1-4 or Q1-Q4"}
		}
		return QuarterPeriod(y, q)

	case PeriodYear:
		return YearPeriod(y)

	default:
		return Period{}, &InvalidPeriodError{Field: "type", Value: periodType, Reason: "must be one of month, quarter, year"}
	}
}

func checkYear(year int) error {
	if year < minYear || year > maxYear {
		return &InvalidPeriodError{Field: "year", Value: strconv.Itoa(year), Reason: fmt.Sprintf("must be between %d and %d", minYear, maxYear)}
	}
	return nil
}
