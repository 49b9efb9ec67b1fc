/*
Package calendar provides the date-only primitives the balance engine runs on.

PURPOSE:
  Every component that reasons about days (the walker, the expectation
  resolver, absence exclusion, period keys) shares ONE representation:
  a Year-Month-Day tuple. No time-of-day, no location.

KEY CONCEPTS:
  - Date:   a calendar day, comparable with ==, usable as a map key
  - Range:  half-open interval [Start, End) of days
  - Walker: lazy, restartable sequence of days over a Range

TIMEZONES:
  Weekdays and day arithmetic are evaluated on the UTC midnight instant of
  the date. A time.Time converted with FromTime is first moved to UTC, so
  the walker and the expectation resolver always agree on which day an
  instant belongs to.

SEE ALSO:
  - walker.go: Range iteration with the 370 day safety bound
  - balance/expectation.go: weekday -> expected hours
*/
package calendar

import (
	"fmt"
	"time"
)

// LayoutISO is the wire and storage format of a Date.
const LayoutISO = "2006-01-02"

// =============================================================================
// DATE - Year-Month-Day tuple
// =============================================================================

type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate normalizes overflowing components the same way time.Date does,
// so NewDate(2024, 13, 1) is 2025-01-01.
func NewDate(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime extracts the UTC calendar date of t.
func FromTime(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(LayoutISO, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return FromTime(t), nil
}

// MustParseDate is ParseDate for literals; it panics on malformed input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func Today() Date { return FromTime(time.Now().UTC()) }

// Time returns the UTC midnight instant of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Comparison
func (d Date) Before(other Date) bool { return d.compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.compare(other) > 0 }
func (d Date) Equal(other Date) bool  { return d == other }

func (d Date) compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return d.Year - other.Year
	case d.Month != other.Month:
		return int(d.Month) - int(other.Month)
	default:
		return d.Day - other.Day
	}
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return FromTime(d.Time().AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return NewDate(d.Year, d.Month+time.Month(n), 1).withDay(d.Day) }

// withDay clamps day to the month length so that Jan 31 + 1 month is Feb 29/28,
// not a date in March.
func (d Date) withDay(day int) Date {
	last := d.LastOfMonth().Day
	if day > last {
		day = last
	}
	return Date{Year: d.Year, Month: d.Month, Day: day}
}

// DaysUntil returns the number of days from d to other (negative if other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

// Properties
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }
func (d Date) IsWeekend() bool       { wd := d.Weekday(); return wd == time.Saturday || wd == time.Sunday }
func (d Date) IsZero() bool          { return d == Date{} }
func (d Date) FirstOfMonth() Date    { return Date{Year: d.Year, Month: d.Month, Day: 1} }
func (d Date) LastOfMonth() Date     { return NewDate(d.Year, d.Month+1, 1).AddDays(-1) }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText implements encoding.TextMarshaler so Dates render as YYYY-MM-DD in JSON.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
