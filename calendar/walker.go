package calendar

import (
	"errors"
	"fmt"
	"time"
)

// MaxWalkDays bounds a single walk: one year plus slack.
const MaxWalkDays = 370

// ErrExcessiveRange is returned when a walk would exceed MaxWalkDays.
var ErrExcessiveRange = errors.New("excessive date range")

// ExcessiveRangeError reports the range that hit the iteration bound.
type ExcessiveRangeError struct {
	Range Range
	Limit int
}

func (e *ExcessiveRangeError) Error() string {
	return fmt.Sprintf("excessive date range %s: more than %d days", e.Range, e.Limit)
}

func (e *ExcessiveRangeError) Unwrap() error {
	return ErrExcessiveRange
}

// =============================================================================
// RANGE - Half-open day interval [Start, End)
// =============================================================================

type Range struct {
	Start Date
	End   Date
}

func NewRange(start, end Date) Range { return Range{Start: start, End: end} }

// Contains reports whether d falls in [Start, End).
func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && d.Before(r.End)
}

// Len is the number of days in the range, 0 when End <= Start.
func (r Range) Len() int {
	if !r.Start.Before(r.End) {
		return 0
	}
	return r.Start.DaysUntil(r.End)
}

func (r Range) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + ")"
}

// Walk returns a lazy walker over the range.
func (r Range) Walk() *Walker {
	return &Walker{rng: r, next: r.Start}
}

// Days materializes the range. It fails with ErrExcessiveRange instead of
// returning a truncated slice.
func (r Range) Days() ([]Day, error) {
	var days []Day
	w := r.Walk()
	for w.Next() {
		days = append(days, w.Day())
	}
	if err := w.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

// MonthRange covers one calendar month.
func MonthRange(year int, month time.Month) Range {
	start := NewDate(year, month, 1)
	return Range{Start: start, End: start.AddMonths(1)}
}

// QuarterRange covers quarter q (1-4) of year.
func QuarterRange(year, q int) Range {
	start := NewDate(year, time.Month((q-1)*3+1), 1)
	return Range{Start: start, End: start.AddMonths(3)}
}

// YearRange covers Jan 1 through Dec 31 of year.
func YearRange(year int) Range {
	return Range{Start: NewDate(year, time.January, 1), End: NewDate(year+1, time.January, 1)}
}

// =============================================================================
// WALKER - Lazy day sequence
// =============================================================================

// Day is one step of a walk.
type Day struct {
	Date    Date
	Weekday time.Weekday
}

// Walker yields the days of a Range in ascending order. Usage follows
// bufio.Scanner:
//
//	w := rng.Walk()
//	for w.Next() {
//	    day := w.Day()
//	}
//	if err := w.Err(); err != nil { ... }
//
// A walker is restartable with Reset. It is not safe for concurrent use.
type Walker struct {
	rng   Range
	next  Date
	cur   Day
	count int
	err   error
}

// Next advances to the following day. It returns false at the end of the
// range or when the MaxWalkDays bound is hit; Err distinguishes the two.
func (w *Walker) Next() bool {
	if w.err != nil || !w.next.Before(w.rng.End) {
		return false
	}
	if w.count >= MaxWalkDays {
		w.err = &ExcessiveRangeError{Range: w.rng, Limit: MaxWalkDays}
		return false
	}
	w.cur = Day{Date: w.next, Weekday: w.next.Weekday()}
	w.next = w.next.AddDays(1)
	w.count++
	return true
}

// Day returns the current day. Only valid after Next returned true.
func (w *Walker) Day() Day { return w.cur }

// Err returns a non-nil *ExcessiveRangeError if the walk was aborted.
func (w *Walker) Err() error { return w.err }

// Reset rewinds the walker to the start of its range.
func (w *Walker) Reset() {
	w.next = w.rng.Start
	w.cur = Day{}
	w.count = 0
	w.err = nil
}
