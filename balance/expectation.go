package balance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/time-balance/calendar"
)

// ExpectedHours returns the contractual hours of day under schedule.
// Saturday and Sunday are always 0, as is any weekday without hours.
// The result is never negative.
func ExpectedHours(schedule WeeklySchedule, day calendar.Date) decimal.Decimal {
	return schedule.For(day.Weekday())
}

// ExpectedHoursAt resolves an instant to its UTC calendar date first, the
// same convention the walker uses.
func ExpectedHoursAt(schedule WeeklySchedule, t time.Time) decimal.Decimal {
	return ExpectedHours(schedule, calendar.FromTime(t))
}

// For returns the hours scheduled on weekday wd.
func (s WeeklySchedule) For(wd time.Weekday) decimal.Decimal {
	var h decimal.Decimal
	switch wd {
	case time.Monday:
		h = s.Monday
	case time.Tuesday:
		h = s.Tuesday
	case time.Wednesday:
		h = s.Wednesday
	case time.Thursday:
		h = s.Thursday
	case time.Friday:
		h = s.Friday
	default:
		return decimal.Zero
	}
	if h.IsNegative() {
		return decimal.Zero
	}
	return h
}
