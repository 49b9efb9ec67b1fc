package absence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/time-balance/balance"
	"github.com/warp/time-balance/calendar"
)

func d(s string) calendar.Date { return calendar.MustParseDate(s) }

func TestExpand_SkipsWeekends(t *testing.T) {
	// Fri 2024-02-09 .. Tue 2024-02-13
	entries, err := Expand(balance.UniformSchedule(8), KindVacation, d("2024-02-09"), d("2024-02-13"), "ski trip")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "2024-02-09", entries[0].Date.String())
	assert.Equal(t, "2024-02-12", entries[1].Date.String())
	assert.Equal(t, "2024-02-13", entries[2].Date.String())
	for _, e := range entries {
		assert.Equal(t, balance.AbsenceType("vacation"), e.Type)
		assert.Equal(t, "8", e.CreditedHours.String())
		assert.Equal(t, "ski trip", e.Comment)
		assert.Empty(t, e.EmployeeID)
	}
}

func TestExpand_CreditsScheduledHoursPerDay(t *testing.T) {
	schedule := balance.UniformSchedule(8)
	schedule.Friday = balance.Hours(0)
	schedule.Thursday = balance.Hours(6.5)

	// Wed..Fri, Friday not scheduled
	entries, err := Expand(schedule, KindSick, d("2024-02-07"), d("2024-02-09"), "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "8", entries[0].CreditedHours.String())
	assert.Equal(t, "6.5", entries[1].CreditedHours.String())
}

func TestExpand_SingleDayAndWeekendOnly(t *testing.T) {
	entries, err := Expand(balance.UniformSchedule(8), KindDayOff, d("2024-02-05"), d("2024-02-05"), "")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = Expand(balance.UniformSchedule(8), KindDayOff, d("2024-02-10"), d("2024-02-11"), "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExpand_Rejects(t *testing.T) {
	_, err := Expand(balance.UniformSchedule(8), KindVacation, d("2024-02-13"), d("2024-02-09"), "")
	assert.ErrorIs(t, err, balance.ErrInvalidEntry)

	_, err = Expand(balance.UniformSchedule(8), KindVacation, calendar.Date{}, d("2024-02-09"), "")
	assert.ErrorIs(t, err, balance.ErrInvalidEntry)

	_, err = Expand(balance.UniformSchedule(8), KindVacation, d("2024-01-01"), d("2025-12-31"), "")
	assert.ErrorIs(t, err, balance.ErrExcessiveRange)
}

func TestRequest_Entries(t *testing.T) {
	half := balance.Hours(4)
	req := Request{
		EmployeeID: "emp-anna",
		Kind:       KindTraining,
		From:       d("2024-02-05"),
		To:         d("2024-02-06"),
		Hours:      &half,
	}

	entries, err := req.Entries(balance.UniformSchedule(8))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "emp-anna", e.EmployeeID)
		assert.Equal(t, "4", e.CreditedHours.String())
		assert.NoError(t, e.Validate())
	}

	req.EmployeeID = ""
	_, err = req.Entries(balance.UniformSchedule(8))
	assert.ErrorIs(t, err, balance.ErrInvalidEntry)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Public_Holiday")
	require.NoError(t, err)
	assert.Equal(t, KindPublicHoliday, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindOther, k)

	_, err = ParseKind("sabbatical")
	assert.ErrorIs(t, err, balance.ErrInvalidEntry)

	assert.Len(t, Kinds(), 6)
}
