package balance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/time-balance/balance"
	"github.com/warp/time-balance/calendar"
)

func TestMonthPeriod_Keys(t *testing.T) {
	p, err := balance.MonthPeriod(2024, 1)
	require.NoError(t, err)

	assert.Equal(t, balance.PeriodMonth, p.Type)
	assert.Equal(t, "2024-01-01", p.Key.String())
	assert.Equal(t, "2023-12-01", p.PriorKey.String(), "January chains off December of the previous year")
	assert.Equal(t, "[2024-01-01, 2024-02-01)", p.Range.String())
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name      string
		typ, year string
		value     string
		label     string
		key       string
		priorKey  string
		days      int
	}{
		{"month", "month", "2024", "2", "2024-02", "2024-02-01", "2024-01-01", 29},
		{"month uppercase type", "MONTH", "2023", "12", "2023-12", "2023-12-01", "2023-11-01", 31},
		{"quarter with Q", "quarter", "2024", "Q1", "2024-Q1", "2024-01-01", "2023-12-01", 91},
		{"quarter lowercase q", "quarter", "2024", "q3", "2024-Q3", "2024-07-01", "2024-06-01", 92},
		{"quarter numeric", "quarter", "2024", "4", "2024-Q4", "2024-10-01", "2024-09-01", 92},
		{"year", "year", "2023", "", "2023", "2023-01-01", "2022-12-01", 365},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := balance.ParsePeriod(tt.typ, tt.year, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.label, p.Label)
			assert.Equal(t, tt.key, p.Key.String())
			assert.Equal(t, tt.priorKey, p.PriorKey.String())
			assert.Equal(t, tt.days, p.Range.Len())
		})
	}
}

func TestParsePeriod_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		typ, year string
		value     string
		field     string
	}{
		{"month zero", "month", "2024", "0", "month"},
		{"month thirteen", "month", "2024", "13", "month"},
		{"month not numeric", "month", "2024", "feb", "month"},
		{"year not numeric", "month", "twenty", "2", "year"},
		{"year empty", "year", "", "", "year"},
		{"year out of range", "year", "12", "", "year"},
		{"quarter five", "quarter", "2024", "Q5", "quarter"},
		{"quarter garbage", "quarter", "2024", "first", "quarter"},
		{"unsupported type", "week", "2024", "1", "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := balance.ParsePeriod(tt.typ, tt.year, tt.value)

			var pe *balance.InvalidPeriodError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.field, pe.Field)
			assert.ErrorIs(t, err, balance.ErrInvalidPeriod)
			assert.True(t, balance.IsClientError(err))
		})
	}
}

func TestNewPeriod_DerivesKeysFromStart(t *testing.T) {
	p := balance.NewPeriod(calendar.NewRange(date("2024-03-01"), date("2024-06-01")))

	assert.Equal(t, balance.PeriodCustom, p.Type)
	assert.Equal(t, "2024-03-01", p.Key.String())
	assert.Equal(t, "2024-02-01", p.PriorKey.String())
}
