package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/time-balance/balance"
)

func TestParseSchedule_Presets(t *testing.T) {
	f := NewScheduleFactory()

	tests := []struct {
		preset string
		weekly string
		friday string
	}{
		{PresetFullTime40, "40", "8"},
		{PresetFullTime385, "38.5", "7.7"},
		{PresetPartTime20, "20", "4"},
		{PresetFourDay32, "32", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			s, err := f.ParseSchedule(`{"preset":"` + tt.preset + `"}`)
			require.NoError(t, err)
			assert.Equal(t, tt.weekly, s.Weekly().String())
			assert.Equal(t, tt.friday, s.Friday.String())
		})
	}
}

func TestParseSchedule_ExplicitAndOverride(t *testing.T) {
	f := NewScheduleFactory()

	s, err := f.ParseSchedule(`{"monday": 8, "tuesday": 8, "wednesday": "6.5"}`)
	require.NoError(t, err)
	assert.Equal(t, "6.5", s.Wednesday.String())
	assert.True(t, s.Thursday.IsZero(), "omitted weekdays are not scheduled")

	s, err = f.ParseSchedule(`{"preset": "FULL-TIME-40", "friday": 4}`)
	require.NoError(t, err)
	assert.Equal(t, "8", s.Monday.String())
	assert.Equal(t, "4", s.Friday.String())
	assert.Equal(t, "36", s.Weekly().String())
}

func TestParseSchedule_Rejects(t *testing.T) {
	f := NewScheduleFactory()

	_, err := f.ParseSchedule(`{"monday": -1}`)
	assert.ErrorIs(t, err, balance.ErrInvalidEntry)

	_, err = f.ParseSchedule(`{"friday": 25}`)
	assert.ErrorIs(t, err, balance.ErrInvalidEntry)

	_, err = f.ParseSchedule(`{"preset": "nine-to-nine"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "four-day-32")

	_, err = f.ParseSchedule(`{not json`)
	assert.Error(t, err)
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := NewScheduleFactory()
	in, err := f.Preset(PresetFourDay32)
	require.NoError(t, err)

	out, err := f.FromJSON(f.ToJSON(in))
	require.NoError(t, err)
	assert.Equal(t, in.Weekly().String(), out.Weekly().String())
	assert.Equal(t, []string{"four-day-32", "full-time-38.5", "full-time-40", "part-time-20"}, PresetNames())
}
