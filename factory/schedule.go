/*
Package factory provides JSON to Go weekly schedule conversion.

PURPOSE:
  Converts JSON schedule documents into balance.WeeklySchedule values so
  working-time models can be configured without code changes. HR sends
  either a preset name, explicit per-weekday hours, or a preset with a few
  weekdays overridden.

JSON SCHEMA:
  {
    "preset": "full-time-40",
    "friday": 6.5
  }

  {
    "monday": 8, "tuesday": 8, "wednesday": 8, "thursday": 8, "friday": 0
  }

PRESETS:
  full-time-40    8h Mon-Fri
  full-time-38.5  7.7h Mon-Fri
  part-time-20    4h Mon-Fri
  four-day-32     8h Mon-Thu, Friday off

RULES:
  - Omitted weekdays are 0 (or the preset's value when a preset is given)
  - Negative hours and hours above 24 are rejected
  - Saturday and Sunday are never scheduled

USAGE:
  f := factory.NewScheduleFactory()
  schedule, err := f.ParseSchedule(`{"preset":"part-time-20"}`)

SEE ALSO:
  - balance/types.go: WeeklySchedule
  - balance/expectation.go: how a schedule maps to expected hours
*/
package factory

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/time-balance/balance"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ScheduleJSON is the JSON representation of a weekly schedule.
type ScheduleJSON struct {
	Preset    string           `json:"preset,omitempty"`
	Monday    *decimal.Decimal `json:"monday,omitempty"`
	Tuesday   *decimal.Decimal `json:"tuesday,omitempty"`
	Wednesday *decimal.Decimal `json:"wednesday,omitempty"`
	Thursday  *decimal.Decimal `json:"thursday,omitempty"`
	Friday    *decimal.Decimal `json:"friday,omitempty"`
}

// =============================================================================
// PRESETS
// =============================================================================

const (
	PresetFullTime40  = "full-time-40"
	PresetFullTime385 = "full-time-38.5"
	PresetPartTime20  = "part-time-20"
	PresetFourDay32   = "four-day-32"
)

var presets = map[string]balance.WeeklySchedule{
	PresetFullTime40:  balance.UniformSchedule(8),
	PresetFullTime385: balance.UniformSchedule(7.7),
	PresetPartTime20:  balance.UniformSchedule(4),
	PresetFourDay32: {
		Monday:    balance.Hours(8),
		Tuesday:   balance.Hours(8),
		Wednesday: balance.Hours(8),
		Thursday:  balance.Hours(8),
		Friday:    decimal.Zero,
	},
}

// PresetNames lists the known presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// SCHEDULE FACTORY
// =============================================================================

// ScheduleFactory converts JSON schedules to balance.WeeklySchedule.
type ScheduleFactory struct{}

// NewScheduleFactory creates a new schedule factory.
func NewScheduleFactory() *ScheduleFactory {
	return &ScheduleFactory{}
}

// ParseSchedule parses a JSON string into a WeeklySchedule.
func (f *ScheduleFactory) ParseSchedule(jsonStr string) (balance.WeeklySchedule, error) {
	var sj ScheduleJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return balance.WeeklySchedule{}, fmt.Errorf("failed to parse schedule JSON: %w", err)
	}
	return f.FromJSON(sj)
}

// Preset returns the schedule registered under name.
func (f *ScheduleFactory) Preset(name string) (balance.WeeklySchedule, error) {
	s, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return balance.WeeklySchedule{}, &balance.InvalidEntryError{
			Field:  "preset",
			Reason: fmt.Sprintf("unknown schedule preset %q (known: %s)", name, strings.Join(PresetNames(), ", ")),
		}
	}
	return s, nil
}

// FromJSON converts ScheduleJSON to a WeeklySchedule.
func (f *ScheduleFactory) FromJSON(sj ScheduleJSON) (balance.WeeklySchedule, error) {
	var s balance.WeeklySchedule
	if sj.Preset != "" {
		var err error
		if s, err = f.Preset(sj.Preset); err != nil {
			return balance.WeeklySchedule{}, err
		}
	}

	overrides := []struct {
		day   string
		value *decimal.Decimal
		dst   *decimal.Decimal
	}{
		{"monday", sj.Monday, &s.Monday},
		{"tuesday", sj.Tuesday, &s.Tuesday},
		{"wednesday", sj.Wednesday, &s.Wednesday},
		{"thursday", sj.Thursday, &s.Thursday},
		{"friday", sj.Friday, &s.Friday},
	}
	for _, o := range overrides {
		if o.value == nil {
			continue
		}
		if err := validateHours(o.day, *o.value); err != nil {
			return balance.WeeklySchedule{}, err
		}
		*o.dst = *o.value
	}

	return s, nil
}

// ToJSON converts a WeeklySchedule to ScheduleJSON with every weekday set.
func (f *ScheduleFactory) ToJSON(s balance.WeeklySchedule) ScheduleJSON {
	ptr := func(d decimal.Decimal) *decimal.Decimal { return &d }
	return ScheduleJSON{
		Monday:    ptr(s.Monday),
		Tuesday:   ptr(s.Tuesday),
		Wednesday: ptr(s.Wednesday),
		Thursday:  ptr(s.Thursday),
		Friday:    ptr(s.Friday),
	}
}

func validateHours(day string, h decimal.Decimal) error {
	if h.IsNegative() {
		return &balance.InvalidEntryError{Field: day, Reason: fmt.Sprintf("negative hours %s", h)}
	}
	if h.GreaterThan(decimal.NewFromInt(24)) {
		return &balance.InvalidEntryError{Field: day, Reason: fmt.Sprintf("%s hours exceed a day", h)}
	}
	return nil
}
