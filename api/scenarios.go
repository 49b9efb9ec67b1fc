/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for demos. Each scenario creates employees with a weekly schedule,
	attendance, absences and, where useful, a stored prior carry-over.

AVAILABLE SCENARIOS:

	anna-february:  8h Mon-Fri, February 2024, one day worked, half-credited
	                sick day, 5.25h carried over from January
	part-time:      part-time-20 schedule, February 2024 with a vacation week
	overtime-q1:    full-time-40, 9h every weekday of Q1 2024

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Create employees from schedule presets via the factory
 3. Record attendance and absences
 4. Optionally seed the prior month's ledger row

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "anna-february"}

	GET /api/balances/anna/monthly?year=2024&month=2

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: balance endpoints used after loading
  - factory/schedule.go: schedule presets
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/warp/time-balance/absence"
	"github.com/warp/time-balance/balance"
	"github.com/warp/time-balance/calendar"
	"github.com/warp/time-balance/factory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	load func(ctx context.Context, h *Handler) error
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "anna-february",
			Name:        "Anna, February 2024",
			Description: "8h Mon-Fri, one day worked, a 4h-credited sick day and 5.25h carried over from January",
		},
		load: loadAnnaFebruaryScenario,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "part-time",
			Name:        "Part-Time With Vacation",
			Description: "4h Mon-Fri, February 2024 with a vacation week expanded from a period",
		},
		load: loadPartTimeScenario,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "overtime-q1",
			Name:        "Overtime Quarter",
			Description: "40h week, 9h worked every weekday of Q1 2024",
		},
		load: loadOvertimeQuarterScenario,
	},
}

// Scenarios lists the available demo scenarios.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	return out
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s.ScenarioDTO)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}

	if err := h.ApplyScenario(r.Context(), req.ScenarioID); err != nil {
		if errors.Is(err, errUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

var errUnknownScenario = errors.New("unknown scenario")

// ApplyScenario resets the store and loads scenario id. Used by the API
// and by the seed command.
func (h *Handler) ApplyScenario(ctx context.Context, id string) error {
	var found *scenario
	for i := range scenarios {
		if scenarios[i].ID == id {
			found = &scenarios[i]
			break
		}
	}
	if found == nil {
		return errUnknownScenario
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	h.currentScenario = ""

	if err := found.load(ctx, h); err != nil {
		return err
	}
	h.currentScenario = id
	h.log.Info().Str("scenario", id).Msg("scenario loaded")
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) newEmployee(ctx context.Context, id, name, email, preset string) (balance.Employee, error) {
	schedule, err := h.Schedules.Preset(preset)
	if err != nil {
		return balance.Employee{}, err
	}
	emp := balance.Employee{ID: id, Name: name, Email: email, Schedule: schedule}
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return balance.Employee{}, fmt.Errorf("save employee %s: %w", id, err)
	}
	return emp, nil
}

func (h *Handler) work(ctx context.Context, emp balance.Employee, date string, hours float64, comment string) error {
	return h.Store.SaveAttendance(ctx, balance.AttendanceEntry{
		ID:         uuid.NewString(),
		EmployeeID: emp.ID,
		Date:       calendar.MustParseDate(date),
		Hours:      balance.Hours(hours),
		Comment:    comment,
	})
}

func loadAnnaFebruaryScenario(ctx context.Context, h *Handler) error {
	anna, err := h.newEmployee(ctx, "emp-anna", "Anna", "anna@example.com", factory.PresetFullTime40)
	if err != nil {
		return err
	}

	// January closed with 5.25h overtime
	if err := h.Store.UpsertPeriodBalance(ctx, balance.PeriodBalance{
		EmployeeID: anna.ID,
		PeriodKey:  calendar.MustParseDate("2024-01-01"),
		Difference: balance.Hours(5.25),
		CarryOver:  balance.Hours(5.25),
	}); err != nil {
		return err
	}

	if err := h.work(ctx, anna, "2024-02-05", 8, "project kickoff"); err != nil {
		return err
	}

	// Half-credited sick day: the day leaves the expected hours entirely
	return h.Store.SaveAbsences(ctx, []balance.AbsenceEntry{{
		ID:            uuid.NewString(),
		EmployeeID:    anna.ID,
		Date:          calendar.MustParseDate("2024-02-06"),
		Type:          absence.KindSick.AbsenceType(),
		CreditedHours: balance.Hours(4),
		Comment:       "doctor appointment",
	}})
}

func loadPartTimeScenario(ctx context.Context, h *Handler) error {
	ben, err := h.newEmployee(ctx, "emp-ben", "Ben", "ben@example.com", factory.PresetPartTime20)
	if err != nil {
		return err
	}

	vacation, err := absence.Request{
		EmployeeID: ben.ID,
		Kind:       absence.KindVacation,
		From:       calendar.MustParseDate("2024-02-12"),
		To:         calendar.MustParseDate("2024-02-18"),
		Comment:    "winter holiday",
	}.Entries(ben.Schedule)
	if err != nil {
		return err
	}
	for i := range vacation {
		vacation[i].ID = uuid.NewString()
	}
	if err := h.Store.SaveAbsences(ctx, vacation); err != nil {
		return err
	}

	w := calendar.MonthRange(2024, 2).Walk()
	for w.Next() {
		day := w.Day()
		if day.Date.IsWeekend() || day.Date.Day >= 12 && day.Date.Day <= 16 {
			continue
		}
		if err := h.work(ctx, ben, day.Date.String(), 4, ""); err != nil {
			return err
		}
	}
	return w.Err()
}

func loadOvertimeQuarterScenario(ctx context.Context, h *Handler) error {
	dita, err := h.newEmployee(ctx, "emp-dita", "Dita", "dita@example.com", factory.PresetFullTime40)
	if err != nil {
		return err
	}

	w := calendar.QuarterRange(2024, 1).Walk()
	for w.Next() {
		if w.Day().Date.IsWeekend() {
			continue
		}
		if err := h.work(ctx, dita, w.Day().Date.String(), 9, ""); err != nil {
			return err
		}
	}
	return w.Err()
}
