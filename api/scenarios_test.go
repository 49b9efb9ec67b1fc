/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario sets up the expected state against the SQL
	store and that the engine reports the documented numbers for it.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/time-balance/logger"
	"github.com/warp/time-balance/store/sqlite"
)

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewHandler(s, nil, logger.Nop())
}

func TestScenario_AnnaFebruary(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.ApplyScenario(ctx, "anna-february"))

	res, err := h.Engine.ComputeMonth(ctx, "Anna", 2024, 2)
	require.NoError(t, err)
	assert.Equal(t, "160", res.ExpectedHours.String())
	assert.Equal(t, "-148", res.Difference.String())
	assert.Equal(t, "-142.75", res.CarryOver.String())
}

func TestScenario_PartTime(t *testing.T) {
	// GIVEN: 4h Mon-Fri, vacation Mon 02-12 .. Sun 02-18, 4h worked otherwise
	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.ApplyScenario(ctx, "part-time"))

	// WHEN: Computing February 2024
	res, err := h.Engine.ComputeMonth(ctx, "ben", 2024, 2)
	require.NoError(t, err)

	// THEN: Vacation days leave the expectation and are credited in full
	assert.Len(t, res.Absences, 5, "the weekend of the vacation period is not expanded")
	assert.Equal(t, 16, res.ExpectedDays)
	assert.Equal(t, "64", res.ExpectedHours.String())
	assert.Equal(t, "64", res.WorkedHours.String())
	assert.Equal(t, "20", res.AbsenceHours.String())
	assert.Equal(t, "20", res.Difference.String())
}

func TestScenario_OvertimeQuarter(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.ApplyScenario(ctx, "overtime-q1"))

	res, err := h.Engine.ComputePeriod(ctx, "Dita", "quarter", "2024", "1")
	require.NoError(t, err)
	assert.Equal(t, "585", res.ActualHours.String())
	assert.Equal(t, "65", res.CarryOver.String())
}

func TestScenario_LoadResetsPreviousData(t *testing.T) {
	h := setupTestHandler(t)
	ctx := context.Background()
	require.NoError(t, h.ApplyScenario(ctx, "anna-february"))
	require.NoError(t, h.ApplyScenario(ctx, "overtime-q1"))

	employees, err := h.Store.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, "Dita", employees[0].Name)

	assert.ErrorIs(t, h.ApplyScenario(ctx, "nope"), errUnknownScenario)
}

func TestScenarioEndpoints(t *testing.T) {
	h := setupTestHandler(t)
	router := NewRouter(h, nil)

	rec := do(t, router, http.MethodGet, "/api/scenarios", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ScenarioDTO](t, rec), len(scenarios))

	rec = do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"part-time"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/scenarios/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "part-time", decode[ScenarioDTO](t, rec).ID)

	rec = do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id":"unknown"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/scenarios/load", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/scenarios/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/employees", "")
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code, "sqlite store answers the ping")
}
