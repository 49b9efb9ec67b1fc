package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/time-balance/balance"
	"github.com/warp/time-balance/calendar"
)

func TestMonthCloseScheduler_RunOnce(t *testing.T) {
	// GIVEN: Anna's February data and a duplicate "anna" with a higher id
	h, _, pub := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, h.ApplyScenario(ctx, "anna-february"))
	require.NoError(t, h.Store.SaveEmployee(ctx, balance.Employee{ID: "emp-zz", Name: "anna", Schedule: balance.UniformSchedule(8)}))

	// WHEN: Closing from mid-March
	s := NewMonthCloseScheduler(h, time.Hour, true)
	resp, err := s.RunOnce(ctx, calendar.MustParseDate("2024-03-15"))

	// THEN: February is stored once, for the employee the name resolves to
	require.NoError(t, err)
	assert.Equal(t, "2024-02", resp.Period)
	assert.Equal(t, 1, resp.Computed)
	assert.Empty(t, resp.Failed)
	assert.Equal(t, 1, pub.count())

	pb, err := h.Store.GetPeriodBalance(ctx, "emp-anna", calendar.MustParseDate("2024-02-01"))
	require.NoError(t, err)
	require.NotNil(t, pb)
	assert.Equal(t, "-142.75", pb.CarryOver.String())

	// AND: Re-running replaces the row instead of accumulating
	_, err = s.RunOnce(ctx, calendar.MustParseDate("2024-03-20"))
	require.NoError(t, err)
	pb, err = h.Store.GetPeriodBalance(ctx, "emp-anna", calendar.MustParseDate("2024-02-01"))
	require.NoError(t, err)
	assert.Equal(t, "-142.75", pb.CarryOver.String())
}

func TestMonthCloseScheduler_JanuaryClosesDecember(t *testing.T) {
	h, _, _ := newTestServer(t)
	s := NewMonthCloseScheduler(h, time.Hour, true)

	resp, err := s.RunOnce(context.Background(), calendar.MustParseDate("2025-01-03"))
	require.NoError(t, err)
	assert.Equal(t, "2024-12", resp.Period)
	assert.Zero(t, resp.Computed)
}

func TestMonthCloseScheduler_StartStop(t *testing.T) {
	h, _, _ := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, h.ApplyScenario(ctx, "anna-february"))

	s := NewMonthCloseScheduler(h, time.Hour, true)
	s.Now = func() time.Time { return time.Date(2024, time.March, 1, 6, 0, 0, 0, time.UTC) }

	s.Start()
	s.Start() // second start is a no-op

	require.Eventually(t, func() bool {
		pb, err := h.Store.GetPeriodBalance(ctx, "emp-anna", calendar.MustParseDate("2024-02-01"))
		return err == nil && pb != nil
	}, 2*time.Second, 10*time.Millisecond, "start runs a close immediately")

	s.Stop()
	s.Stop()
}

func TestMonthCloseScheduler_Disabled(t *testing.T) {
	h, _, pub := newTestServer(t)
	s := NewMonthCloseScheduler(h, time.Hour, false)

	s.Start()
	s.Stop()
	assert.Zero(t, pub.count())
}

func TestTriggerMonthClose(t *testing.T) {
	h, router, _ := newTestServer(t)
	require.NoError(t, h.ApplyScenario(context.Background(), "part-time"))

	rec := do(t, router, http.MethodPost, "/api/admin/month-close", `{"year":2024,"month":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[MonthCloseResponse](t, rec)
	assert.Equal(t, "2024-02", resp.Period)
	assert.Equal(t, 1, resp.Computed)

	rec = do(t, router, http.MethodPost, "/api/admin/month-close", `{"year":2024,"month":13}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/admin/month-close", "")
	assert.Equal(t, http.StatusOK, rec.Code, "empty body closes the previous month")

	rec = do(t, router, http.MethodPost, "/api/admin/month-close", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code, "empty object closes the previous month")
}

func TestTriggerMonthClose_PartialPeriodIsRejected(t *testing.T) {
	h, router, pub := newTestServer(t)
	require.NoError(t, h.ApplyScenario(context.Background(), "part-time"))

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"year only", `{"year":2024}`, "month"},
		{"month only", `{"month":2}`, "year"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/admin/month-close", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			resp := decode[ErrorResponse](t, rec)
			assert.Contains(t, resp.Fields, tt.field)
		})
	}
	assert.Zero(t, pub.count(), "nothing is computed")
}
