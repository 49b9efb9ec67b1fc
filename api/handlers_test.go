/*
handlers_test.go - HTTP tests for the API handlers

Every test goes through NewRouter with an in-memory store, so routing,
middleware, validation and error mapping are exercised together.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/time-balance/balance"
	"github.com/warp/time-balance/balance/store"
	"github.com/warp/time-balance/logger"
)

type recordingPublisher struct {
	mu      sync.Mutex
	results []*balance.Result
	err     error
}

func (p *recordingPublisher) BalanceComputed(_ context.Context, r *balance.Result) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.results = append(p.results, r)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.results)
}

func newTestServer(t *testing.T) (*Handler, http.Handler, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	h := NewHandler(store.NewMemory(), pub, logger.Nop())
	return h, NewRouter(h, nil), pub
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createAnna(t *testing.T, router http.Handler) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/employees",
		`{"id":"emp-anna","name":"Anna","email":"anna@example.com","schedule":{"preset":"full-time-40"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	_, router, _ := newTestServer(t)

	rec := do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCreateAndGetEmployee(t *testing.T) {
	_, router, _ := newTestServer(t)
	createAnna(t, router)

	rec := do(t, router, http.MethodGet, "/api/employees/emp-anna", "")
	require.Equal(t, http.StatusOK, rec.Code)
	emp := decode[EmployeeDTO](t, rec)
	assert.Equal(t, "Anna", emp.Name)
	assert.Equal(t, "40", emp.WeeklyHours.String())

	rec = do(t, router, http.MethodGet, "/api/employees", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]EmployeeDTO](t, rec), 1)

	rec = do(t, router, http.MethodGet, "/api/employees/nobody", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateEmployee_Rejects(t *testing.T) {
	_, router, _ := newTestServer(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing name", `{"schedule":{"preset":"full-time-40"}}`, "name"},
		{"bad email", `{"name":"Anna","email":"nope","schedule":{"preset":"full-time-40"}}`, "email"},
		{"missing schedule", `{"name":"Anna"}`, "schedule"},
		{"negative hours", `{"name":"Anna","schedule":{"monday":-2}}`, ""},
		{"unknown preset", `{"name":"Anna","schedule":{"preset":"gig"}}`, ""},
		{"malformed", `{"name":`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/employees", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			if tt.field != "" {
				resp := decode[ErrorResponse](t, rec)
				assert.Contains(t, resp.Fields, tt.field)
			}
		})
	}
}

func TestMonthlyBalance_AnnaFebruary(t *testing.T) {
	// GIVEN: Anna, 8h Mon-Fri, 8h worked on 02-05, 4h sick credit on 02-06,
	//        5.25h carried over from January
	h, router, pub := newTestServer(t)
	require.NoError(t, h.ApplyScenario(context.Background(), "anna-february"))

	// WHEN: Requesting February 2024 (name is case-insensitive)
	rec := do(t, router, http.MethodGet, "/api/balances/ANNA/monthly?year=2024&month=2", "")

	// THEN: Expected hours skip the absence day and the carry-over chains
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	b := decode[BalanceDTO](t, rec)
	assert.Equal(t, "emp-anna", b.EmployeeID)
	assert.Equal(t, "2024-02", b.Period)
	assert.Equal(t, 20, b.ExpectedDays)
	assert.Equal(t, "160", b.ExpectedHours.String())
	assert.Equal(t, "12", b.ActualHours.String())
	assert.Equal(t, "-148", b.Difference.String())
	assert.Equal(t, "5.25", b.PriorCarryOver.String())
	assert.Equal(t, "-142.75", b.CarryOver.String())
	assert.Len(t, b.Attendance, 1)
	assert.Len(t, b.Absences, 1)
	assert.Equal(t, 1, pub.count())

	// AND: The ledger now holds January and February
	rec = do(t, router, http.MethodGet, "/api/employees/emp-anna/ledger", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ledger := decode[[]LedgerEntryDTO](t, rec)
	require.Len(t, ledger, 2)
	assert.Equal(t, "2024-02-01", ledger[1].PeriodKey)
	assert.Equal(t, "-142.75", ledger[1].CarryOver.String())
}

func TestMonthlyBalance_Errors(t *testing.T) {
	h, router, pub := newTestServer(t)
	require.NoError(t, h.ApplyScenario(context.Background(), "anna-february"))

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"month out of range", "/api/balances/anna/monthly?year=2024&month=13", http.StatusBadRequest},
		{"year not a number", "/api/balances/anna/monthly?year=abc&month=2", http.StatusBadRequest},
		{"missing month", "/api/balances/anna/monthly?year=2024", http.StatusBadRequest},
		{"unknown employee", "/api/balances/Nobody/monthly?year=2024&month=2", http.StatusNotFound},
		{"bad period type", "/api/balances/anna/period?type=week&year=2024&value=1", http.StatusBadRequest},
		{"bad quarter", "/api/balances/anna/period?type=quarter&year=2024&value=Q5", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
	assert.Zero(t, pub.count(), "failed computations publish nothing")
}

func TestPeriodBalance_Quarter(t *testing.T) {
	h, router, _ := newTestServer(t)
	require.NoError(t, h.ApplyScenario(context.Background(), "overtime-q1"))

	rec := do(t, router, http.MethodGet, "/api/balances/dita/period?type=quarter&year=2024&value=Q1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	b := decode[BalanceDTO](t, rec)
	assert.Equal(t, "quarter", b.PeriodType)
	assert.Equal(t, "2024-Q1", b.Period)
	assert.Equal(t, "2024-01-01", b.Start)
	assert.Equal(t, "2024-04-01", b.End)
	assert.Equal(t, 65, b.ExpectedDays)
	assert.Equal(t, "520", b.ExpectedHours.String())
	assert.Equal(t, "585", b.WorkedHours.String())
	assert.Equal(t, "65", b.Difference.String())
}

func TestRecordEntries(t *testing.T) {
	_, router, _ := newTestServer(t)
	createAnna(t, router)

	rec := do(t, router, http.MethodPost, "/api/employees/emp-anna/attendance", `{"date":"2024-02-05","hours":7.5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Fri..Tue: the weekend produces no entry
	rec = do(t, router, http.MethodPost, "/api/employees/emp-anna/absences",
		`{"from":"2024-02-09","to":"2024-02-13","type":"vacation","comment":"ski"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	absences := decode[[]AbsenceDTO](t, rec)
	require.Len(t, absences, 3)
	assert.Equal(t, "8", absences[0].CreditedHours.String())

	rec = do(t, router, http.MethodGet, "/api/balances/anna/monthly?year=2024&month=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	b := decode[BalanceDTO](t, rec)
	assert.Equal(t, "7.5", b.WorkedHours.String())
	assert.Equal(t, "24", b.AbsenceHours.String())
	assert.Equal(t, "144", b.ExpectedHours.String())
	assert.Equal(t, "-112.5", b.Difference.String())
}

func TestRecordEntries_Rejects(t *testing.T) {
	_, router, _ := newTestServer(t)
	createAnna(t, router)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"attendance bad date", "/api/employees/emp-anna/attendance", `{"date":"05.02.2024","hours":8}`, http.StatusBadRequest},
		{"attendance missing hours", "/api/employees/emp-anna/attendance", `{"date":"2024-02-05"}`, http.StatusBadRequest},
		{"attendance negative", "/api/employees/emp-anna/attendance", `{"date":"2024-02-05","hours":-1}`, http.StatusBadRequest},
		{"attendance over a day", "/api/employees/emp-anna/attendance", `{"date":"2024-02-05","hours":25}`, http.StatusBadRequest},
		{"attendance unknown employee", "/api/employees/ghost/attendance", `{"date":"2024-02-05","hours":8}`, http.StatusNotFound},
		{"absence no dates", "/api/employees/emp-anna/absences", `{"type":"sick"}`, http.StatusBadRequest},
		{"absence bad type", "/api/employees/emp-anna/absences", `{"date":"2024-02-05","type":"sabbatical"}`, http.StatusBadRequest},
		{"absence weekend only", "/api/employees/emp-anna/absences", `{"from":"2024-02-10","to":"2024-02-11"}`, http.StatusBadRequest},
		{"absence reversed", "/api/employees/emp-anna/absences", `{"from":"2024-02-13","to":"2024-02-09"}`, http.StatusBadRequest},
		{"absence too long", "/api/employees/emp-anna/absences", `{"from":"2024-01-01","to":"2025-06-30"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	h, router, pub := newTestServer(t)
	require.NoError(t, h.ApplyScenario(context.Background(), "anna-february"))
	pub.err = errors.New("broker down")

	rec := do(t, router, http.MethodGet, "/api/balances/anna/monthly?year=2024&month=2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	_, router, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var e map[string]any
		require.NoError(t, json.Unmarshal(line, &e), string(line))
		entries = append(entries, e)
	}
	return entries
}

func findEntry(entries []map[string]any, message string) map[string]any {
	for _, e := range entries {
		if e["message"] == message {
			return e
		}
	}
	return nil
}

func TestComputationLogging(t *testing.T) {
	// GIVEN: A handler logging JSON at info level
	var buf bytes.Buffer
	h := NewHandler(store.NewMemory(), nil, logger.NewWithWriter(&buf, "time-balance", "info"))
	router := NewRouter(h, nil)
	createAnna(t, router)

	// WHEN: One computation succeeds
	req := httptest.NewRequest(http.MethodGet, "/api/balances/anna/monthly?year=2024&month=2", nil)
	req.Header.Set("X-Request-ID", "req-ok")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// THEN: It is logged at info with request id, employee and period
	computed := findEntry(logEntries(t, &buf), "balance computed")
	require.NotNil(t, computed)
	assert.Equal(t, "info", computed["level"])
	assert.Equal(t, "req-ok", computed["request_id"])
	assert.Equal(t, "anna", computed["employee"])
	assert.Equal(t, "2024-02", computed["period"])
	assert.Equal(t, "-168", computed["carry_over"])

	// WHEN: Client errors happen
	buf.Reset()
	do(t, router, http.MethodGet, "/api/balances/nobody/monthly?year=2024&month=2", "")
	do(t, router, http.MethodGet, "/api/balances/anna/monthly?year=2024&month=13", "")

	// THEN: Both are warnings
	entries := logEntries(t, &buf)
	notFound := findEntry(entries, "employee not found")
	require.NotNil(t, notFound)
	assert.Equal(t, "warn", notFound["level"])
	rejected := findEntry(entries, "rejected request")
	require.NotNil(t, rejected)
	assert.Equal(t, "warn", rejected["level"])
	assert.NotEmpty(t, rejected["request_id"])
}
