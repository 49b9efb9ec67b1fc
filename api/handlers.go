/*
handlers.go - HTTP API handlers for the time balance service

PURPOSE:
  Exposes the balance engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine and the repository.

ENDPOINTS:
  Employees:
    GET    /api/employees                  List all employees
    POST   /api/employees                  Create employee with schedule
    GET    /api/employees/{id}             Get employee details
    POST   /api/employees/{id}/attendance  Record hours worked on a day
    POST   /api/employees/{id}/absences    Record a day or a period off
    GET    /api/employees/{id}/ledger      Stored carry-over chain

  Balances:
    GET    /api/balances/{name}/monthly?year=2024&month=2
    GET    /api/balances/{name}/period?type=quarter&year=2024&value=Q1

  Admin:
    POST   /api/admin/month-close          Close a month for everybody

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: balance.Repository (memory or SQL)
  - Engine: the single aggregation path
  - Schedules: JSON schedule conversion
  - Publisher: balance-computed events (RabbitMQ or no-op)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: validation errors, invalid period or entry
  - 404: employee not found
  - 500: storage failures and defects (excessive range)

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/time-balance/absence"
	"github.com/warp/time-balance/balance"
	"github.com/warp/time-balance/calendar"
	"github.com/warp/time-balance/events"
	"github.com/warp/time-balance/factory"
	"github.com/warp/time-balance/logger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     balance.Repository
	Engine    *balance.Engine
	Schedules *factory.ScheduleFactory
	Publisher events.Publisher

	log *logger.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler. A nil publisher disables events.
func NewHandler(store balance.Repository, publisher events.Publisher, log *logger.Logger) *Handler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		Store:     store,
		Engine:    balance.NewEngine(store),
		Schedules: factory.NewScheduleFactory(),
		Publisher: publisher,
		log:       log.WithComponent("api"),
	}
}

// Compute runs the engine and publishes the result. A failed publish is
// logged; the computation has already been persisted.
func (h *Handler) Compute(ctx context.Context, name string, p balance.Period) (*balance.Result, error) {
	log := h.requestLog(ctx).WithEmployee(name)

	res, err := h.Engine.ComputeBalance(ctx, name, p)
	if err != nil {
		return nil, err
	}

	if err := h.Publisher.BalanceComputed(ctx, res); err != nil {
		log.Warn().Err(err).
			Str("employee_id", res.Employee.ID).
			Str("period", res.Period.Label).
			Msg("failed to publish balance event")
	}

	log.Info().
		Str("employee_id", res.Employee.ID).
		Str("period", res.Period.Label).
		Str("difference", res.Difference.String()).
		Str("carry_over", res.CarryOver.String()).
		Msg("balance computed")
	return res, nil
}

func (h *Handler) requestLog(ctx context.Context) *logger.Logger {
	if id := GetRequestID(ctx); id != "" {
		return h.log.WithRequestID(id)
	}
	return h.log
}

// Health reports whether the service and its database respond.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "ok"}

	if p, ok := h.Store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(r.Context()); err != nil {
			resp.Status, resp.Database = "degraded", err.Error()
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e, h.Schedules)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp, h.Schedules))
}

// CreateEmployee creates (or replaces) an employee and its weekly schedule.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}

	schedule, err := h.Schedules.FromJSON(*req.Schedule)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	emp := balance.Employee{
		ID:        req.ID,
		Name:      strings.TrimSpace(req.Name),
		Email:     req.Email,
		Schedule:  schedule,
		CreatedAt: time.Now().UTC(),
	}
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp, h.Schedules))
}

// loadEmployee resolves {id} or writes the error response.
func (h *Handler) loadEmployee(w http.ResponseWriter, r *http.Request) (*balance.Employee, bool) {
	id := chi.URLParam(r, "id")

	emp, err := h.Store.GetEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return nil, false
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return nil, false
	}
	return emp, true
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// RecordAttendance stores the hours worked on one day, replacing any entry
// already recorded for that day.
func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}

	var req AttendanceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}
	day, err := calendar.ParseDate(req.Date)
	if err != nil {
		h.writeErr(w, r, &balance.InvalidEntryError{Field: "date", Reason: err.Error()})
		return
	}

	entry := balance.AttendanceEntry{
		ID:         uuid.NewString(),
		EmployeeID: emp.ID,
		Date:       day,
		Hours:      balance.Round(*req.Hours),
		Comment:    req.Comment,
	}
	if err := h.Store.SaveAttendance(r.Context(), entry); err != nil {
		h.writeErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, AttendanceDTO{
		ID: entry.ID, Date: entry.Date.String(), Hours: entry.Hours, Comment: entry.Comment,
	})
}

// RecordAbsences stores one absence day ("date") or expands an inclusive
// period ("from"/"to") into one entry per scheduled day.
func (h *Handler) RecordAbsences(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}

	var req AbsenceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}

	from, to := req.From, req.To
	if req.Date != "" {
		from, to = req.Date, req.Date
	}
	if from == "" || to == "" {
		h.writeErr(w, r, &ValidationError{Fields: map[string]string{"date": "date or from/to is required"}})
		return
	}

	kind, err := absence.ParseKind(req.Type)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	fromDate, err := calendar.ParseDate(from)
	if err != nil {
		h.writeErr(w, r, &balance.InvalidEntryError{Field: "from", Reason: err.Error()})
		return
	}
	toDate, err := calendar.ParseDate(to)
	if err != nil {
		h.writeErr(w, r, &balance.InvalidEntryError{Field: "to", Reason: err.Error()})
		return
	}

	entries, err := absence.Request{
		EmployeeID: emp.ID,
		Kind:       kind,
		From:       fromDate,
		To:         toDate,
		Comment:    req.Comment,
		Hours:      req.Hours,
	}.Entries(emp.Schedule)
	if errors.Is(err, balance.ErrExcessiveRange) {
		h.writeErr(w, r, &balance.InvalidEntryError{Field: "to", Reason: fmt.Sprintf("absence longer than %d days", calendar.MaxWalkDays)})
		return
	}
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if len(entries) == 0 {
		h.writeErr(w, r, &balance.InvalidEntryError{Field: "date", Reason: "no scheduled working day in range"})
		return
	}

	for i := range entries {
		entries[i].ID = uuid.NewString()
	}
	if err := h.Store.SaveAbsences(r.Context(), entries); err != nil {
		h.writeErr(w, r, err)
		return
	}

	dtos := make([]AbsenceDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AbsenceDTO{ID: e.ID, Date: e.Date.String(), Type: string(e.Type), CreditedHours: e.CreditedHours, Comment: e.Comment}
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// GetLedger returns the stored carry-over rows of one employee.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}

	rows, err := h.Store.ListPeriodBalances(r.Context(), emp.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load ledger", err)
		return
	}

	dtos := make([]LedgerEntryDTO, len(rows))
	for i, pb := range rows {
		dtos[i] = LedgerEntryDTO{
			PeriodKey:  pb.PeriodKey.String(),
			Difference: pb.Difference,
			CarryOver:  pb.CarryOver,
		}
		if !pb.UpdatedAt.IsZero() {
			dtos[i].UpdatedAt = pb.UpdatedAt.Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetMonthlyBalance computes one calendar month for the named employee.
func (h *Handler) GetMonthlyBalance(w http.ResponseWriter, r *http.Request) {
	name := employeeName(r)
	q := r.URL.Query()

	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		h.writeErr(w, r, &balance.InvalidPeriodError{Field: "year", Value: q.Get("year"), Reason: "must be an integer"})
		return
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil {
		h.writeErr(w, r, &balance.InvalidPeriodError{Field: "month", Value: q.Get("month"), Reason: "must be an integer"})
		return
	}

	p, err := balance.MonthPeriod(year, month)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	res, err := h.Compute(r.Context(), name, p)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToBalanceDTO(res))
}

// GetPeriodBalance computes a month, quarter or year for the named employee.
func (h *Handler) GetPeriodBalance(w http.ResponseWriter, r *http.Request) {
	name := employeeName(r)
	q := r.URL.Query()

	p, err := balance.ParsePeriod(q.Get("type"), q.Get("year"), q.Get("value"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	res, err := h.Compute(r.Context(), name, p)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToBalanceDTO(res))
}

func employeeName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

// =============================================================================
// HELPERS
// =============================================================================

// writeErr maps domain errors to HTTP statuses.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *ValidationError
		berr *BodyError
	)
	log := h.requestLog(r.Context())
	switch {
	case errors.As(err, &berr):
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: verr.Fields})
	case balance.IsClientError(err):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("rejected request")
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case balance.IsNotFound(err):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("employee not found")
		writeError(w, http.StatusNotFound, "Employee not found", err)
	case balance.IsDefect(err):
		log.Error().Err(err).Msg("defect while computing balance")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	case errors.Is(err, balance.ErrStorage):
		log.Error().Err(err).Msg("storage failure")
		writeError(w, http.StatusInternalServerError, "Storage failure", err)
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
