/*
scheduler.go - Automated month-close scheduler

PURPOSE:
  Periodically computes the monthly balance of the previous calendar month
  for every employee, so the carry-over chain is stored even when nobody
  asked for a report. The next month's computation reads that row as its
  prior carry-over.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Each tick closes the month before "today"
  - Re-running is harmless: the ledger row is replaced, not accumulated
  - Employees sharing a name are computed once (the lowest id wins the
    name lookup)

CONFIGURATION:
  - Interval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewMonthCloseScheduler(handler, time.Hour, true)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Compute (engine + event publishing)
  - balance/engine.go: ComputeBalance
*/
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/warp/time-balance/balance"
	"github.com/warp/time-balance/calendar"
	"github.com/warp/time-balance/logger"
)

// MonthCloseScheduler closes the previous month on every tick.
type MonthCloseScheduler struct {
	Handler  *Handler
	Interval time.Duration
	Enabled  bool

	// Now is the clock; tests replace it.
	Now func() time.Time

	log    *logger.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMonthCloseScheduler creates a new scheduler.
func NewMonthCloseScheduler(h *Handler, interval time.Duration, enabled bool) *MonthCloseScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &MonthCloseScheduler{
		Handler:  h,
		Interval: interval,
		Enabled:  enabled,
		Now:      time.Now,
		log:      h.log.WithComponent("scheduler"),
	}
}

// Start begins the scheduler.
func (s *MonthCloseScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.log.Info().Msg("scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.log.Info().Dur("interval", s.Interval).Msg("scheduler started")
}

// Stop stops the scheduler and waits for a running close to finish.
func (s *MonthCloseScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.log.Info().Msg("scheduler stopped")
}

func (s *MonthCloseScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	// Run immediately on start
	s.tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-stop:
			return
		}
	}
}

func (s *MonthCloseScheduler) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx, calendar.FromTime(s.Now().UTC())); err != nil {
		s.log.Error().Err(err).Msg("month close failed")
	}
}

// RunOnce closes the calendar month before today.
func (s *MonthCloseScheduler) RunOnce(ctx context.Context, today calendar.Date) (*MonthCloseResponse, error) {
	prev := today.FirstOfMonth().AddMonths(-1)
	return s.Handler.CloseMonth(ctx, prev.Year, int(prev.Month))
}

// CloseMonth computes (year, month) for every employee. Per-employee
// failures are collected, not fatal; only listing employees can fail the
// whole run.
func (h *Handler) CloseMonth(ctx context.Context, year, month int) (*MonthCloseResponse, error) {
	p, err := balance.MonthPeriod(year, month)
	if err != nil {
		return nil, err
	}

	employees, err := h.Store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	resp := &MonthCloseResponse{Period: p.Label}
	seen := make(map[string]bool, len(employees))
	for _, emp := range employees {
		key := strings.ToLower(strings.TrimSpace(emp.Name))
		if seen[key] {
			continue
		}
		seen[key] = true

		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		if _, err := h.Compute(ctx, emp.Name, p); err != nil {
			if resp.Failed == nil {
				resp.Failed = make(map[string]string)
			}
			resp.Failed[emp.ID] = err.Error()
			h.log.Warn().Err(err).Str("employee_id", emp.ID).Str("period", p.Label).Msg("month close: employee failed")
			continue
		}
		resp.Computed++
	}

	h.log.Info().
		Str("period", p.Label).
		Int("computed", resp.Computed).
		Int("failed", len(resp.Failed)).
		Msg("month closed")
	return resp, nil
}

// TriggerMonthClose runs the month close now. An empty body closes the
// month before today; year and month are otherwise both required.
func (h *Handler) TriggerMonthClose(w http.ResponseWriter, r *http.Request) {
	var req MonthCloseRequest
	if r.ContentLength != 0 {
		err := decodeAndValidate(r, &req)
		if err != nil && !errors.Is(err, io.EOF) {
			h.writeErr(w, r, err)
			return
		}
	}
	switch {
	case req.Year == 0 && req.Month == 0:
		prev := calendar.Today().FirstOfMonth().AddMonths(-1)
		req.Year, req.Month = prev.Year, int(prev.Month)
	case req.Year == 0:
		h.writeErr(w, r, &ValidationError{Fields: map[string]string{"year": "required when month is set"}})
		return
	case req.Month == 0:
		h.writeErr(w, r, &ValidationError{Fields: map[string]string{"month": "required when year is set"}})
		return
	}

	resp, err := h.CloseMonth(r.Context(), req.Year, req.Month)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
