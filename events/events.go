// Package events publishes balance computations to other services.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/warp/time-balance/balance"
)

const (
	// EventBalanceComputed is emitted after every successful computation.
	EventBalanceComputed = "timebalance.balance.computed"

	DefaultExchange = "timebalance.events"
	DefaultSource   = "time-balance"
)

// Event is the envelope of every published message.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data any) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          raw,
	}, nil
}

// BalanceComputed is the payload of EventBalanceComputed. Hours are
// decimal strings with two places at most.
type BalanceComputed struct {
	EmployeeID     string `json:"employee_id"`
	EmployeeName   string `json:"employee_name"`
	PeriodType     string `json:"period_type"`
	PeriodLabel    string `json:"period_label"`
	PeriodKey      string `json:"period_key"`
	Start          string `json:"start"`
	End            string `json:"end"`
	ExpectedHours  string `json:"expected_hours"`
	ActualHours    string `json:"actual_hours"`
	Difference     string `json:"difference"`
	PriorCarryOver string `json:"prior_carry_over"`
	CarryOver      string `json:"carry_over"`
}

// NewBalanceComputed flattens a Result into the event payload.
func NewBalanceComputed(r *balance.Result) BalanceComputed {
	return BalanceComputed{
		EmployeeID:     r.Employee.ID,
		EmployeeName:   r.Employee.Name,
		PeriodType:     string(r.Period.Type),
		PeriodLabel:    r.Period.Label,
		PeriodKey:      r.Period.Key.String(),
		Start:          r.Period.Range.Start.String(),
		End:            r.Period.Range.End.String(),
		ExpectedHours:  r.ExpectedHours.String(),
		ActualHours:    r.ActualHours.String(),
		Difference:     r.Difference.String(),
		PriorCarryOver: r.PriorCarryOver.String(),
		CarryOver:      r.CarryOver.String(),
	}
}

// Publisher is implemented by RabbitPublisher and NopPublisher.
type Publisher interface {
	BalanceComputed(ctx context.Context, r *balance.Result) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) BalanceComputed(context.Context, *balance.Result) error { return nil }
func (NopPublisher) Close() error                                           { return nil }

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID adds a correlation ID to the context
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationID retrieves the correlation ID from context
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}
