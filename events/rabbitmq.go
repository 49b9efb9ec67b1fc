package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/warp/time-balance/balance"
	"github.com/warp/time-balance/logger"
)

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publishes JSON events to a durable topic exchange.
type RabbitPublisher struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
	source   string
	logger   *logger.Logger
	mu       sync.Mutex
}

var _ Publisher = (*RabbitPublisher)(nil)

// NewRabbitPublisher dials url and declares exchange.
func NewRabbitPublisher(url, exchange string, log *logger.Logger) (*RabbitPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	p := newRabbitPublisher(ch, exchange, log)
	p.conn = conn
	log.Info().Str("exchange", exchange).Msg("connected to RabbitMQ")
	return p, nil
}

func newRabbitPublisher(ch channel, exchange string, log *logger.Logger) *RabbitPublisher {
	return &RabbitPublisher{
		channel:  ch,
		exchange: exchange,
		source:   DefaultSource,
		logger:   log.WithComponent("events"),
	}
}

// BalanceComputed publishes r under EventBalanceComputed.
func (p *RabbitPublisher) BalanceComputed(ctx context.Context, r *balance.Result) error {
	return p.Publish(ctx, EventBalanceComputed, NewBalanceComputed(r))
}

// Publish publishes an event to the exchange; the event type is the routing key.
func (p *RabbitPublisher) Publish(ctx context.Context, eventType string, data any) error {
	correlationID := CorrelationID(ctx)

	event, err := NewEvent(eventType, p.source, correlationID, data)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		eventType,  // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     event.ID,
			CorrelationId: correlationID,
			Timestamp:     event.Timestamp,
			Body:          body,
		},
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug().
		Str("event_type", eventType).
		Str("event_id", event.ID).
		Str("correlation_id", correlationID).
		Msg("event published")
	return nil
}

// Close closes the channel and the connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.Close(); err != nil {
		p.logger.Warn().Err(err).Msg("failed to close channel")
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}
