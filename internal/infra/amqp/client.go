// Package amqp publishes and consumes bill events over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/port"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("amqp")

var _ port.EventPublisher = (*Client)(nil)

const publishTimeout = 5 * time.Second

// channel is the part of *amqp091.Channel the client uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Close() error
}

// Client owns one connection and channel bound to a durable direct
// exchange and queue. The queue name doubles as the routing key.
type Client struct {
	conn         *amqp091.Connection
	channel      channel
	exchangeName string
	queueName    string
	cb           *gobreaker.CircuitBreaker
	logger       *zap.Logger
}

// NewClient dials url and declares the exchange, queue and binding.
func NewClient(url, exchangeName, queueName string, cb *gobreaker.CircuitBreaker, logger *zap.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setup(ch, exchangeName, queueName); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	logger.Info("amqp connected",
		zap.String("exchange", exchangeName),
		zap.String("queue", queueName),
	)

	return &Client{
		conn:         conn,
		channel:      ch,
		exchangeName: exchangeName,
		queueName:    queueName,
		cb:           cb,
		logger:       logger,
	}, nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	if err := ch.ExchangeDeclare(exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishBillEvent sends a persistent JSON message for event.
func (c *Client) PublishBillEvent(ctx context.Context, event domain.BillEvent) error {
	ctx, span := tracer.Start(ctx, "AMQP.PublishBillEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.type", string(event.Type)),
		attribute.String("bill.id", event.BillID),
	)

	body, err := encodeEvent(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	_, err = c.cb.Execute(func() (any, error) {
		return nil, c.channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false,
			amqp091.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp091.Persistent,
				MessageId:    event.ID,
				Type:         string(event.Type),
				Timestamp:    event.OccurredAt,
				Body:         body,
			})
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: "amqp"}
	}
	if err != nil {
		return &domain.ErrExternalService{Service: "amqp", Err: fmt.Errorf("publish message: %w", err)}
	}

	c.logger.Debug("bill event published",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("bill_id", event.BillID),
	)
	return nil
}

// EventHandler processes one decoded event. A returned error requeues it.
type EventHandler func(ctx context.Context, event domain.BillEvent) error

// ConsumeBillEvents blocks, feeding deliveries to handler with manual ack,
// until ctx is cancelled or the broker closes the channel.
func (c *Client) ConsumeBillEvents(ctx context.Context, handler EventHandler) error {
	msgs, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.Info("consuming bill events", zap.String("queue", c.queueName))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("stopping consumer", zap.Error(ctx.Err()))
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler EventHandler) {
	event, err := decodeEvent(d.Body)
	if err != nil {
		c.logger.Error("dropping malformed message", zap.Error(err))
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.logger.Warn("nack failed", zap.Error(nackErr))
		}
		return
	}

	ctx, span := tracer.Start(ctx, "AMQP.HandleBillEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", event.ID))

	if err := handler(ctx, event); err != nil {
		c.logger.Error("failed to handle bill event",
			zap.String("event_id", event.ID),
			zap.String("user_id", event.UserID),
			zap.Error(err),
		)
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Warn("nack failed", zap.Error(nackErr))
		}
		return
	}

	if err := d.Ack(false); err != nil {
		c.logger.Warn("ack failed", zap.Error(err))
		return
	}
	c.logger.Info("bill event processed",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
	)
}

// Close shuts the channel and connection.
func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
