package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nexpharm/pharmacy-intel/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// maxDeliveryAttempts bounds handler attempts before a message is dead-lettered
const maxDeliveryAttempts = 3

// RetryCountHeader counts failed handler attempts. The broker only stamps
// x-death on dead-lettering, so retries are republished with this header.
const RetryCountHeader = "x-retry-count"

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, event *Event) error

// Consumer handles consuming events from RabbitMQ
type Consumer struct {
	rmq         *RabbitMQ
	republisher channelPublisher
	queueName   string
	handlers    map[string]MessageHandler
	logger      *logger.Logger
}

// NewConsumer creates a new consumer for the given queue
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	// Declare the queue
	_, err := rmq.DeclareQueue(queueName)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return &Consumer{
		rmq:         rmq,
		queueName:   queueName,
		handlers:    make(map[string]MessageHandler),
		logger:      log,
	}, nil
}

// Subscribe subscribes to an exchange with a routing key pattern
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	// Declare the exchange first
	if err := c.rmq.DeclareExchange(exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Bind the queue to the exchange
	if err := c.rmq.BindQueue(c.queueName, exchange, routingKeyPattern); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("subscribed to exchange")

	return nil
}

// RegisterHandler registers a handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.handlers[eventType] = handler
}

// Start starts consuming messages from the queue. When the broker closes
// the delivery channel the consumer reconnects and resumes.
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.consume()
	if err != nil {
		return err
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")

	go c.run(ctx, msgs)
	return nil
}

func (c *Consumer) consume() (<-chan amqp.Delivery, error) {
	msgs, err := c.rmq.Channel().Consume(
		c.queueName, // queue
		"",          // consumer tag (auto-generated)
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}
	return msgs, nil
}

func (c *Consumer) run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
			return
		case msg, ok := <-msgs:
			if ok {
				c.handleMessage(ctx, msg)
				continue
			}

			c.logger.Warn().Str("queue", c.queueName).Msg("message channel closed, reconnecting")
			if err := c.rmq.Reconnect(ctx); err != nil {
				c.logger.Warn().Err(err).Str("queue", c.queueName).Msg("consumer stopped")
				return
			}

			var err error
			if msgs, err = c.consume(); err != nil {
				c.logger.Error().Err(err).Str("queue", c.queueName).Msg("consumer stopped")
				return
			}
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var event Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error().Err(err).Msg("failed to unmarshal event")
		msg.Reject(false)
		return
	}

	ctx = WithCorrelationID(ctx, event.CorrelationID)

	handler, ok := c.handlers[event.Type]
	if !ok {
		c.logger.Debug().
			Str("event_type", event.Type).
			Msg("no handler registered for event type")
		msg.Ack(false)
		return
	}

	c.logger.Debug().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Msg("processing event")

	if err := handler(ctx, &event); err != nil {
		c.logger.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Msg("failed to process event")

		c.retry(ctx, msg, event.ID)
		return
	}

	msg.Ack(false)
}

// retry republishes a failed delivery with an incremented retry count and
// acks the original. A broker redelivery means an earlier attempt never
// finished, so it is dead-lettered straight away like an exhausted message.
func (c *Consumer) retry(ctx context.Context, msg amqp.Delivery, eventID string) {
	attempts := getRetryCount(msg) + 1

	if msg.Redelivered || attempts >= maxDeliveryAttempts {
		c.logger.Warn().
			Str("event_id", eventID).
			Int("attempts", attempts).
			Bool("redelivered", msg.Redelivered).
			Msg("max retries exceeded, sending to DLQ")
		msg.Reject(false)
		return
	}

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[RetryCountHeader] = int32(attempts)

	err := currentChannel(c.republisher, c.rmq).PublishWithContext(ctx,
		"",          // default exchange routes by queue name
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			Headers:       headers,
			ContentType:   msg.ContentType,
			DeliveryMode:  amqp.Persistent,
			CorrelationId: msg.CorrelationId,
			MessageId:     msg.MessageId,
			Timestamp:     msg.Timestamp,
			Body:          msg.Body,
		},
	)
	if err != nil {
		c.logger.Error().Err(err).Str("event_id", eventID).Msg("failed to republish event, sending to DLQ")
		msg.Reject(false)
		return
	}

	msg.Ack(false)
}

// getRetryCount reads the attempts recorded by earlier retries
func getRetryCount(msg amqp.Delivery) int {
	switch v := msg.Headers[RetryCountHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
