package consumers

import (
	"context"
	"fmt"

	"github.com/nexpharm/pharmacy-intel/internal/intel/events"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
	"github.com/nexpharm/pharmacy-intel/pkg/messaging"
)

// QueueManagerNotifications receives every pharmacy event for the store manager
const QueueManagerNotifications = "intel-service.manager-notifications"

// ManagerNotificationConsumer turns reorder and expiry events into
// manager notifications. Notifications are written to the log.
type ManagerNotificationConsumer struct {
	consumer *messaging.Consumer
	logger   *logger.Logger
}

// NewManagerNotificationConsumer creates a new manager notification consumer
func NewManagerNotificationConsumer(rmq *messaging.RabbitMQ, log *logger.Logger) (*ManagerNotificationConsumer, error) {
	// the queue dead-letters into the DLX, which must exist first
	if err := rmq.DeclareDeadLetterQueue(events.ServiceName); err != nil {
		return nil, fmt.Errorf("failed to declare dead letter queue: %w", err)
	}

	consumer, err := messaging.NewConsumer(rmq, QueueManagerNotifications, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangePharmacyEvents, "pharmacy.#"); err != nil {
		return nil, err
	}

	c := &ManagerNotificationConsumer{
		consumer: consumer,
		logger:   log,
	}

	consumer.RegisterHandler(messaging.EventReorderRequested, c.handleReorderRequested)
	consumer.RegisterHandler(messaging.EventExpiryAlerted, c.handleExpiryAlerted)

	return c, nil
}

// Start starts consuming messages
func (c *ManagerNotificationConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *ManagerNotificationConsumer) handleReorderRequested(ctx context.Context, event *messaging.Event) error {
	var data messaging.ReorderRequestedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	entry := c.logger.Info().
		Str("event_id", event.ID).
		Str("medicine", data.Medicine).
		Str("request_id", data.RequestID)
	if data.Stock != nil {
		entry = entry.Int("stock", *data.Stock)
	}
	entry.Msg("manager notified of reorder request")

	return nil
}

func (c *ManagerNotificationConsumer) handleExpiryAlerted(ctx context.Context, event *messaging.Event) error {
	var data messaging.ExpiryAlertedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	soonest := 0
	for i, b := range data.Batches {
		if i == 0 || b.DaysToExpiry < soonest {
			soonest = b.DaysToExpiry
		}
	}

	c.logger.Warn().
		Str("event_id", event.ID).
		Str("medicine", data.Medicine).
		Int("batches", len(data.Batches)).
		Int("soonest_days", soonest).
		Msg("manager notified of expiring batches")

	return nil
}
