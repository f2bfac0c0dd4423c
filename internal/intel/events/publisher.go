package events

import (
	"context"
	"time"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
	"github.com/nexpharm/pharmacy-intel/pkg/messaging"
)

// ServiceName is the event source of everything published here
const ServiceName = "intel-service"

type eventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// IntelEventPublisher publishes reorder and expiry events. A nil
// publisher is valid and drops every event.
type IntelEventPublisher struct {
	publisher eventPublisher
	logger    *logger.Logger
}

// NewIntelEventPublisher creates a publisher on the pharmacy events exchange
func NewIntelEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*IntelEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangePharmacyEvents, ServiceName, log)
	if err != nil {
		return nil, err
	}

	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing publisher
func NewWithPublisher(publisher eventPublisher, log *logger.Logger) *IntelEventPublisher {
	return &IntelEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishReorderRequested publishes an accepted reorder. Failures are logged only.
func (p *IntelEventPublisher) PublishReorderRequested(ctx context.Context, medicine string, stock *int, requestID, response string) {
	if p == nil {
		return
	}

	data := messaging.ReorderRequestedEvent{
		Medicine:    medicine,
		Stock:       stock,
		RequestID:   requestID,
		Response:    response,
		RequestedAt: time.Now().UTC(),
	}

	if err := p.publisher.Publish(ctx, messaging.EventReorderRequested, data); err != nil {
		p.logger.Error().Err(err).Str("medicine", medicine).Msg("failed to publish reorder requested event")
	}
}

// PublishExpiryAlerted publishes the batches shown in an expiry popup
func (p *IntelEventPublisher) PublishExpiryAlerted(ctx context.Context, medicine string, batches []domain.ExpiryBatch) {
	if p == nil || len(batches) == 0 {
		return
	}

	data := messaging.ExpiryAlertedEvent{
		Medicine: medicine,
		Batches:  make([]messaging.ExpiringBatch, 0, len(batches)),
	}
	for _, b := range batches {
		data.Batches = append(data.Batches, messaging.ExpiringBatch{
			DrugName:     b.DrugName,
			Batch:        b.Batch,
			DaysToExpiry: b.DaysToExpiry,
		})
	}

	if err := p.publisher.Publish(ctx, messaging.EventExpiryAlerted, data); err != nil {
		p.logger.Error().Err(err).Str("medicine", medicine).Msg("failed to publish expiry alerted event")
	}
}
