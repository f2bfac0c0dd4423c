// Package service assembles the engine's derived views from the feeds and
// dispatches row actions to the assistant.
package service

import (
	"context"
	"time"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/nexpharm/pharmacy-intel/internal/intel/engine"
	"github.com/nexpharm/pharmacy-intel/internal/intel/events"
	apperrors "github.com/nexpharm/pharmacy-intel/pkg/errors"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
)

// FeedSource provides the read-only data feeds. Implemented over HTTP by
// client.BackendClient and over SQL by repository.FeedRepository.
type FeedSource interface {
	Inventory(ctx context.Context) ([]domain.InventoryItem, error)
	ExpiryBatches(ctx context.Context) ([]domain.ExpiryBatch, error)
	LowStockAlerts(ctx context.Context) ([]domain.LowStockAlert, error)
	Forecast(ctx context.Context, medicine string) ([]domain.ForecastPoint, error)
	ExpiryLossSummary(ctx context.Context) (*domain.ExpiryLossSummary, error)
	DashboardKPIs(ctx context.Context) (*domain.DashboardKPIs, error)
	ExpiryRisk(ctx context.Context) (*domain.ExpiryRisk, error)
	Wastage(ctx context.Context) (*domain.Wastage, error)
}

// Assistant answers natural-language pharmacy queries
type Assistant interface {
	Query(ctx context.Context, query string) (*domain.AssistantReply, error)
}

// IntelService builds inventory, alert, forecast and dashboard views
type IntelService struct {
	feeds     FeedSource
	assistant Assistant
	inflight  *engine.InFlight
	events    *events.IntelEventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewIntelService creates a new intel service. publisher may be nil.
func NewIntelService(feeds FeedSource, assistant Assistant, publisher *events.IntelEventPublisher, log *logger.Logger) *IntelService {
	return &IntelService{
		feeds:     feeds,
		assistant: assistant,
		inflight:  engine.NewInFlight(),
		events:    publisher,
		logger:    log,
		now:       time.Now,
	}
}

// Feeds exposes the feed source used by the service
func (s *IntelService) Feeds() FeedSource {
	return s.feeds
}

// feedError keeps AppErrors raised by the feed source and reports anything
// else as a network failure of the named feed.
func feedError(feed string, err error) error {
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		return appErr
	}
	return apperrors.NetworkFailure(feed, err)
}
