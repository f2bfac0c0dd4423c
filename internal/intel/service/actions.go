package service

import (
	"context"
	"regexp"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/nexpharm/pharmacy-intel/internal/intel/engine"
	apperrors "github.com/nexpharm/pharmacy-intel/pkg/errors"
)

// requestIDPattern matches the id the assistant assigns to a submitted reorder
var requestIDPattern = regexp.MustCompile(`REQ-\d{14}`)

// ActionResult is the assistant's answer to a row action
type ActionResult struct {
	Request domain.ActionRequest   `json:"request"`
	Reply   *domain.AssistantReply `json:"reply"`
}

// Reorder asks the assistant to reorder medicine. A submitted reorder is
// published as an event carrying the current stock when it can be read.
func (s *IntelService) Reorder(ctx context.Context, medicine string) (*ActionResult, error) {
	result, err := s.dispatch(ctx, engine.BuildReorderRequest(medicine))
	if err != nil {
		return nil, err
	}

	if id := requestIDPattern.FindString(result.Reply.Response); id != "" && s.events != nil {
		stock := s.stockOf(ctx, result.Request.Subject)
		s.events.PublishReorderRequested(ctx, result.Request.Subject, stock, id, result.Reply.Response)
	}
	return result, nil
}

// stockOf looks up the stock of medicine. It returns nil when the inventory
// feed fails or does not list the medicine.
func (s *IntelService) stockOf(ctx context.Context, medicine string) *int {
	items, err := s.feeds.Inventory(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Str("medicine", medicine).Msg("stock lookup for reorder event failed")
		return nil
	}

	key := engine.NormalizeMedicine(medicine)
	for _, item := range items {
		if engine.NormalizeMedicine(item.Medicine) == key {
			stock := item.Stock
			return &stock
		}
	}
	return nil
}

// Alternatives asks the assistant for in-stock substitutes of medicine
func (s *IntelService) Alternatives(ctx context.Context, medicine string) (*ActionResult, error) {
	return s.dispatch(ctx, engine.BuildAlternativeRequest(medicine))
}

// ActionPending reports whether medicine has an action awaiting the assistant
func (s *IntelService) ActionPending(medicine string) bool {
	return s.inflight.Busy(medicine)
}

// dispatch sends one action per medicine at a time. The slot is released
// whatever the outcome.
func (s *IntelService) dispatch(ctx context.Context, req domain.ActionRequest) (*ActionResult, error) {
	if !s.inflight.TryAcquire(req.Subject) {
		return nil, apperrors.ActionInFlight(req.Subject)
	}
	defer s.inflight.Release(req.Subject)

	log := s.logger.WithMedicine(req.Subject)

	reply, err := s.assistant.Query(ctx, req.Query())
	if err != nil {
		log.Error().Err(err).Str("action", string(req.Kind)).Msg("assistant dispatch failed")
		return nil, apperrors.AssistantUnavailable(err)
	}

	log.Info().Str("action", string(req.Kind)).Msg("assistant action completed")
	return &ActionResult{Request: req, Reply: reply}, nil
}
