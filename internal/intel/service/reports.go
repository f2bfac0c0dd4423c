package service

import (
	"context"
	"fmt"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/nexpharm/pharmacy-intel/internal/intel/report"
	apperrors "github.com/nexpharm/pharmacy-intel/pkg/errors"
)

// ExecutiveReport renders the dashboard KPIs with the alert sections as a
// PDF. Alert feeds degrade the same way as AlertsView.
func (s *IntelService) ExecutiveReport(ctx context.Context) ([]byte, error) {
	kpis, err := s.feeds.DashboardKPIs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("dashboard kpi feed failed")
		return nil, feedError("dashboard-kpis", err)
	}

	alerts, err := s.AlertsView(ctx, OrderUrgency)
	if err != nil {
		return nil, err
	}

	pdfBytes, err := report.ExecutivePDF(report.Executive{
		GeneratedAt: s.now(),
		KPIs:        *kpis,
		LowStock:    alerts.LowStock,
		Expiring:    alerts.Expiring,
		ExpiryLoss:  alerts.ExpiryLoss,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("executive report rendering failed")
		return nil, apperrors.Internal(fmt.Sprintf("failed to render report: %v", err))
	}
	return pdfBytes, nil
}

// ReorderReport renders the inventory rows below the safety threshold as an
// XLSX workbook, in feed order.
func (s *IntelService) ReorderReport(ctx context.Context) ([]byte, error) {
	view, err := s.InventoryView(ctx, "")
	if err != nil {
		return nil, err
	}

	rows := make([]domain.EnrichedInventoryItem, 0, len(view.LowStock))
	for _, item := range view.Items {
		if item.Status != domain.StatusHealthy {
			rows = append(rows, item)
		}
	}

	data, err := report.ReorderWorkbook(rows, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("reorder report rendering failed")
		return nil, apperrors.Internal(fmt.Sprintf("failed to render report: %v", err))
	}
	return data, nil
}
