package engine

import (
	"sort"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
)

// ExpiringAlertCap bounds the expiring-batch summary
const ExpiringAlertCap = 5

// LowStockReason is attached to every low-stock alert
const LowStockReason = "Stock below safety threshold"

// LowStockAlerts keeps items with stock under LowStockThreshold, in feed order
func LowStockAlerts(items []domain.InventoryItem) []domain.LowStockAlert {
	alerts := make([]domain.LowStockAlert, 0)
	for _, item := range items {
		if item.Stock >= LowStockThreshold {
			continue
		}
		severity := domain.SeverityWarning
		if item.Stock < CriticalStockThreshold {
			severity = domain.SeverityCritical
		}
		alerts = append(alerts, domain.LowStockAlert{
			InventoryItem: item,
			Severity:      severity,
			Reason:        LowStockReason,
		})
	}
	return alerts
}

// ExpiringAlerts returns the first ExpiringAlertCap batches in feed order.
// The feed order is kept even when it is not sorted by urgency.
func ExpiringAlerts(batches []domain.ExpiryBatch) []domain.ExpiryBatch {
	n := len(batches)
	if n > ExpiringAlertCap {
		n = ExpiringAlertCap
	}
	out := make([]domain.ExpiryBatch, n)
	copy(out, batches[:n])
	return out
}

// ExpiringAlertsByUrgency returns the ExpiringAlertCap soonest-expiring
// batches. Ties keep feed order.
func ExpiringAlertsByUrgency(batches []domain.ExpiryBatch) []domain.ExpiryBatch {
	sorted := make([]domain.ExpiryBatch, len(batches))
	copy(sorted, batches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DaysToExpiry < sorted[j].DaysToExpiry
	})
	return ExpiringAlerts(sorted)
}

// ShouldShowExpiryPopup reports whether the expiry popup fires
func ShouldShowExpiryPopup(batches []domain.ExpiryBatch) bool {
	return len(batches) > 0
}
