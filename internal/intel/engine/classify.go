// Package engine holds the pure derivations behind the intel views: stock
// classification, FEFO expiry resolution, exposure ranking, alert
// aggregation, command interpretation and the per-medicine action guard.
// Nothing in here performs I/O.
package engine

import "github.com/nexpharm/pharmacy-intel/internal/intel/domain"

// Stock thresholds. Each tier includes its lower bound.
const (
	CriticalStockThreshold = 20
	LowStockThreshold      = 50
)

// Classify maps a stock count to its severity tier
func Classify(stock int) domain.StockStatus {
	switch {
	case stock < CriticalStockThreshold:
		return domain.StatusCritical
	case stock < LowStockThreshold:
		return domain.StatusLow
	default:
		return domain.StatusHealthy
	}
}
