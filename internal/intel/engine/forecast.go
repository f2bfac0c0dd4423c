package engine

import (
	"math"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
)

// ForecastInsight summarises the last point of a forecast sequence.
// It returns nil for an empty sequence.
func ForecastInsight(medicine string, points []domain.ForecastPoint) *domain.ForecastInsight {
	if len(points) == 0 {
		return nil
	}
	last := points[len(points)-1]

	return &domain.ForecastInsight{
		Medicine:       medicine,
		ExpectedDemand: int(math.Round(last.YHat)),
		ReorderQty:     last.ReorderQty,
		ReorderDate:    last.ReorderDate,
		Accuracy:       last.MAPE,
		DemandSurge:    last.DemandSurge,
		SeasonalSpike:  last.SeasonalSpike,
	}
}
