package domain

import "fmt"

// ForecastPoint is one day of a demand forecast produced upstream
type ForecastPoint struct {
	DS            string   `json:"ds" db:"ds"`
	Actual        float64  `json:"actual" db:"actual"`
	YHat          float64  `json:"yhat" db:"yhat"`
	MovingAvg     float64  `json:"moving_avg" db:"moving_avg"`
	ReorderQty    int      `json:"reorder_qty" db:"reorder_qty"`
	ReorderDate   string   `json:"reorder_date" db:"reorder_date"`
	MAPE          *float64 `json:"mape" db:"mape"`
	DemandSurge   bool     `json:"demand_surge" db:"demand_surge"`
	SeasonalSpike bool     `json:"seasonal_spike" db:"seasonal_spike"`
}

// ForecastInsight summarises the most recent forecast horizon entry
type ForecastInsight struct {
	Medicine       string   `json:"medicine"`
	ExpectedDemand int      `json:"expected_demand"`
	ReorderQty     int      `json:"reorder_qty"`
	ReorderDate    string   `json:"reorder_date"`
	Accuracy       *float64 `json:"accuracy"`
	DemandSurge    bool     `json:"demand_surge"`
	SeasonalSpike  bool     `json:"seasonal_spike"`
}

// AccuracyLabel renders the MAPE for display, "N/A" when absent
func (i ForecastInsight) AccuracyLabel() string {
	if i.Accuracy == nil {
		return "N/A"
	}
	return formatPercent(*i.Accuracy)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}
