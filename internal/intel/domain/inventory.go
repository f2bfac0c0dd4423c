package domain

import (
	"github.com/shopspring/decimal"
)

// StockStatus is the severity tier of a stock count
type StockStatus string

const (
	StatusCritical StockStatus = "Critical"
	StatusLow      StockStatus = "Low"
	StatusHealthy  StockStatus = "Healthy"
)

// Alert severities used by the low-stock and expiry feeds
const (
	SeverityCritical = "CRITICAL"
	SeverityWarning  = "WARNING"
)

// InventoryItem is one row of the inventory feed. Medicine is compared
// case-insensitively everywhere.
type InventoryItem struct {
	Medicine string `json:"medicine" db:"medicine"`
	Stock    int    `json:"stock" db:"stock"`
}

// ExpiryBatch is a lot of a medicine with its distance to expiry in days.
// Negative DaysToExpiry means the batch has already expired.
type ExpiryBatch struct {
	DrugName     string `json:"drug_name" db:"drug_name"`
	Batch        string `json:"batch" db:"batch"`
	DaysToExpiry int    `json:"days_to_expiry" db:"days_to_expiry"`
	ExpiryDate   string `json:"expiry_date,omitempty" db:"expiry_date"`
	Severity     string `json:"severity,omitempty" db:"-"`
	Quantity     int    `json:"quantity,omitempty" db:"quantity"`
}

// EnrichedInventoryItem is an inventory row merged with its classification
// and the nearest expiry among same-name batches. DaysToExpiry is nil when
// no batch matches.
type EnrichedInventoryItem struct {
	InventoryItem
	Status       StockStatus `json:"status"`
	DaysToExpiry *int        `json:"days_to_expiry"`
}

// LowStockAlert is an inventory row under the safety threshold
type LowStockAlert struct {
	InventoryItem
	Severity string `json:"severity"`
	Reason   string `json:"reason"`
}

// ExposureTier colours an exposure entry
type ExposureTier string

const (
	ExposureHigh   ExposureTier = "high"
	ExposureMedium ExposureTier = "medium"
	ExposureLow    ExposureTier = "low"
)

// ExposureEntry is the financial-exposure proxy of one medicine.
// Value is derived from stock only and is not a currency amount.
type ExposureEntry struct {
	Medicine string       `json:"medicine"`
	Value    int          `json:"value"`
	Tier     ExposureTier `json:"tier"`
}

// NamedValue is a labelled chart datum
type NamedValue struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// ExpiryLossSummary splits the value of soon-expiring stock into what can
// still be recovered and what is likely lost.
type ExpiryLossSummary struct {
	Chart   []NamedValue     `json:"chart"`
	Summary ExpiryLossTotals `json:"summary"`
}

// ExpiryLossTotals holds the money totals of an ExpiryLossSummary
type ExpiryLossTotals struct {
	TotalValue       decimal.Decimal `json:"total_value"`
	RecoverableValue decimal.Decimal `json:"recoverable_value"`
	PotentialLoss    decimal.Decimal `json:"potential_loss"`
}

// ExpiryRisk buckets purchase batches by days to expiry
type ExpiryRisk struct {
	Distribution []NamedValue `json:"distribution"`
	ValueAtRisk  []NamedValue `json:"value_at_risk"`
}

// Wastage is the purchase value of already expired stock
type Wastage struct {
	Cost decimal.Decimal `json:"wastage_cost"`
}

// DashboardKPIs are the headline counters of the dashboard
type DashboardKPIs struct {
	UniqueMedicines int `json:"unique_medicines" db:"unique_medicines"`
	TotalUnits      int `json:"total_units" db:"total_units"`
	LowStock        int `json:"low_stock" db:"low_stock"`
	ExpiringSoon    int `json:"expiring_soon" db:"expiring_soon"`
}
