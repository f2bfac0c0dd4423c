package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/nexpharm/pharmacy-intel/internal/intel/engine"
	"github.com/nexpharm/pharmacy-intel/pkg/database"
	"github.com/shopspring/decimal"
)

// Expiry buckets, in days to expiry
const (
	HighRiskExpiryDays   = 7
	MediumRiskExpiryDays = 30
)

// Risk bucket and chart labels
const (
	LabelHighRisk         = "High Risk"
	LabelMediumRisk       = "Medium Risk"
	LabelLowRisk          = "Low Risk"
	LabelRecoverableValue = "Recoverable Value"
	LabelPotentialLoss    = "Potential Loss"
)

const noBatch = "—"

// purchaseRow is one received lot
type purchaseRow struct {
	DrugName    string          `db:"drug_name"`
	BatchNo     sql.NullString  `db:"batch_no"`
	QtyReceived int             `db:"qty_received"`
	UnitCost    decimal.Decimal `db:"unit_cost_price"`
	ExpiryDate  sql.NullTime    `db:"expiry_date"`
}

func (p purchaseRow) value() decimal.Decimal {
	return p.UnitCost.Mul(decimal.NewFromInt(int64(p.QtyReceived)))
}

func (p purchaseRow) batch() string {
	if !p.BatchNo.Valid || strings.TrimSpace(p.BatchNo.String) == "" {
		return noBatch
	}
	return p.BatchNo.String
}

// FeedRepository derives the inventory, expiry, forecast and analytics feeds
// from the sales and purchases tables. It never writes.
type FeedRepository struct {
	db               *database.DB
	expiryWindowDays int
	now              func() time.Time
}

// NewFeedRepository creates a feed repository. Batches expiring within
// expiryWindowDays are reported by the expiry feed.
func NewFeedRepository(db *database.DB, expiryWindowDays int) *FeedRepository {
	if expiryWindowDays <= 0 {
		expiryWindowDays = MediumRiskExpiryDays
	}
	return &FeedRepository{
		db:               db,
		expiryWindowDays: expiryWindowDays,
		now:              time.Now,
	}
}

// WithClock replaces the clock used to compute days to expiry
func (r *FeedRepository) WithClock(now func() time.Time) *FeedRepository {
	r.now = now
	return r
}

// Inventory returns stock per purchased medicine: received minus sold,
// never below zero.
func (r *FeedRepository) Inventory(ctx context.Context) ([]domain.InventoryItem, error) {
	query := `
		SELECT p.drug_name AS medicine,
		       p.received - COALESCE(s.sold, 0) AS stock
		FROM (SELECT drug_name, SUM(qty_received) AS received FROM purchases GROUP BY drug_name) p
		LEFT JOIN (SELECT drug_name, SUM(qty_sold) AS sold FROM sales GROUP BY drug_name) s
		       ON s.drug_name = p.drug_name
		ORDER BY p.drug_name
	`

	items := []domain.InventoryItem{}
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, database.MapQueryError("inventory", err)
	}

	for i := range items {
		if items[i].Stock < 0 {
			items[i].Stock = 0
		}
	}
	return items, nil
}

// LowStockAlerts returns inventory rows under the safety threshold
func (r *FeedRepository) LowStockAlerts(ctx context.Context) ([]domain.LowStockAlert, error) {
	items, err := r.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	return engine.LowStockAlerts(items), nil
}

// ExpiryBatches returns batches expiring within the window, soonest first
func (r *FeedRepository) ExpiryBatches(ctx context.Context) ([]domain.ExpiryBatch, error) {
	rows, err := r.purchases(ctx, "expiry")
	if err != nil {
		return nil, err
	}

	today := r.now()
	batches := []domain.ExpiryBatch{}
	for _, p := range rows {
		if !p.ExpiryDate.Valid {
			continue
		}
		days := daysUntil(p.ExpiryDate.Time, today)
		if days < 0 || days > r.expiryWindowDays {
			continue
		}

		severity := domain.SeverityWarning
		if days <= HighRiskExpiryDays {
			severity = domain.SeverityCritical
		}
		batches = append(batches, domain.ExpiryBatch{
			DrugName:     p.DrugName,
			Batch:        p.batch(),
			DaysToExpiry: days,
			ExpiryDate:   p.ExpiryDate.Time.Format("2006-01-02"),
			Severity:     severity,
			Quantity:     p.QtyReceived,
		})
	}

	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].DaysToExpiry < batches[j].DaysToExpiry
	})
	return batches, nil
}

// Forecast returns the stored forecast points for a medicine, oldest first
func (r *FeedRepository) Forecast(ctx context.Context, medicine string) ([]domain.ForecastPoint, error) {
	query := r.db.Rebind(`
		SELECT ds, actual, yhat, moving_avg, reorder_qty,
		       COALESCE(reorder_date, '') AS reorder_date,
		       mape, demand_surge, seasonal_spike
		FROM forecasts
		WHERE LOWER(drug_name) = ?
		ORDER BY ds
	`)

	points := []domain.ForecastPoint{}
	if err := r.db.SelectContext(ctx, &points, query, engine.NormalizeMedicine(medicine)); err != nil {
		return nil, database.MapQueryError("forecast", err)
	}
	return points, nil
}

// Wastage is the purchase value of batches already past expiry
func (r *FeedRepository) Wastage(ctx context.Context) (*domain.Wastage, error) {
	rows, err := r.purchases(ctx, "wastage")
	if err != nil {
		return nil, err
	}

	today := r.now()
	cost := decimal.Zero
	for _, p := range rows {
		if p.ExpiryDate.Valid && daysUntil(p.ExpiryDate.Time, today) < 0 {
			cost = cost.Add(p.value())
		}
	}
	return &domain.Wastage{Cost: cost.Round(2)}, nil
}

// ExpiryRisk buckets every dated batch: up to 7 days is high risk,
// up to 30 medium, beyond that low.
func (r *FeedRepository) ExpiryRisk(ctx context.Context) (*domain.ExpiryRisk, error) {
	rows, err := r.purchases(ctx, "expiry-risk")
	if err != nil {
		return nil, err
	}

	var counts [3]int64
	var values [3]decimal.Decimal
	today := r.now()
	for _, p := range rows {
		if !p.ExpiryDate.Valid {
			continue
		}
		days := daysUntil(p.ExpiryDate.Time, today)
		bucket := 2
		switch {
		case days <= HighRiskExpiryDays:
			bucket = 0
		case days <= MediumRiskExpiryDays:
			bucket = 1
		}
		counts[bucket]++
		values[bucket] = values[bucket].Add(p.value())
	}

	labels := [3]string{LabelHighRisk, LabelMediumRisk, LabelLowRisk}
	risk := &domain.ExpiryRisk{}
	for i, label := range labels {
		risk.Distribution = append(risk.Distribution, domain.NamedValue{Name: label, Value: decimal.NewFromInt(counts[i])})
		risk.ValueAtRisk = append(risk.ValueAtRisk, domain.NamedValue{Name: label, Value: values[i].Round(2)})
	}
	return risk, nil
}

// ExpiryLossSummary splits the value of batches inside the expiry window.
// Batches with more than a week left can still be sold or returned and
// count as recoverable; the rest is potential loss.
func (r *FeedRepository) ExpiryLossSummary(ctx context.Context) (*domain.ExpiryLossSummary, error) {
	rows, err := r.purchases(ctx, "expiry-loss")
	if err != nil {
		return nil, err
	}

	total, recoverable := decimal.Zero, decimal.Zero
	found := false
	today := r.now()
	for _, p := range rows {
		if !p.ExpiryDate.Valid {
			continue
		}
		days := daysUntil(p.ExpiryDate.Time, today)
		if days < 0 || days > r.expiryWindowDays {
			continue
		}
		found = true
		total = total.Add(p.value())
		if days > HighRiskExpiryDays {
			recoverable = recoverable.Add(p.value())
		}
	}

	summary := &domain.ExpiryLossSummary{Chart: []domain.NamedValue{}}
	if !found {
		return summary, nil
	}

	loss := total.Sub(recoverable)
	summary.Chart = []domain.NamedValue{
		{Name: LabelRecoverableValue, Value: recoverable.Round(2)},
		{Name: LabelPotentialLoss, Value: loss.Round(2)},
	}
	summary.Summary = domain.ExpiryLossTotals{
		TotalValue:       total.Round(2),
		RecoverableValue: recoverable.Round(2),
		PotentialLoss:    loss.Round(2),
	}
	return summary, nil
}

// DashboardKPIs counts medicines seen in either table, units on hand,
// medicines under the low-stock threshold and batches expiring in the window.
func (r *FeedRepository) DashboardKPIs(ctx context.Context) (*domain.DashboardKPIs, error) {
	query := `
		SELECT n.drug_name AS medicine,
		       COALESCE(p.received, 0) - COALESCE(s.sold, 0) AS stock
		FROM (SELECT drug_name FROM purchases UNION SELECT drug_name FROM sales) n
		LEFT JOIN (SELECT drug_name, SUM(qty_received) AS received FROM purchases GROUP BY drug_name) p
		       ON p.drug_name = n.drug_name
		LEFT JOIN (SELECT drug_name, SUM(qty_sold) AS sold FROM sales GROUP BY drug_name) s
		       ON s.drug_name = n.drug_name
	`

	var stock []domain.InventoryItem
	if err := r.db.SelectContext(ctx, &stock, query); err != nil {
		return nil, database.MapQueryError("dashboard-kpis", err)
	}

	kpis := &domain.DashboardKPIs{UniqueMedicines: len(stock)}
	for _, s := range stock {
		kpis.TotalUnits += s.Stock
		if s.Stock < engine.LowStockThreshold {
			kpis.LowStock++
		}
	}
	if kpis.TotalUnits < 0 {
		kpis.TotalUnits = 0
	}

	rows, err := r.purchases(ctx, "dashboard-kpis")
	if err != nil {
		return nil, err
	}
	today := r.now()
	for _, p := range rows {
		if !p.ExpiryDate.Valid {
			continue
		}
		if days := daysUntil(p.ExpiryDate.Time, today); days >= 0 && days <= r.expiryWindowDays {
			kpis.ExpiringSoon++
		}
	}

	return kpis, nil
}

func (r *FeedRepository) purchases(ctx context.Context, feed string) ([]purchaseRow, error) {
	query := `
		SELECT drug_name, batch_no, qty_received, unit_cost_price, expiry_date
		FROM purchases
		ORDER BY drug_name, batch_no
	`

	var rows []purchaseRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, database.MapQueryError(feed, err)
	}
	return rows, nil
}

// daysUntil counts calendar days from now to expiry; negative once expired
func daysUntil(expiry, now time.Time) int {
	e := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(n).Hours() / 24)
}
