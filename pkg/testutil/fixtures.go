package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ReferenceNow is the fixed clock used by feed tests. Expiry offsets in
// fixtures are relative to it.
var ReferenceNow = time.Date(2026, time.January, 15, 10, 30, 0, 0, time.UTC)

// PurchaseFixture represents one received lot
type PurchaseFixture struct {
	DrugName     string
	BatchNo      string
	QtyReceived  int
	UnitCost     decimal.Decimal
	DateReceived time.Time
	ExpiryDate   time.Time
}

// SaleFixture represents one sale line
type SaleFixture struct {
	DrugName string
	BatchNo  string
	QtySold  int
	MRP      decimal.Decimal
	SaleDate time.Time
}

// ForecastFixture represents one stored forecast point
type ForecastFixture struct {
	DrugName      string
	DS            string
	Actual        float64
	Yhat          float64
	MovingAvg     float64
	ReorderQty    int
	ReorderDate   string
	MAPE          *float64
	DemandSurge   bool
	SeasonalSpike bool
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Purchase creates a purchase fixture expiring in expiresInDays
func (f *FixtureFactory) Purchase(drug string, qty int, expiresInDays int, opts ...func(*PurchaseFixture)) PurchaseFixture {
	seq := f.nextSeq()
	day := time.Date(ReferenceNow.Year(), ReferenceNow.Month(), ReferenceNow.Day(), 0, 0, 0, 0, time.UTC)

	p := PurchaseFixture{
		DrugName:     drug,
		BatchNo:      fmt.Sprintf("B%03d", seq),
		QtyReceived:  qty,
		UnitCost:     decimal.NewFromInt(10),
		DateReceived: day.AddDate(0, -2, 0),
		ExpiryDate:   day.AddDate(0, 0, expiresInDays),
	}

	for _, opt := range opts {
		opt(&p)
	}

	return p
}

// WithBatch sets the batch number
func WithBatch(batch string) func(*PurchaseFixture) {
	return func(p *PurchaseFixture) {
		p.BatchNo = batch
	}
}

// WithUnitCost sets the unit cost price
func WithUnitCost(cost string) func(*PurchaseFixture) {
	return func(p *PurchaseFixture) {
		p.UnitCost = decimal.RequireFromString(cost)
	}
}

// Sale creates a sale fixture dated the day before ReferenceNow
func (f *FixtureFactory) Sale(drug string, qty int) SaleFixture {
	seq := f.nextSeq()
	return SaleFixture{
		DrugName: drug,
		BatchNo:  fmt.Sprintf("B%03d", seq),
		QtySold:  qty,
		MRP:      decimal.NewFromInt(15),
		SaleDate: ReferenceNow.AddDate(0, 0, -1).Truncate(24 * time.Hour),
	}
}

// Forecast creates a sequence of forecast points, one per day, ending on
// the last yhat given.
func (f *FixtureFactory) Forecast(drug string, yhats ...float64) []ForecastFixture {
	points := make([]ForecastFixture, 0, len(yhats))
	for i, y := range yhats {
		day := ReferenceNow.AddDate(0, 0, i)
		points = append(points, ForecastFixture{
			DrugName:    drug,
			DS:          day.Format("2006-01-02"),
			Actual:      y - 1,
			Yhat:        y,
			MovingAvg:   y,
			ReorderQty:  int(y) * 2,
			ReorderDate: day.AddDate(0, 0, 7).Format("2006-01-02"),
		})
	}
	return points
}

// InsertPurchases writes purchase fixtures
func InsertPurchases(ctx context.Context, db *sqlx.DB, rows ...PurchaseFixture) error {
	query := db.Rebind(`
		INSERT INTO purchases (drug_name, batch_no, qty_received, unit_cost_price, date_received, expiry_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	for _, p := range rows {
		if _, err := db.ExecContext(ctx, query, p.DrugName, p.BatchNo, p.QtyReceived, p.UnitCost, p.DateReceived, p.ExpiryDate); err != nil {
			return fmt.Errorf("failed to insert purchase %s: %w", p.BatchNo, err)
		}
	}
	return nil
}

// InsertSales writes sale fixtures
func InsertSales(ctx context.Context, db *sqlx.DB, rows ...SaleFixture) error {
	query := db.Rebind(`
		INSERT INTO sales (drug_name, batch_no, qty_sold, mrp_unit_price, sale_date)
		VALUES (?, ?, ?, ?, ?)
	`)
	for _, s := range rows {
		if _, err := db.ExecContext(ctx, query, s.DrugName, s.BatchNo, s.QtySold, s.MRP, s.SaleDate); err != nil {
			return fmt.Errorf("failed to insert sale %s: %w", s.BatchNo, err)
		}
	}
	return nil
}

// InsertForecasts writes forecast fixtures
func InsertForecasts(ctx context.Context, db *sqlx.DB, rows ...ForecastFixture) error {
	query := db.Rebind(`
		INSERT INTO forecasts (drug_name, ds, actual, yhat, moving_avg, reorder_qty, reorder_date, mape, demand_surge, seasonal_spike)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	for _, r := range rows {
		if _, err := db.ExecContext(ctx, query,
			r.DrugName, r.DS, r.Actual, r.Yhat, r.MovingAvg, r.ReorderQty,
			r.ReorderDate, r.MAPE, r.DemandSurge, r.SeasonalSpike,
		); err != nil {
			return fmt.Errorf("failed to insert forecast %s/%s: %w", r.DrugName, r.DS, err)
		}
	}
	return nil
}
