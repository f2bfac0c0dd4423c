package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nexpharm/pharmacy-intel/pkg/database"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
	"github.com/shopspring/decimal"
)

// Import cleaning rules
const (
	UnknownDrugName = "unknown"
	UnknownBatch    = "UNKNOWN"
	// sale dates from this year on are treated as corrupt
	SaleYearCutoff = 2090
)

var (
	separatorRe  = regexp.MustCompile(`[-_]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
}

// SaleRecord is one raw sales export row
type SaleRecord struct {
	Date         json.RawMessage     `json:"Date"`
	DrugName     *string             `json:"Drug_Name"`
	BatchNo      *string             `json:"Batch_No"`
	QtySold      *float64            `json:"Qty_Sold"`
	MRPUnitPrice decimal.NullDecimal `json:"MRP_Unit_Price"`
}

// PurchaseRecord is one raw purchases export row
type PurchaseRecord struct {
	DateReceived  json.RawMessage     `json:"Date_Received"`
	ExpiryDate    json.RawMessage     `json:"Expiry_Date"`
	DrugName      *string             `json:"Drug_Name"`
	BatchNo       *string             `json:"Batch_No"`
	QtyReceived   *float64            `json:"Qty_Received"`
	UnitCostPrice decimal.NullDecimal `json:"Unit_Cost_Price"`
}

// ImportStats counts what an import wrote
type ImportStats struct {
	Sales        int `json:"sales"`
	Purchases    int `json:"purchases"`
	SkippedSales int `json:"skipped_sales"`
}

// DecodeSales reads a JSON array of sales export rows
func DecodeSales(r io.Reader) ([]SaleRecord, error) {
	var records []SaleRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode sales: %w", err)
	}
	return records, nil
}

// DecodePurchases reads a JSON array of purchases export rows
func DecodePurchases(r io.Reader) ([]PurchaseRecord, error) {
	var records []PurchaseRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode purchases: %w", err)
	}
	return records, nil
}

// NormalizeDrugName lowercases a name, turns dashes and underscores into
// spaces and collapses whitespace. A missing name becomes "unknown".
func NormalizeDrugName(name *string) string {
	if name == nil {
		return UnknownDrugName
	}
	n := strings.ToLower(*name)
	n = separatorRe.ReplaceAllString(n, " ")
	n = whitespaceRe.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// Importer loads cleaned export rows into the feed tables
type Importer struct {
	db     *database.DB
	logger *logger.Logger
}

// NewImporter creates a new importer
func NewImporter(db *database.DB, log *logger.Logger) *Importer {
	return &Importer{
		db:     db,
		logger: log.WithComponent("importer"),
	}
}

// Import cleans and writes sales and purchases in one transaction. With
// replace set the existing rows are deleted first. Sales without a usable
// date are skipped.
func (i *Importer) Import(ctx context.Context, sales []SaleRecord, purchases []PurchaseRecord, replace bool) (*ImportStats, error) {
	if err := EnsureSchema(ctx, i.db); err != nil {
		return nil, err
	}

	stats := &ImportStats{}
	err := i.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if replace {
			for _, table := range []string{"sales", "purchases"} {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
					return fmt.Errorf("failed to clear %s: %w", table, err)
				}
			}
		}

		saleQuery := tx.Rebind(`
			INSERT INTO sales (drug_name, batch_no, qty_sold, mrp_unit_price, sale_date)
			VALUES (?, ?, ?, ?, ?)
		`)
		for _, s := range sales {
			date, ok := parseDate(s.Date)
			if !ok || date.Year() >= SaleYearCutoff {
				stats.SkippedSales++
				continue
			}
			if _, err := tx.ExecContext(ctx, saleQuery,
				NormalizeDrugName(s.DrugName), batchOrUnknown(s.BatchNo), quantity(s.QtySold),
				nonNegative(s.MRPUnitPrice), date,
			); err != nil {
				return fmt.Errorf("failed to insert sale: %w", err)
			}
			stats.Sales++
		}

		purchaseQuery := tx.Rebind(`
			INSERT INTO purchases (drug_name, batch_no, qty_received, unit_cost_price, date_received, expiry_date)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		for _, p := range purchases {
			if _, err := tx.ExecContext(ctx, purchaseQuery,
				NormalizeDrugName(p.DrugName), batchOrUnknown(p.BatchNo), quantity(p.QtyReceived),
				nonNegative(p.UnitCostPrice), nullableDate(p.DateReceived), nullableDate(p.ExpiryDate),
			); err != nil {
				return fmt.Errorf("failed to insert purchase: %w", err)
			}
			stats.Purchases++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	i.logger.Info().
		Int("sales", stats.Sales).
		Int("purchases", stats.Purchases).
		Int("skipped_sales", stats.SkippedSales).
		Msg("feed import completed")

	return stats, nil
}

func batchOrUnknown(batch *string) string {
	if batch == nil || strings.TrimSpace(*batch) == "" {
		return UnknownBatch
	}
	return strings.TrimSpace(*batch)
}

func quantity(q *float64) int {
	if q == nil {
		return 0
	}
	return int(*q)
}

func nonNegative(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid || d.Decimal.IsNegative() {
		return decimal.Zero
	}
	return d.Decimal
}

func nullableDate(raw json.RawMessage) interface{} {
	if t, ok := parseDate(raw); ok {
		return t
	}
	return nil
}

// parseDate accepts date strings in the common export layouts and epoch
// milliseconds. Anything else is treated as missing.
func parseDate(raw json.RawMessage) (time.Time, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, false
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(str)); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
