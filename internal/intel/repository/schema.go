package repository

import (
	"context"
	"fmt"

	"github.com/nexpharm/pharmacy-intel/pkg/database"
)

// Schema is the feed store layout. It is valid for both postgres and sqlite3.
// Drug names are stored normalised (lowercase, single spaces).
const Schema = `
CREATE TABLE IF NOT EXISTS purchases (
	drug_name       TEXT NOT NULL,
	batch_no        TEXT,
	qty_received    INTEGER NOT NULL DEFAULT 0,
	unit_cost_price NUMERIC(12, 2) NOT NULL DEFAULT 0,
	date_received   DATE,
	expiry_date     DATE
);

CREATE TABLE IF NOT EXISTS sales (
	drug_name      TEXT NOT NULL,
	batch_no       TEXT,
	qty_sold       INTEGER NOT NULL DEFAULT 0,
	mrp_unit_price NUMERIC(12, 2) NOT NULL DEFAULT 0,
	sale_date      DATE
);

CREATE TABLE IF NOT EXISTS forecasts (
	drug_name      TEXT NOT NULL,
	ds             TEXT NOT NULL,
	actual         DOUBLE PRECISION NOT NULL DEFAULT 0,
	yhat           DOUBLE PRECISION NOT NULL,
	moving_avg     DOUBLE PRECISION NOT NULL DEFAULT 0,
	reorder_qty    INTEGER NOT NULL DEFAULT 0,
	reorder_date   TEXT,
	mape           DOUBLE PRECISION,
	demand_surge   BOOLEAN NOT NULL DEFAULT FALSE,
	seasonal_spike BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_purchases_drug_name ON purchases (drug_name);
CREATE INDEX IF NOT EXISTS idx_sales_drug_name ON sales (drug_name);
CREATE INDEX IF NOT EXISTS idx_forecasts_drug_name ON forecasts (drug_name, ds);
`

// EnsureSchema creates the feed tables if they do not exist
func EnsureSchema(ctx context.Context, db *database.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create feed schema: %w", err)
	}
	return nil
}
