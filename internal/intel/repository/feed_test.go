package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/nexpharm/pharmacy-intel/pkg/database"
	apperrors "github.com/nexpharm/pharmacy-intel/pkg/errors"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
	"github.com/nexpharm/pharmacy-intel/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seededRepository loads a small pharmacy:
//
//	dolo 650  received 100 (+5d, 10.00) and 50 (+20d, 12.00), sold 120
//	pan 40    received 40 (+60d, 10.00)
//	telma 40  received 10 (-3d, 20.00), sold 30
//	allegra 120 sold 5, never purchased
func seededRepository(t *testing.T) *FeedRepository {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t, Schema)
	f := testutil.NewFixtureFactory()

	require.NoError(t, testutil.InsertPurchases(ctx, db,
		f.Purchase("dolo 650", 100, 5, testutil.WithBatch("D1")),
		f.Purchase("dolo 650", 50, 20, testutil.WithBatch("D2"), testutil.WithUnitCost("12.00")),
		f.Purchase("pan 40", 40, 60, testutil.WithBatch("P1")),
		f.Purchase("telma 40", 10, -3, testutil.WithBatch("T1"), testutil.WithUnitCost("20.00")),
	))
	require.NoError(t, testutil.InsertSales(ctx, db,
		f.Sale("dolo 650", 120),
		f.Sale("telma 40", 30),
		f.Sale("allegra 120", 5),
	))
	require.NoError(t, testutil.InsertForecasts(ctx, db, f.Forecast("dolo 650", 40, 41.2, 42.6)...))

	return NewFeedRepository(database.Wrap(db, logger.Nop()), 30).
		WithClock(func() time.Time { return testutil.ReferenceNow })
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFeedRepository_Inventory(t *testing.T) {
	repo := seededRepository(t)

	items, err := repo.Inventory(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.InventoryItem{
		{Medicine: "dolo 650", Stock: 30},
		{Medicine: "pan 40", Stock: 40},
		{Medicine: "telma 40", Stock: 0},
	}, items)
}

func TestFeedRepository_LowStockAlerts(t *testing.T) {
	repo := seededRepository(t)

	alerts, err := repo.LowStockAlerts(context.Background())
	require.NoError(t, err)

	require.Len(t, alerts, 3)
	assert.Equal(t, "telma 40", alerts[2].Medicine)
	assert.Equal(t, domain.SeverityCritical, alerts[2].Severity)
}

func TestFeedRepository_ExpiryBatches(t *testing.T) {
	repo := seededRepository(t)

	batches, err := repo.ExpiryBatches(context.Background())
	require.NoError(t, err)

	require.Len(t, batches, 2, "expired and far-off batches are outside the window")
	assert.Equal(t, "D1", batches[0].Batch)
	assert.Equal(t, 5, batches[0].DaysToExpiry)
	assert.Equal(t, domain.SeverityCritical, batches[0].Severity)
	assert.Equal(t, "2026-01-20", batches[0].ExpiryDate)
	assert.Equal(t, 100, batches[0].Quantity)

	assert.Equal(t, "D2", batches[1].Batch)
	assert.Equal(t, 20, batches[1].DaysToExpiry)
	assert.Equal(t, domain.SeverityWarning, batches[1].Severity)
}

func TestFeedRepository_ExpiryBatches_WindowIsConfigurable(t *testing.T) {
	repo := seededRepository(t)
	repo.expiryWindowDays = 90

	batches, err := repo.ExpiryBatches(context.Background())
	require.NoError(t, err)

	require.Len(t, batches, 3)
	assert.Equal(t, "pan 40", batches[2].DrugName)
	assert.Equal(t, 60, batches[2].DaysToExpiry)
}

func TestFeedRepository_Forecast(t *testing.T) {
	repo := seededRepository(t)

	points, err := repo.Forecast(context.Background(), "Dolo 650")
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.Equal(t, "2026-01-15", points[0].DS)
	assert.InDelta(t, 42.6, points[2].YHat, 0.0001)
	assert.Nil(t, points[2].MAPE)

	none, err := repo.Forecast(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestFeedRepository_Wastage(t *testing.T) {
	repo := seededRepository(t)

	wastage, err := repo.Wastage(context.Background())
	require.NoError(t, err)

	assert.True(t, dec("200").Equal(wastage.Cost), "got %s", wastage.Cost)
}

func TestFeedRepository_ExpiryRisk(t *testing.T) {
	repo := seededRepository(t)

	risk, err := repo.ExpiryRisk(context.Background())
	require.NoError(t, err)

	require.Len(t, risk.Distribution, 3)
	assert.Equal(t, LabelHighRisk, risk.Distribution[0].Name)
	assert.True(t, dec("2").Equal(risk.Distribution[0].Value))
	assert.True(t, dec("1").Equal(risk.Distribution[1].Value))
	assert.True(t, dec("1").Equal(risk.Distribution[2].Value))

	assert.True(t, dec("1200").Equal(risk.ValueAtRisk[0].Value), "got %s", risk.ValueAtRisk[0].Value)
	assert.True(t, dec("600").Equal(risk.ValueAtRisk[1].Value))
	assert.True(t, dec("400").Equal(risk.ValueAtRisk[2].Value))
}

func TestFeedRepository_ExpiryLossSummary(t *testing.T) {
	repo := seededRepository(t)

	summary, err := repo.ExpiryLossSummary(context.Background())
	require.NoError(t, err)

	assert.True(t, dec("1600").Equal(summary.Summary.TotalValue), "got %s", summary.Summary.TotalValue)
	assert.True(t, dec("600").Equal(summary.Summary.RecoverableValue))
	assert.True(t, dec("1000").Equal(summary.Summary.PotentialLoss))
	require.Len(t, summary.Chart, 2)
	assert.Equal(t, LabelRecoverableValue, summary.Chart[0].Name)
}

func TestFeedRepository_ExpiryLossSummary_Empty(t *testing.T) {
	db := testutil.NewSQLiteDB(t, Schema)
	repo := NewFeedRepository(database.Wrap(db, logger.Nop()), 30)

	summary, err := repo.ExpiryLossSummary(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, summary.Chart)
	assert.Empty(t, summary.Chart)
	assert.True(t, summary.Summary.TotalValue.IsZero())
}

func TestFeedRepository_DashboardKPIs(t *testing.T) {
	repo := seededRepository(t)

	kpis, err := repo.DashboardKPIs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, &domain.DashboardKPIs{
		UniqueMedicines: 4,
		TotalUnits:      45,
		LowStock:        4,
		ExpiringSoon:    2,
	}, kpis)
}

func TestFeedRepository_QueryFailureIsNetworkFailure(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("SELECT p.drug_name AS medicine").
		WillReturnError(errors.New("connection reset by peer"))

	repo := NewFeedRepository(database.Wrap(mockDB.DB, logger.Nop()), 30)
	_, err := repo.Inventory(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNetworkFailure))
	mockDB.ExpectationsWereMet(t)
}

func TestFeedRepository_InventoryClampsOversold(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("SELECT p.drug_name AS medicine").
		WillReturnRows(testutil.MockRows("medicine", "stock").
			AddRow("dolo 650", 12).
			AddRow("telma 40", -20))

	repo := NewFeedRepository(database.Wrap(mockDB.DB, logger.Nop()), 30)
	items, err := repo.Inventory(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.InventoryItem{
		{Medicine: "dolo 650", Stock: 12},
		{Medicine: "telma 40", Stock: 0},
	}, items)
	mockDB.ExpectationsWereMet(t)
}

func TestFeedRepository_MissingSchema(t *testing.T) {
	db := testutil.NewSQLiteDB(t, "")
	repo := NewFeedRepository(database.Wrap(db, logger.Nop()), 30)

	_, err := repo.Wastage(context.Background())

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, "FEED_SCHEMA_ERROR", appErr.Code)
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 1, 15, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, 0, daysUntil(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 1, daysUntil(time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, -1, daysUntil(time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 31, daysUntil(time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), now))
}
