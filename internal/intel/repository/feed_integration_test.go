//go:build integration

package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nexpharm/pharmacy-intel/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	code := m.Run()
	testutil.TerminateContainer(context.Background())
	os.Exit(code)
}

func TestFeedRepository_Postgres(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := testutil.DefaultTestContext(t)

	suite, err := testutil.NewIntegrationSuite(ctx, Schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		suite.Truncate(context.Background(), "purchases", "sales", "forecasts")
	})

	f := suite.Fixtures
	require.NoError(t, testutil.InsertPurchases(ctx, suite.RawDB,
		f.Purchase("dolo 650", 100, 5),
		f.Purchase("pan 40", 40, 60),
	))
	require.NoError(t, testutil.InsertSales(ctx, suite.RawDB, f.Sale("dolo 650", 70)))
	require.NoError(t, testutil.InsertForecasts(ctx, suite.RawDB, f.Forecast("dolo 650", 12, 13.4)...))

	repo := NewFeedRepository(suite.DB, 30).WithClock(func() time.Time { return testutil.ReferenceNow })

	items, err := repo.Inventory(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 30, items[0].Stock)

	batches, err := repo.ExpiryBatches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 5, batches[0].DaysToExpiry)

	points, err := repo.Forecast(ctx, "DOLO 650")
	require.NoError(t, err)
	assert.Len(t, points, 2)

	kpis, err := repo.DashboardKPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, kpis.UniqueMedicines)
	assert.Equal(t, 70, kpis.TotalUnits)
}
