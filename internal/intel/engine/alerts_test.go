package engine

import (
	"fmt"
	"testing"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowStockAlerts(t *testing.T) {
	items := []domain.InventoryItem{
		{Medicine: "a", Stock: 49},
		{Medicine: "b", Stock: 50},
		{Medicine: "c", Stock: 0},
		{Medicine: "d", Stock: 19},
		{Medicine: "e", Stock: 20},
		{Medicine: "f", Stock: 300},
	}

	alerts := LowStockAlerts(items)
	require.Len(t, alerts, 4)

	names := []string{}
	for _, a := range alerts {
		assert.Less(t, a.Stock, LowStockThreshold)
		assert.Contains(t, items, a.InventoryItem)
		assert.Equal(t, LowStockReason, a.Reason)
		names = append(names, a.Medicine)
	}
	assert.Equal(t, []string{"a", "c", "d", "e"}, names)

	assert.Equal(t, domain.SeverityWarning, alerts[0].Severity)
	assert.Equal(t, domain.SeverityCritical, alerts[1].Severity)
	assert.Equal(t, domain.SeverityCritical, alerts[2].Severity)
	assert.Equal(t, domain.SeverityWarning, alerts[3].Severity)
}

func TestLowStockAlerts_NoneIsEmptyNotNil(t *testing.T) {
	alerts := LowStockAlerts([]domain.InventoryItem{{Medicine: "x", Stock: 80}})
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}

func batchesWithDays(days ...int) []domain.ExpiryBatch {
	out := make([]domain.ExpiryBatch, 0, len(days))
	for i, d := range days {
		out = append(out, domain.ExpiryBatch{DrugName: fmt.Sprintf("m%d", i), Batch: fmt.Sprintf("B%d", i), DaysToExpiry: d})
	}
	return out
}

func TestExpiringAlerts_FeedOrder(t *testing.T) {
	batches := batchesWithDays(20, 3, 15, 1, 28, 2, 0)

	got := ExpiringAlerts(batches)
	require.Len(t, got, ExpiringAlertCap)
	assert.Equal(t, batches[:5], got)

	assert.Len(t, ExpiringAlerts(batchesWithDays(4, 2)), 2)
	assert.Empty(t, ExpiringAlerts(nil))
}

func TestExpiringAlertsByUrgency(t *testing.T) {
	batches := batchesWithDays(20, 3, 15, 1, 28, 2, 0, 3)

	got := ExpiringAlertsByUrgency(batches)
	require.Len(t, got, ExpiringAlertCap)

	days := []int{}
	for _, b := range got {
		days = append(days, b.DaysToExpiry)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 3}, days)
	assert.Equal(t, "B1", got[3].Batch, "ties keep feed order")

	// input untouched
	assert.Equal(t, 20, batches[0].DaysToExpiry)
}

func TestShouldShowExpiryPopup(t *testing.T) {
	assert.False(t, ShouldShowExpiryPopup(nil))
	assert.False(t, ShouldShowExpiryPopup([]domain.ExpiryBatch{}))
	assert.True(t, ShouldShowExpiryPopup(batchesWithDays(12)))
}

func TestEndToEnd_CriticalWithoutExpiry(t *testing.T) {
	inventory := []domain.InventoryItem{{Medicine: "paracetamol", Stock: 15}}
	var expiry []domain.ExpiryBatch

	merged := MergeExpiry(inventory, expiry)
	require.Len(t, merged, 1)
	assert.Equal(t, domain.StatusCritical, merged[0].Status)
	assert.Nil(t, merged[0].DaysToExpiry)

	low := LowStockAlerts(inventory)
	require.Len(t, low, 1)
	assert.Equal(t, "paracetamol", low[0].Medicine)

	assert.Empty(t, ExpiringAlerts(expiry))
	assert.Empty(t, ExpiringAlertsByUrgency(expiry))
}
