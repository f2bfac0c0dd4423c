package engine

import (
	"strings"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
)

// ResolveNearestExpiry returns the smallest DaysToExpiry among batches whose
// drug name matches medicine case-insensitively, or nil when none match.
// Expired batches (negative days) are valid candidates and win over any
// batch still in date.
func ResolveNearestExpiry(medicine string, batches []domain.ExpiryBatch) *int {
	var nearest *int
	for i := range batches {
		if !strings.EqualFold(batches[i].DrugName, medicine) {
			continue
		}
		if nearest == nil || batches[i].DaysToExpiry < *nearest {
			days := batches[i].DaysToExpiry
			nearest = &days
		}
	}
	return nearest
}

// MergeExpiry builds enriched rows from the current inventory and expiry
// snapshots. The inputs are not modified.
func MergeExpiry(items []domain.InventoryItem, batches []domain.ExpiryBatch) []domain.EnrichedInventoryItem {
	merged := make([]domain.EnrichedInventoryItem, 0, len(items))
	for _, item := range items {
		merged = append(merged, domain.EnrichedInventoryItem{
			InventoryItem: item,
			Status:        Classify(item.Stock),
			DaysToExpiry:  ResolveNearestExpiry(item.Medicine, batches),
		})
	}
	return merged
}

// FilterByMedicine keeps rows whose medicine contains search, ignoring case.
// An empty search keeps everything.
func FilterByMedicine(rows []domain.EnrichedInventoryItem, search string) []domain.EnrichedInventoryItem {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return rows
	}

	filtered := make([]domain.EnrichedInventoryItem, 0, len(rows))
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.Medicine), needle) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}
