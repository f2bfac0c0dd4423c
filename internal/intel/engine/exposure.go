package engine

import (
	"sort"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
)

// Exposure policy. The value is a proxy (stock times a fixed weight), not a
// price, so it must not be read as a currency amount.
const (
	ExposureUnitWeight      = 100
	ExposureTopN            = 8
	HighExposureThreshold   = 5000
	MediumExposureThreshold = 2000
)

// ExposureTierFor colours a value: above 5000 is high, above 2000 medium
func ExposureTierFor(value int) domain.ExposureTier {
	switch {
	case value > HighExposureThreshold:
		return domain.ExposureHigh
	case value > MediumExposureThreshold:
		return domain.ExposureMedium
	default:
		return domain.ExposureLow
	}
}

// RankExposure scores every item, sorts by value descending and keeps the
// top ExposureTopN. Equal values keep their input order.
func RankExposure(items []domain.InventoryItem) []domain.ExposureEntry {
	entries := make([]domain.ExposureEntry, 0, len(items))
	for _, item := range items {
		value := item.Stock * ExposureUnitWeight
		entries = append(entries, domain.ExposureEntry{
			Medicine: item.Medicine,
			Value:    value,
		})
	}
	return ReRank(entries)
}

// ReRank applies the ranking to entries that already carry a value.
// ReRank(ReRank(x)) equals ReRank(x).
func ReRank(entries []domain.ExposureEntry) []domain.ExposureEntry {
	ranked := make([]domain.ExposureEntry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Value > ranked[j].Value
	})

	if len(ranked) > ExposureTopN {
		ranked = ranked[:ExposureTopN]
	}
	for i := range ranked {
		ranked[i].Tier = ExposureTierFor(ranked[i].Value)
	}
	return ranked
}
