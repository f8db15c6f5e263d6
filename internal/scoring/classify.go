// Package scoring turns raw anomaly alerts into prioritized, business-weighted
// alerts: customer size classification, revenue-at-risk estimation and a
// single comparable 0-100 priority score.
package scoring

import (
	"sort"

	"github.com/cargoflow/partner-pulse/internal/model"
)

// Classifier assigns customer size classes from the distribution of total
// order counts across the whole partner population. Build it once per
// analysis pass so every partner is ranked against the same snapshot.
type Classifier struct {
	counts []int
}

// NewClassifier captures the order-count distribution of the given partner
// population.
func NewClassifier(population []model.PartnerStats) *Classifier {
	counts := make([]int, 0, len(population))
	for _, ps := range population {
		counts = append(counts, ps.TotalOrders)
	}
	sort.Ints(counts)
	return &Classifier{counts: counts}
}

// Percentile returns the rank-average percentile of totalOrders within the
// population: (strictly-fewer + 0.5*equal) / N. Ties share a rank, so a
// population of identical partners all land at 0.5 rather than alternating
// between extremes. An empty population yields 0.
func (c *Classifier) Percentile(totalOrders int) float64 {
	n := len(c.counts)
	if n == 0 {
		return 0
	}
	lower := sort.SearchInts(c.counts, totalOrders)
	upper := sort.SearchInts(c.counts, totalOrders+1)
	return (float64(lower) + 0.5*float64(upper-lower)) / float64(n)
}

// Classify maps a partner to small/medium/large. The percentile rule adapts
// to the population; the absolute floors catch genuinely big partners inside
// a uniformly large dataset.
func (c *Classifier) Classify(ps model.PartnerStats) model.CustomerSize {
	p := c.Percentile(ps.TotalOrders)
	switch {
	case p >= 0.75 || (ps.TotalOrders >= 500 && ps.UniqueWarehouses >= 2):
		return model.SizeLarge
	case p >= 0.40 || (ps.TotalOrders >= 100 && ps.UniqueWarehouses >= 1):
		return model.SizeMedium
	default:
		return model.SizeSmall
	}
}
