// Package stats is the aggregation engine: it turns a collection of order
// records into per-partner and per-SKU statistics, including the churn risk
// heuristic. All outputs are value objects recomputed per call.
package stats

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cargoflow/partner-pulse/internal/model"
)

// fulfilledStatuses are the effective order statuses counted toward the
// fulfillment score.
var fulfilledStatuses = map[string]bool{
	"delivered": true,
	"completed": true,
	"closed":    true,
}

type partnerKey struct {
	partner   string
	direction string
}

type skuKey struct {
	sku       string
	partner   string
	direction string
}

// BuildPartnerStats computes one PartnerStats per distinct (partner,
// direction) pair found in records. Records missing a partner id are
// skipped; a partner whose records all carry unparsable order dates still
// appears, carrying neutral defaults. The result is sorted descending by
// total order count; downstream top-N consumers rely on this ordering.
func BuildPartnerStats(records []model.OrderRecord, now time.Time) []model.PartnerStats {
	groups := make(map[partnerKey][]model.OrderRecord)
	for _, r := range records {
		if r.PartnerID == "" {
			continue
		}
		k := partnerKey{partner: r.PartnerID, direction: r.EffectiveDirection()}
		groups[k] = append(groups[k], r)
	}

	out := make([]model.PartnerStats, 0, len(groups))
	for k, recs := range groups {
		out = append(out, buildPartner(k, recs, now))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalOrders != out[j].TotalOrders {
			return out[i].TotalOrders > out[j].TotalOrders
		}
		if out[i].PartnerID != out[j].PartnerID {
			return out[i].PartnerID < out[j].PartnerID
		}
		return out[i].Direction < out[j].Direction
	})
	return out
}

// BuildSKUStats computes one SKUStats per distinct (SKU, partner, direction)
// triple, sorted descending by total order count.
func BuildSKUStats(records []model.OrderRecord, now time.Time) []model.SKUStats {
	groups := make(map[skuKey][]model.OrderRecord)
	for _, r := range records {
		if r.PartnerID == "" || r.SKU == "" {
			continue
		}
		k := skuKey{sku: r.SKU, partner: r.PartnerID, direction: r.EffectiveDirection()}
		groups[k] = append(groups[k], r)
	}

	out := make([]model.SKUStats, 0, len(groups))
	for k, recs := range groups {
		out = append(out, buildSKU(k, recs, now))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalOrders != out[j].TotalOrders {
			return out[i].TotalOrders > out[j].TotalOrders
		}
		if out[i].PartnerID != out[j].PartnerID {
			return out[i].PartnerID < out[j].PartnerID
		}
		if out[i].SKU != out[j].SKU {
			return out[i].SKU < out[j].SKU
		}
		return out[i].Direction < out[j].Direction
	})
	return out
}

// NewEmptyPartnerStats returns the neutral stats object for a partner with
// no qualifying records: numeric fields zero, diversification 100 (nothing
// to concentrate), fulfillment 50 (no evidence either way), no alerts.
func NewEmptyPartnerStats(partnerID, direction string) model.PartnerStats {
	return model.PartnerStats{
		PartnerID:            partnerID,
		Direction:            direction,
		DiversificationScore: 100,
		FulfillmentScore:     50,
	}
}

// datedRecords keeps only records whose order date parses. Numeric stats are
// computed over these; records with broken dates still reserve the group key.
func datedRecords(recs []model.OrderRecord) []model.OrderRecord {
	out := recs[:0:0]
	for _, r := range recs {
		if _, ok := model.ParseOrderDate(r.OrderDate); ok {
			out = append(out, r)
		}
	}
	return out
}

func buildPartner(k partnerKey, recs []model.OrderRecord, now time.Time) model.PartnerStats {
	recs = datedRecords(recs)
	dates, counts := DailyCounts(recs)
	if len(dates) == 0 {
		return NewEmptyPartnerStats(k.partner, k.direction)
	}

	first, last := dates[0], dates[len(dates)-1]
	elapsed := math.Max(1, float64(model.DaysBetween(first, last)))

	total := len(recs)
	frequency := elapsed
	if gaps := Intervals(dates); len(gaps) > 0 {
		frequency = Mean(gaps)
	}
	volatility := CV(counts)
	daysSince := model.DaysBetween(last, model.DateKey(now))

	skus := make(map[string]int)
	warehouses := make(map[string]bool)
	fulfilled := 0
	for _, r := range recs {
		if r.SKU != "" {
			skus[r.SKU]++
		}
		if r.Warehouse != "" {
			warehouses[r.Warehouse] = true
		}
		if fulfilledStatuses[strings.ToLower(effectiveStatus(r))] {
			fulfilled++
		}
	}

	w30 := WindowEnding(now, 30)
	last30 := len(RecordsInWindow(recs, w30))
	prior30 := len(RecordsInWindow(recs, w30.PriorWindow()))

	risk, churned := computeChurnRisk(churnInputs{
		daysSinceLast: daysSince,
		frequency:     frequency,
		uniqueSKUs:    len(skus),
		totalOrders:   total,
		volatility:    volatility,
		last30:        last30,
		prior30:       prior30,
	})

	return model.PartnerStats{
		PartnerID:            k.partner,
		Direction:            k.direction,
		TotalOrders:          total,
		UniqueSKUs:           len(skus),
		UniqueWarehouses:     len(warehouses),
		AvgOrdersPerDay:      float64(total) / elapsed,
		MedianOrdersPerDay:   Median(counts),
		OrderFrequencyDays:   frequency,
		Volatility:           volatility,
		FirstOrderDate:       first,
		LastOrderDate:        last,
		DaysSinceLastOrder:   daysSince,
		IsActive:             daysSince <= 30,
		IsChurned:            churned,
		ChurnRisk:            risk,
		DiversificationScore: diversificationScore(skus, total),
		FulfillmentScore:     float64(fulfilled) / float64(total) * 100,
	}
}

func buildSKU(k skuKey, recs []model.OrderRecord, now time.Time) model.SKUStats {
	recs = datedRecords(recs)
	dates, counts := DailyCounts(recs)
	if len(dates) == 0 {
		return model.SKUStats{SKU: k.sku, PartnerID: k.partner, Direction: k.direction}
	}

	first, last := dates[0], dates[len(dates)-1]
	elapsed := math.Max(1, float64(model.DaysBetween(first, last)))

	frequency := elapsed
	if gaps := Intervals(dates); len(gaps) > 0 {
		frequency = Mean(gaps)
	}

	return model.SKUStats{
		SKU:                k.sku,
		PartnerID:          k.partner,
		Direction:          k.direction,
		TotalOrders:        len(recs),
		AvgOrdersPerDay:    float64(len(recs)) / elapsed,
		MedianOrdersPerDay: Median(counts),
		OrderFrequencyDays: frequency,
		Volatility:         CV(counts),
		FirstOrderDate:     first,
		LastOrderDate:      last,
		DaysSinceLastOrder: model.DaysBetween(last, model.DateKey(now)),
	}
}

type churnInputs struct {
	daysSinceLast int
	frequency     float64
	uniqueSKUs    int
	totalOrders   int
	volatility    float64
	last30        int
	prior30       int
}

// computeChurnRisk applies the additive churn heuristic, capped at 100.
// A partner silent for more than 60 days is churned and forced to 100,
// overriding the additive total.
func computeChurnRisk(in churnInputs) (risk float64, churned bool) {
	if in.daysSinceLast > 60 {
		return 100, true
	}

	if in.prior30 > 0 {
		drop := float64(in.prior30-in.last30) / float64(in.prior30)
		if drop > 0.30 {
			risk += 30
		}
	}
	if in.frequency > 0 && float64(in.daysSinceLast) > 1.5*in.frequency {
		risk += 25
	}
	if in.uniqueSKUs < 3 && in.totalOrders > 10 {
		risk += 15
	}
	if in.volatility > 1.5 {
		risk += 10
	}
	if in.daysSinceLast > 30 {
		risk += 40
	}

	return math.Min(risk, 100), false
}

// diversificationScore measures how spread order volume is across SKUs:
// 100 means no concentration, 0 means a single SKU carries everything.
func diversificationScore(skuCounts map[string]int, total int) float64 {
	if total == 0 || len(skuCounts) == 0 {
		return 100
	}
	top := 0
	for _, n := range skuCounts {
		if n > top {
			top = n
		}
	}
	return math.Round((1 - float64(top)/float64(total)) * 100)
}

// effectiveStatus prefers the report-side status when the report row is
// present.
func effectiveStatus(r model.OrderRecord) string {
	if r.Report != nil && r.Report.Status != "" {
		return r.Report.Status
	}
	return r.Status
}
