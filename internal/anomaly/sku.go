package anomaly

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cargoflow/partner-pulse/internal/model"
	"github.com/cargoflow/partner-pulse/internal/stats"
)

// DetectSKUs runs the SKU-level checks independently for each SKU under the
// partner. SKUs are visited in sorted order so repeated passes produce
// identical output.
func (d *Detector) DetectSKUs(partnerID string, records []model.OrderRecord) []model.AnomalyAlert {
	bySKU := make(map[string][]model.OrderRecord)
	for _, r := range records {
		if r.SKU == "" {
			continue
		}
		if _, ok := model.ParseOrderDate(r.OrderDate); !ok {
			continue
		}
		bySKU[r.SKU] = append(bySKU[r.SKU], r)
	}

	skus := make([]string, 0, len(bySKU))
	for sku := range bySKU {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	var alerts []model.AnomalyAlert
	for _, sku := range skus {
		recs := bySKU[sku]
		if a, ok := d.checkSKUChurn(partnerID, sku, recs); ok {
			alerts = append(alerts, a)
		}
		if a, ok := d.checkSKUDecline(partnerID, sku, recs); ok {
			alerts = append(alerts, a)
		}
	}
	return alerts
}

// checkSKUChurn flags a SKU with no orders for 31-60 days (medium) or more
// than 60 days (high).
func (d *Detector) checkSKUChurn(partnerID, sku string, recs []model.OrderRecord) (model.AnomalyAlert, bool) {
	dates := stats.OrderDates(recs)
	if len(dates) == 0 {
		return model.AnomalyAlert{}, false
	}

	days := model.DaysBetween(dates[len(dates)-1], model.DateKey(d.now))
	if days <= 30 {
		return model.AnomalyAlert{}, false
	}

	severity := model.SeverityMedium
	if days > 60 {
		severity = model.SeverityHigh
	}
	return model.AnomalyAlert{
		PartnerID:    partnerID,
		SKU:          sku,
		Type:         model.AlertSKUChurn,
		Severity:     severity,
		Timeframe:    model.Timeframe30d,
		Message:      fmt.Sprintf("SKU %s has had no orders for %d days", sku, days),
		CurrentValue: strconv.Itoa(days),
		PctChange:    float64(days),
		Direction:    model.TrendDown,
	}, true
}

// checkSKUDecline flags a SKU whose 7-day order count is more than 50% below
// its 30-day pace. The 30-day count is prorated to a 7-day expectation so
// steady SKUs do not trigger.
func (d *Detector) checkSKUDecline(partnerID, sku string, recs []model.OrderRecord) (model.AnomalyAlert, bool) {
	count7 := len(stats.RecordsInWindow(recs, stats.WindowEnding(d.now, shortWindowDays)))
	count30 := len(stats.RecordsInWindow(recs, stats.WindowEnding(d.now, longWindowDays)))
	if count30 == 0 {
		return model.AnomalyAlert{}, false
	}

	expected := float64(count30) * float64(shortWindowDays) / float64(longWindowDays)
	pct := (float64(count7) - expected) / expected * 100
	if pct >= -50 {
		return model.AnomalyAlert{}, false
	}

	return model.AnomalyAlert{
		PartnerID:      partnerID,
		SKU:            sku,
		Type:           model.AlertOrderDecline,
		Severity:       model.SeverityMedium,
		Timeframe:      model.Timeframe7d,
		Message:        fmt.Sprintf("SKU %s 7-day orders fell %.1f%% below its 30-day pace (%d vs %.1f expected)", sku, -pct, count7, expected),
		BenchmarkValue: fmt.Sprintf("%.1f", expected),
		CurrentValue:   strconv.Itoa(count7),
		PctChange:      pct,
		Direction:      model.TrendDown,
	}, true
}
