// Package anomaly compares short- vs long-window order behavior per partner
// and per SKU and emits raw anomaly signals. Detection never fails a pass:
// unparsable records are excluded from both windows and zero denominators
// yield no signal.
package anomaly

import (
	"fmt"
	"time"

	"github.com/cargoflow/partner-pulse/internal/model"
	"github.com/cargoflow/partner-pulse/internal/stats"
)

const (
	shortWindowDays = 7
	longWindowDays  = 30
)

// Detector flags statistically significant deltas between the 7-day and
// 30-day behavior of a record set. A single "now" reference is fixed at
// construction so one detection pass is fully deterministic.
type Detector struct {
	now        time.Time
	benchmarks map[string]model.Benchmark
}

// NewDetector creates a detector anchored at now. benchmarks optionally maps
// partner id to a stored orders-per-day snapshot used instead of recomputing
// the prior 30-day window; it may be nil.
func NewDetector(now time.Time, benchmarks map[string]model.Benchmark) *Detector {
	return &Detector{now: now.UTC(), benchmarks: benchmarks}
}

// DetectPartner runs all partner-level checks over the partner's records and
// returns the triggered alerts in a fixed check order.
func (d *Detector) DetectPartner(partnerID string, records []model.OrderRecord) []model.AnomalyAlert {
	w7 := stats.WindowEnding(d.now, shortWindowDays)
	w30 := stats.WindowEnding(d.now, longWindowDays)
	in7 := stats.RecordsInWindow(records, w7)
	in30 := stats.RecordsInWindow(records, w30)

	var alerts []model.AnomalyAlert
	if a, ok := d.checkRateDecline(partnerID, in7, in30); ok {
		alerts = append(alerts, a)
	}
	if a, ok := d.checkBenchmarkDecline(partnerID, records, in30); ok {
		alerts = append(alerts, a)
	}
	if a, ok := d.checkIntervalGrowth(partnerID, in7, in30); ok {
		alerts = append(alerts, a)
	}
	if a, ok := d.checkVolatilitySpike(partnerID, in7, in30); ok {
		alerts = append(alerts, a)
	}
	if a, ok := d.checkWarehouseAnomaly(partnerID, in7, in30); ok {
		alerts = append(alerts, a)
	}
	if a, ok := d.checkConcentration(partnerID, in30); ok {
		alerts = append(alerts, a)
	}
	return alerts
}

// checkRateDecline flags a 7-day order rate more than 30% below the 30-day
// rate (high beyond 50%).
func (d *Detector) checkRateDecline(partnerID string, in7, in30 []model.OrderRecord) (model.AnomalyAlert, bool) {
	rate7 := float64(len(in7)) / shortWindowDays
	rate30 := float64(len(in30)) / longWindowDays
	if rate30 <= 0 {
		return model.AnomalyAlert{}, false
	}

	pct := (rate7 - rate30) / rate30 * 100
	if pct >= -30 {
		return model.AnomalyAlert{}, false
	}

	severity := model.SeverityMedium
	if pct < -50 {
		severity = model.SeverityHigh
	}
	return model.AnomalyAlert{
		PartnerID:      partnerID,
		Type:           model.AlertOrderDecline,
		Severity:       severity,
		Timeframe:      model.Timeframe7d,
		Message:        fmt.Sprintf("Order rate dropped %.1f%% over the last 7 days (%.2f/day vs %.2f/day)", -pct, rate7, rate30),
		BenchmarkValue: fmt.Sprintf("%.2f", rate30),
		CurrentValue:   fmt.Sprintf("%.2f", rate7),
		PctChange:      pct,
		Direction:      model.TrendDown,
	}, true
}

// checkBenchmarkDecline compares the current 30-day daily rate against the
// prior 30-day rate, or against a stored benchmark when one is provided for
// the partner.
func (d *Detector) checkBenchmarkDecline(partnerID string, records, in30 []model.OrderRecord) (model.AnomalyAlert, bool) {
	prior := d.priorRate(partnerID, records)
	if prior <= 0 {
		return model.AnomalyAlert{}, false
	}

	current := float64(len(in30)) / longWindowDays
	pct := (current - prior) / prior * 100
	if pct >= -30 {
		return model.AnomalyAlert{}, false
	}

	severity := model.SeverityMedium
	if pct < -50 {
		severity = model.SeverityHigh
	}
	return model.AnomalyAlert{
		PartnerID:      partnerID,
		Type:           model.AlertOrderDecline,
		Severity:       severity,
		Timeframe:      model.Timeframe30d,
		Message:        fmt.Sprintf("30-day order rate dropped %.1f%% vs the prior period (%.2f/day vs %.2f/day)", -pct, current, prior),
		BenchmarkValue: fmt.Sprintf("%.2f", prior),
		CurrentValue:   fmt.Sprintf("%.2f", current),
		PctChange:      pct,
		Direction:      model.TrendDown,
	}, true
}

// priorRate returns the daily order rate for the 31-60 day window, preferring
// a stored benchmark when one exists.
func (d *Detector) priorRate(partnerID string, records []model.OrderRecord) float64 {
	if b, ok := d.benchmarks[partnerID]; ok && b.Metric == model.MetricOrdersPerDay && b.Period == model.Timeframe30d {
		return b.Value
	}
	prior := stats.WindowEnding(d.now, longWindowDays).PriorWindow()
	return float64(len(stats.RecordsInWindow(records, prior))) / longWindowDays
}

// checkIntervalGrowth flags a mean 7-day order interval more than 25% above
// the 30-day mean (high beyond 50%). Both windows need at least two distinct
// order dates.
func (d *Detector) checkIntervalGrowth(partnerID string, in7, in30 []model.OrderRecord) (model.AnomalyAlert, bool) {
	gaps7 := stats.Intervals(stats.OrderDates(in7))
	gaps30 := stats.Intervals(stats.OrderDates(in30))
	if len(gaps7) == 0 || len(gaps30) == 0 {
		return model.AnomalyAlert{}, false
	}

	m7, m30 := stats.Mean(gaps7), stats.Mean(gaps30)
	if m30 <= 0 {
		return model.AnomalyAlert{}, false
	}

	growth := (m7 - m30) / m30
	if growth <= 0.25 {
		return model.AnomalyAlert{}, false
	}

	severity := model.SeverityMedium
	if growth > 0.50 {
		severity = model.SeverityHigh
	}
	return model.AnomalyAlert{
		PartnerID:      partnerID,
		Type:           model.AlertChurnRisk,
		Severity:       severity,
		Timeframe:      model.Timeframe7d,
		Message:        fmt.Sprintf("Mean order interval grew %.1f%% (%.1f days vs %.1f days)", growth*100, m7, m30),
		BenchmarkValue: fmt.Sprintf("%.1f", m30),
		CurrentValue:   fmt.Sprintf("%.1f", m7),
		PctChange:      growth * 100,
		Direction:      model.TrendUp,
	}, true
}

// checkVolatilitySpike flags 7-day interval volatility (CV) more than 40%
// above the 30-day volatility (high beyond 80%).
func (d *Detector) checkVolatilitySpike(partnerID string, in7, in30 []model.OrderRecord) (model.AnomalyAlert, bool) {
	gaps7 := stats.Intervals(stats.OrderDates(in7))
	gaps30 := stats.Intervals(stats.OrderDates(in30))
	if len(gaps7) < 2 || len(gaps30) < 2 {
		return model.AnomalyAlert{}, false
	}

	cv7, cv30 := stats.CV(gaps7), stats.CV(gaps30)
	if cv30 <= 0 {
		return model.AnomalyAlert{}, false
	}

	growth := (cv7 - cv30) / cv30
	if growth <= 0.40 {
		return model.AnomalyAlert{}, false
	}

	severity := model.SeverityMedium
	if growth > 0.80 {
		severity = model.SeverityHigh
	}
	return model.AnomalyAlert{
		PartnerID:      partnerID,
		Type:           model.AlertVolatilitySpike,
		Severity:       severity,
		Timeframe:      model.Timeframe7d,
		Message:        fmt.Sprintf("Order interval volatility spiked %.1f%% (CV %.2f vs %.2f)", growth*100, cv7, cv30),
		BenchmarkValue: fmt.Sprintf("%.2f", cv30),
		CurrentValue:   fmt.Sprintf("%.2f", cv7),
		PctChange:      growth * 100,
		Direction:      model.TrendUp,
	}, true
}

// checkWarehouseAnomaly flags the 7-day distinct warehouse count falling
// below half the 30-day count.
func (d *Detector) checkWarehouseAnomaly(partnerID string, in7, in30 []model.OrderRecord) (model.AnomalyAlert, bool) {
	wh7 := stats.DistinctWarehouses(in7)
	wh30 := stats.DistinctWarehouses(in30)
	if wh30 == 0 || float64(wh7) >= float64(wh30)/2 {
		return model.AnomalyAlert{}, false
	}

	pct := float64(wh7-wh30) / float64(wh30) * 100
	return model.AnomalyAlert{
		PartnerID:      partnerID,
		Type:           model.AlertWarehouseAnomaly,
		Severity:       model.SeverityMedium,
		Timeframe:      model.Timeframe7d,
		Message:        fmt.Sprintf("Active warehouses dropped from %d to %d over the last 7 days", wh30, wh7),
		BenchmarkValue: fmt.Sprintf("%d", wh30),
		CurrentValue:   fmt.Sprintf("%d", wh7),
		PctChange:      pct,
		Direction:      model.TrendDown,
	}, true
}

// checkConcentration flags a partner whose 30-day order volume is dominated
// by a single SKU (>80% share with at least 10 orders; high at 100%).
func (d *Detector) checkConcentration(partnerID string, in30 []model.OrderRecord) (model.AnomalyAlert, bool) {
	if len(in30) < 10 {
		return model.AnomalyAlert{}, false
	}

	counts := make(map[string]int)
	for _, r := range in30 {
		if r.SKU != "" {
			counts[r.SKU]++
		}
	}
	top := 0
	for _, n := range counts {
		if n > top {
			top = n
		}
	}
	share := float64(top) / float64(len(in30))
	if share <= 0.80 {
		return model.AnomalyAlert{}, false
	}

	severity := model.SeverityMedium
	if top == len(in30) {
		severity = model.SeverityHigh
	}
	return model.AnomalyAlert{
		PartnerID:      partnerID,
		Type:           model.AlertConcentrationRisk,
		Severity:       severity,
		Timeframe:      model.Timeframe30d,
		Message:        fmt.Sprintf("Top SKU carries %.0f%% of 30-day order volume", share*100),
		BenchmarkValue: "80",
		CurrentValue:   fmt.Sprintf("%.0f", share*100),
		PctChange:      share * 100,
		Direction:      model.TrendUp,
	}, true
}
