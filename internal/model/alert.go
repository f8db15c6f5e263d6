package model

import "time"

// AlertType identifies the kind of detected anomaly.
type AlertType string

const (
	AlertOrderDecline      AlertType = "order_decline"
	AlertChurnRisk         AlertType = "churn_risk"
	AlertVolatilitySpike   AlertType = "volatility_spike"
	AlertWarehouseAnomaly  AlertType = "warehouse_anomaly"
	AlertSKUChurn          AlertType = "sku_churn"
	AlertConcentrationRisk AlertType = "concentration_risk"
)

// Severity classifies the magnitude of an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityRank orders severities for presentation: critical first.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	default:
		return 3
	}
}

// Timeframe is the comparison window an alert was detected over.
type Timeframe string

const (
	Timeframe7d  Timeframe = "7d"
	Timeframe30d Timeframe = "30d"
)

// TrendDirection indicates which way the measured metric moved.
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
)

// Category buckets alert types for presentation grouping.
type Category string

const (
	CategoryVolume        Category = "volume"
	CategoryChurn         Category = "churn"
	CategoryVolatility    Category = "volatility"
	CategoryOperations    Category = "operations"
	CategoryConcentration Category = "concentration"
)

// CategoryForType maps an alert type to its presentation category.
func CategoryForType(t AlertType) Category {
	switch t {
	case AlertOrderDecline:
		return CategoryVolume
	case AlertChurnRisk, AlertSKUChurn:
		return CategoryChurn
	case AlertVolatilitySpike:
		return CategoryVolatility
	case AlertConcentrationRisk:
		return CategoryConcentration
	default:
		return CategoryOperations
	}
}

// AnomalyAlert is a raw detected signal, created fresh per detection pass.
// Benchmark and current values are carried as formatted strings to match the
// external alert store's insert shape.
type AnomalyAlert struct {
	PartnerID      string         `json:"partner_id"`
	SKU            string         `json:"sku,omitempty"`
	Type           AlertType      `json:"type"`
	Severity       Severity       `json:"severity"`
	Timeframe      Timeframe      `json:"timeframe"`
	Message        string         `json:"message"`
	BenchmarkValue string         `json:"benchmark_value,omitempty"`
	CurrentValue   string         `json:"current_value"`
	PctChange      float64        `json:"pct_change"`
	Direction      TrendDirection `json:"direction"`
}

// Key identifies an alert for dedup and upsert purposes: one alert per
// (partner, sku, type, timeframe).
func (a AnomalyAlert) Key() string {
	return a.PartnerID + "|" + a.SKU + "|" + string(a.Type) + "|" + string(a.Timeframe)
}

// CustomerSize classifies a partner by order volume and warehouse breadth.
type CustomerSize string

const (
	SizeSmall  CustomerSize = "small"
	SizeMedium CustomerSize = "medium"
	SizeLarge  CustomerSize = "large"
)

// PrioritizedAlert enriches an AnomalyAlert with business context and a
// single comparable 0-100 priority score. Both the raw detection severity
// (embedded) and the score-derived severity are carried.
type PrioritizedAlert struct {
	AnomalyAlert

	CustomerSize   CustomerSize `json:"customer_size"`
	ChurnRisk      float64      `json:"churn_risk"`
	RevenueAtRisk  float64      `json:"revenue_at_risk"`
	PriorityScore  float64      `json:"priority_score"`
	ScoredSeverity Severity     `json:"scored_severity"`
	DetectedAt     time.Time    `json:"detected_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	IsNew          bool         `json:"is_new"`
}

// AlertGroup buckets prioritized alerts by (category, scored severity) for
// presentation ordering.
type AlertGroup struct {
	Category      Category           `json:"category"`
	Severity      Severity           `json:"severity"`
	Alerts        []PrioritizedAlert `json:"alerts"`
	Count         int                `json:"count"`
	TotalPriority float64            `json:"total_priority"`
}

// Benchmark is a stored historical metric snapshot the detector may compare
// against instead of recomputing a window.
type Benchmark struct {
	Metric     string    `json:"metric" yaml:"metric"`
	Period     Timeframe `json:"period" yaml:"period"`
	Value      float64   `json:"value" yaml:"value"`
	CapturedAt time.Time `json:"captured_at" yaml:"captured_at"`
}

// MetricOrdersPerDay is the benchmark metric the detector consumes for the
// 30-day order-rate comparison.
const MetricOrdersPerDay = "orders_per_day"
