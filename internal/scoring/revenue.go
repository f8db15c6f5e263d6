package scoring

import "github.com/cargoflow/partner-pulse/internal/model"

// severityFraction is the share of 30-day revenue assumed at risk for a given
// raw detection severity.
func severityFraction(s model.Severity) float64 {
	switch s {
	case model.SeverityCritical:
		return 0.5
	case model.SeverityHigh:
		return 0.3
	default:
		return 0.1
	}
}

// RevenueAtRisk estimates the revenue exposed by an alert: the partner's
// 30-day order velocity projected over a month at the configured average
// order value, discounted by severity.
func RevenueAtRisk(velocity30, avgOrderValue float64, s model.Severity) float64 {
	if velocity30 < 0 {
		velocity30 = 0
	}
	return velocity30 * 30 * avgOrderValue * severityFraction(s)
}
