package scoring

import (
	"math"
	"time"

	"github.com/cargoflow/partner-pulse/internal/model"
)

// Scorer combines a size classifier with pass-level scoring parameters.
type Scorer struct {
	Classifier    *Classifier
	AvgOrderValue float64
	Now           time.Time
}

// NewScorer builds a scorer over the given partner population.
func NewScorer(population []model.PartnerStats, avgOrderValue float64, now time.Time) *Scorer {
	return &Scorer{
		Classifier:    NewClassifier(population),
		AvgOrderValue: avgOrderValue,
		Now:           now.UTC(),
	}
}

// Prioritize enriches a raw alert with size class, revenue-at-risk and the
// composite priority score. velocity30 is the partner's orders-per-day rate
// over the trailing 30 days. DetectedAt and UpdatedAt are both stamped with
// the scorer's reference time; callers tracking previously seen alerts
// overwrite DetectedAt with the original detection time.
func (s *Scorer) Prioritize(a model.AnomalyAlert, ps model.PartnerStats, velocity30 float64, isNew bool) model.PrioritizedAlert {
	size := s.Classifier.Classify(ps)
	rar := RevenueAtRisk(velocity30, s.AvgOrderValue, a.Severity)

	score := sizeTerm(size)
	score += ps.ChurnRisk * 0.30
	score += severityScore(a.Severity) * 0.25
	score += math.Min(20, rar/100000*20)
	if isNew {
		score += 5
	}
	score = math.Round(score)
	if score > 100 {
		score = 100
	}

	return model.PrioritizedAlert{
		AnomalyAlert:   a,
		CustomerSize:   size,
		ChurnRisk:      ps.ChurnRisk,
		RevenueAtRisk:  rar,
		PriorityScore:  score,
		ScoredSeverity: SeverityForScore(score),
		DetectedAt:     s.Now,
		UpdatedAt:      s.Now,
		IsNew:          isNew,
	}
}

func sizeTerm(size model.CustomerSize) float64 {
	switch size {
	case model.SizeLarge:
		return 20
	case model.SizeMedium:
		return 12
	default:
		return 5
	}
}

func severityScore(s model.Severity) float64 {
	switch s {
	case model.SeverityCritical:
		return 95
	case model.SeverityHigh:
		return 75
	case model.SeverityMedium:
		return 50
	default:
		return 25
	}
}

// SeverityForScore maps a priority score back onto the severity scale.
func SeverityForScore(score float64) model.Severity {
	switch {
	case score >= 80:
		return model.SeverityCritical
	case score >= 60:
		return model.SeverityHigh
	case score >= 40:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}
