package alerts

import "github.com/cargoflow/partner-pulse/internal/model"

// Filter selects a subset of prioritized alerts. Zero-value fields are
// inactive; every supplied predicate must match (logical AND).
type Filter struct {
	Severities  []model.Severity
	Sizes       []model.CustomerSize
	Categories  []model.Category
	MinPriority float64
	OnlyNew     bool
}

// Match reports whether the alert passes every active predicate. Severity
// predicates apply to the scored severity, not the raw detection severity.
func (f Filter) Match(a model.PrioritizedAlert) bool {
	if len(f.Severities) > 0 && !containsSeverity(f.Severities, a.ScoredSeverity) {
		return false
	}
	if len(f.Sizes) > 0 && !containsSize(f.Sizes, a.CustomerSize) {
		return false
	}
	if len(f.Categories) > 0 && !containsCategory(f.Categories, model.CategoryForType(a.Type)) {
		return false
	}
	if a.PriorityScore < f.MinPriority {
		return false
	}
	if f.OnlyNew && !a.IsNew {
		return false
	}
	return true
}

// Apply returns the alerts matching the filter, preserving input order.
func (f Filter) Apply(alerts []model.PrioritizedAlert) []model.PrioritizedAlert {
	var out []model.PrioritizedAlert
	for _, a := range alerts {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

func containsSeverity(set []model.Severity, s model.Severity) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsSize(set []model.CustomerSize, s model.CustomerSize) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func containsCategory(set []model.Category, c model.Category) bool {
	for _, v := range set {
		if v == c {
			return true
		}
	}
	return false
}
