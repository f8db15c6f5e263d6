// Package alerts handles the presentation side of detected anomalies:
// grouping, filtering, per-partner result caching and webhook delivery.
package alerts

import (
	"sort"

	"github.com/cargoflow/partner-pulse/internal/model"
)

type groupKey struct {
	category model.Category
	severity model.Severity
}

// Group buckets prioritized alerts by (category, scored severity). Within a
// group alerts sort by priority descending; groups order by severity rank,
// then summed priority descending, then category name. All ties break on
// partner id, SKU and type so repeated grouping of the same input is
// bit-stable.
func Group(alerts []model.PrioritizedAlert) []model.AlertGroup {
	buckets := make(map[groupKey][]model.PrioritizedAlert)
	for _, a := range alerts {
		k := groupKey{category: model.CategoryForType(a.Type), severity: a.ScoredSeverity}
		buckets[k] = append(buckets[k], a)
	}

	groups := make([]model.AlertGroup, 0, len(buckets))
	for k, members := range buckets {
		sort.SliceStable(members, func(i, j int) bool {
			if members[i].PriorityScore != members[j].PriorityScore {
				return members[i].PriorityScore > members[j].PriorityScore
			}
			if members[i].PartnerID != members[j].PartnerID {
				return members[i].PartnerID < members[j].PartnerID
			}
			if members[i].SKU != members[j].SKU {
				return members[i].SKU < members[j].SKU
			}
			return members[i].Type < members[j].Type
		})

		total := 0.0
		for _, a := range members {
			total += a.PriorityScore
		}
		groups = append(groups, model.AlertGroup{
			Category:      k.category,
			Severity:      k.severity,
			Alerts:        members,
			Count:         len(members),
			TotalPriority: total,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		ri, rj := model.SeverityRank(groups[i].Severity), model.SeverityRank(groups[j].Severity)
		if ri != rj {
			return ri < rj
		}
		if groups[i].TotalPriority != groups[j].TotalPriority {
			return groups[i].TotalPriority > groups[j].TotalPriority
		}
		return groups[i].Category < groups[j].Category
	})
	return groups
}
