package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargoflow/partner-pulse/internal/model"
)

func TestFilter_ZeroValueMatchesAll(t *testing.T) {
	a := pa("A", model.AlertOrderDecline, model.SeverityLow, 0)
	assert.True(t, Filter{}.Match(a))
}

func TestFilter_SeverityUsesScored(t *testing.T) {
	a := pa("A", model.AlertOrderDecline, model.SeverityCritical, 85)
	a.Severity = model.SeverityMedium // raw detection severity

	f := Filter{Severities: []model.Severity{model.SeverityCritical}}
	assert.True(t, f.Match(a))

	f = Filter{Severities: []model.Severity{model.SeverityMedium}}
	assert.False(t, f.Match(a))
}

func TestFilter_PredicatesAreANDed(t *testing.T) {
	a := pa("A", model.AlertChurnRisk, model.SeverityHigh, 66)
	a.CustomerSize = model.SizeLarge
	a.IsNew = true

	f := Filter{
		Severities:  []model.Severity{model.SeverityHigh},
		Sizes:       []model.CustomerSize{model.SizeLarge},
		Categories:  []model.Category{model.CategoryChurn},
		MinPriority: 60,
		OnlyNew:     true,
	}
	assert.True(t, f.Match(a))

	// Flipping any single predicate fails the whole match.
	f2 := f
	f2.MinPriority = 70
	assert.False(t, f2.Match(a))

	f3 := f
	f3.Categories = []model.Category{model.CategoryVolume}
	assert.False(t, f3.Match(a))

	a.IsNew = false
	assert.False(t, f.Match(a))
}

func TestFilter_Apply_PreservesOrder(t *testing.T) {
	alerts := []model.PrioritizedAlert{
		pa("A", model.AlertOrderDecline, model.SeverityHigh, 70),
		pa("B", model.AlertOrderDecline, model.SeverityLow, 20),
		pa("C", model.AlertOrderDecline, model.SeverityHigh, 65),
	}

	out := Filter{Severities: []model.Severity{model.SeverityHigh}}.Apply(alerts)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].PartnerID)
	assert.Equal(t, "C", out[1].PartnerID)
}

func TestFilter_Apply_Empty(t *testing.T) {
	out := Filter{MinPriority: 101}.Apply([]model.PrioritizedAlert{
		pa("A", model.AlertOrderDecline, model.SeverityHigh, 100),
	})
	assert.Empty(t, out)
}
