package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityRank_Ordering(t *testing.T) {
	assert.Less(t, SeverityRank(SeverityCritical), SeverityRank(SeverityHigh))
	assert.Less(t, SeverityRank(SeverityHigh), SeverityRank(SeverityMedium))
	assert.Less(t, SeverityRank(SeverityMedium), SeverityRank(SeverityLow))
	assert.Equal(t, SeverityRank(SeverityLow), SeverityRank(Severity("unknown")))
}

func TestCategoryForType(t *testing.T) {
	assert.Equal(t, CategoryVolume, CategoryForType(AlertOrderDecline))
	assert.Equal(t, CategoryChurn, CategoryForType(AlertChurnRisk))
	assert.Equal(t, CategoryChurn, CategoryForType(AlertSKUChurn))
	assert.Equal(t, CategoryVolatility, CategoryForType(AlertVolatilitySpike))
	assert.Equal(t, CategoryConcentration, CategoryForType(AlertConcentrationRisk))
	assert.Equal(t, CategoryOperations, CategoryForType(AlertWarehouseAnomaly))
}
