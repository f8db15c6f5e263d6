package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderRecord_EffectiveDirection(t *testing.T) {
	r := OrderRecord{PartnerID: "ACME", Direction: "FBO"}
	assert.Equal(t, "FBO", r.EffectiveDirection())
}

func TestOrderRecord_EffectiveDirection_PartnerOverride(t *testing.T) {
	r := OrderRecord{PartnerID: "VSROK", Direction: "FBS"}
	assert.Equal(t, "VSROK", r.EffectiveDirection())
}
