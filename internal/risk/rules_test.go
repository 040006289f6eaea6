package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apradar/internal/model"
)

func TestDefaultRulesTables(t *testing.T) {
	rules := DefaultRules()

	assert.Len(t, rules.SuspiciousPatterns, 8)
	assert.Len(t, rules.StandardFrequencies, 14)

	require.NotEmpty(t, rules.Bands)
	for i := 1; i < len(rules.Bands); i++ {
		assert.Greater(t, rules.Bands[i-1].Min, rules.Bands[i].Min, "bands must be ordered high to low")
	}
	assert.Equal(t, 0, rules.Bands[len(rules.Bands)-1].Min)
}

func TestRecommendationTableCoversCanonicalFactors(t *testing.T) {
	rules := DefaultRules()
	got := make([]model.Factor, 0, len(rules.Recommendations))
	for _, rec := range rules.Recommendations {
		assert.NotEmpty(t, rec.Text)
		got = append(got, rec.Factor)
	}
	want := make([]model.Factor, 0, len(model.Factors))
	for _, f := range model.Factors {
		if f != model.FactorChannelConflict {
			want = append(want, f)
		}
	}
	assert.Equal(t, want, got)
}

func TestDefaultRulesAreIndependentCopies(t *testing.T) {
	a := DefaultRules()
	a.RiskyVendors[0] = "Changed"
	b := DefaultRules()
	assert.Equal(t, "Cisco", b.RiskyVendors[0])
}

func TestCustomRulesChangeScoringWithoutCodeChanges(t *testing.T) {
	rules := DefaultRules()
	rules.RiskyVendors = append(rules.RiskyVendors, "Acme")
	rules.OpenPenalty = 40
	eng := NewEngineWithRules(rules)
	obs := baseObservation()
	obs.Open = true
	obs.Vendor = "acme"
	_, b := eng.Score(obs, nil, noon)
	assert.Equal(t, 40, b.OpenNetwork)
	assert.Equal(t, 5, b.VendorRisk)
}

func TestEngineRulesCannotBeMutated(t *testing.T) {
	rules := DefaultRules()
	eng := NewEngineWithRules(rules)

	rules.RiskyVendors[0] = "Changed"
	*rules.Proximity[0][0].Above = 0
	rules.Encryption[0].Contains[0] = "NONE"

	got := eng.Rules()
	got.RiskyVendors[0] = "Changed"
	got.Bands[0].Min = 0

	fresh := eng.Rules()
	assert.Equal(t, "Cisco", fresh.RiskyVendors[0])
	assert.Equal(t, -30, *fresh.Proximity[0][0].Above)
	assert.Equal(t, "WEP", fresh.Encryption[0].Contains[0])
	assert.Equal(t, 70, fresh.Bands[0].Min)

	obs := baseObservation()
	obs.Vendor = "Cisco"
	obs.SignalDBm = -20
	_, b := eng.Score(obs, nil, noon)
	assert.Equal(t, 5, b.VendorRisk)
	assert.Equal(t, 10, b.Proximity)
}
