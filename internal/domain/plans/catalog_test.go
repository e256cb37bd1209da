package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	p, err := Lookup("basic_monthly")
	require.NoError(t, err)
	assert.Equal(t, 4.99, p.Price)
	assert.Equal(t, "usd", p.Currency)

	_, err = Lookup("nope")
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = Lookup("")
	assert.ErrorIs(t, err, ErrInvalidPlan)
}

func TestCatalogLimitsUseKnownFeatures(t *testing.T) {
	for _, p := range Catalog {
		for f, n := range p.Limits {
			_, ok := ParseFeature(string(f))
			assert.Truef(t, ok, "plan %s has unknown feature %s", p.ID, f)
			assert.Positive(t, n)
		}
	}
}

func TestParseFeature(t *testing.T) {
	f, ok := ParseFeature("grammar_check")
	assert.True(t, ok)
	assert.Equal(t, FeatureGrammarCheck, f)

	_, ok = ParseFeature("quiz; DROP TABLE usage_records")
	assert.False(t, ok)
}
