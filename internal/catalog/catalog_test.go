package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
functions:
  generate_secret:
    type: chat
    variants:
      baseline:
        type: chat_completion
        model: gpt-4o-mini-2024-07-18
        weight: 1.0
        temperature: 0.7
      ranked:
        type: best_of_n
        model: gpt-4o-mini-2024-07-18
        weight: 0.0
metrics:
  accuracy:
    type: float
    optimize: max
  exact_match:
    type: boolean
`

func TestParseAndLookup(t *testing.T) {
	c, err := Parse([]byte(testCatalog))
	require.NoError(t, err)

	fn, ok := c.Function("generate_secret")
	require.True(t, ok)
	assert.Len(t, fn.Variants, 2)

	_, ok = c.Function("missing")
	assert.False(t, ok)

	m, ok := c.Metric("accuracy")
	require.True(t, ok)
	assert.Equal(t, MetricFloat, m.Type)

	v, ok := c.Variant("generate_secret", "baseline")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", v.Model)
}

func TestEligibleVariantsFiltersNonChatCompletion(t *testing.T) {
	c, err := Parse([]byte(testCatalog))
	require.NoError(t, err)

	eligible := c.EligibleVariants("generate_secret")
	require.Len(t, eligible, 1)
	_, ok := eligible["baseline"]
	assert.True(t, ok, "chat_completion variant should be eligible")
	_, ok = eligible["ranked"]
	assert.False(t, ok, "best_of_n variant should never be offered")
}

func TestParseRejectsEmptyCatalog(t *testing.T) {
	_, err := Parse([]byte("metrics: {}\n"))
	require.Error(t, err)
}
