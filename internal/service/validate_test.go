package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuneboard/tuneboard/internal/catalog"
	"github.com/tuneboard/tuneboard/internal/models"
)

const testCatalogYAML = `
functions:
  generate_secret:
    type: chat
    variants:
      baseline:
        type: chat_completion
        model: gpt-4o-mini-2024-07-18
        weight: 1.0
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

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(testCatalogYAML))
	require.NoError(t, err)
	return c
}

func validRequest() models.JobRequest {
	return models.JobRequest{
		ID:                     "0192f0c1-5a6b-7000-8000-000000000001",
		Function:               "generate_secret",
		Criteria:               []models.MetricCriterion{{Metric: "accuracy", Threshold: "0.9"}},
		Combine:                models.CombineAnd,
		Model:                  "gpt-4o-mini-2024-07-18",
		Provider:               models.ProviderOpenAI,
		Variant:                "baseline",
		ValidationSplitPercent: 20,
		MaxSamples:             1000,
	}
}

// fieldOf extracts the offending field names from a validation error.
func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %T", err)
	fields := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = fe.Field
	}
	return fields
}

func TestValidateRequestAcceptsValid(t *testing.T) {
	assert.NoError(t, ValidateRequest(validRequest(), testCatalog(t)))
}

func TestValidateRequestFieldRules(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*models.JobRequest)
		wantField string
	}{
		{"missing function", func(r *models.JobRequest) { r.Function = "" }, "function"},
		{"unknown function", func(r *models.JobRequest) { r.Function = "nope" }, "function"},
		{"no criteria", func(r *models.JobRequest) { r.Criteria = nil }, "criteria"},
		{"unknown metric", func(r *models.JobRequest) {
			r.Criteria = []models.MetricCriterion{{Metric: "nope", Threshold: "1"}}
		}, "criteria[0]"},
		{"non-numeric threshold for float metric", func(r *models.JobRequest) {
			r.Criteria = []models.MetricCriterion{{Metric: "accuracy", Threshold: "high"}}
		}, "criteria[0]"},
		{"bad combinator", func(r *models.JobRequest) { r.Combine = "xor" }, "combine"},
		{"missing variant", func(r *models.JobRequest) { r.Variant = "" }, "variant"},
		{"variant of wrong function", func(r *models.JobRequest) { r.Variant = "nope" }, "variant"},
		{"non-chat-completion variant", func(r *models.JobRequest) { r.Variant = "ranked" }, "variant"},
		{"missing model", func(r *models.JobRequest) { r.Model = "" }, "model"},
		{"missing provider", func(r *models.JobRequest) { r.Provider = "" }, "provider"},
		{"split below range", func(r *models.JobRequest) { r.ValidationSplitPercent = -1 }, "validation_split_percent"},
		{"split above range", func(r *models.JobRequest) { r.ValidationSplitPercent = 101 }, "validation_split_percent"},
		{"max samples below floor", func(r *models.JobRequest) { r.MaxSamples = 9 }, "max_samples"},
	}

	cat := testCatalog(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := ValidateRequest(req, cat)
			require.Error(t, err)
			assert.Contains(t, fieldsOf(t, err), tt.wantField)
		})
	}
}

func TestValidateRequestBoundaryValuesAccepted(t *testing.T) {
	cat := testCatalog(t)

	req := validRequest()
	req.MaxSamples = 10
	assert.NoError(t, ValidateRequest(req, cat), "maxSamples = 10 is the accepted floor")

	req = validRequest()
	req.ValidationSplitPercent = 0
	assert.NoError(t, ValidateRequest(req, cat))

	req = validRequest()
	req.ValidationSplitPercent = 100
	assert.NoError(t, ValidateRequest(req, cat))
}

func TestValidateRequestBooleanMetricNeedsNoThreshold(t *testing.T) {
	req := validRequest()
	req.Criteria = []models.MetricCriterion{{Metric: "exact_match"}}
	assert.NoError(t, ValidateRequest(req, testCatalog(t)))
}

func TestValidateRequestBedrockRequiresLocation(t *testing.T) {
	cat := testCatalog(t)

	req := validRequest()
	req.Provider = models.ProviderBedrock
	err := ValidateRequest(req, cat)
	require.Error(t, err)
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "location.region")
	assert.Contains(t, fields, "location.bucket")

	// The rule is conditional: openai never needs a location...
	req = validRequest()
	assert.NoError(t, ValidateRequest(req, cat))

	// ...and bedrock passes once both parts are present.
	req = validRequest()
	req.Provider = models.ProviderBedrock
	req.Location = &models.ProviderLocation{Region: "us-east-1", Bucket: "training-data"}
	assert.NoError(t, ValidateRequest(req, cat))
}
