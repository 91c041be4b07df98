// Package service provides the fine-tuning job lifecycle: validation,
// submission, status polling, and result derivation.
package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tuneboard/tuneboard/internal/catalog"
	"github.com/tuneboard/tuneboard/internal/models"
)

// minTrainingSamples is the smallest curated set providers accept for
// fine-tuning; requests below this floor are rejected upstream anyway.
const minTrainingSamples = 10

// FieldError is a validation failure attached to one request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every field error in a request, so a form can
// annotate all offending fields at once.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return "invalid job request: " + strings.Join(msgs, "; ")
}

// ValidateRequest checks a JobRequest against the catalog. It returns
// ValidationErrors listing every violated rule, or nil.
func ValidateRequest(req models.JobRequest, cat *catalog.Catalog) error {
	var errs ValidationErrors

	if req.ID == "" {
		errs = append(errs, FieldError{"id", "job identifier is required"})
	}

	fn, fnKnown := cat.Function(req.Function)
	if req.Function == "" {
		errs = append(errs, FieldError{"function", "function name is required"})
	} else if !fnKnown {
		errs = append(errs, FieldError{"function", fmt.Sprintf("unknown function %q", req.Function)})
	}

	if len(req.Criteria) == 0 {
		errs = append(errs, FieldError{"criteria", "at least one metric criterion is required"})
	}
	for i, crit := range req.Criteria {
		field := fmt.Sprintf("criteria[%d]", i)
		metric, ok := cat.Metric(crit.Metric)
		if !ok {
			errs = append(errs, FieldError{field, fmt.Sprintf("unknown metric %q", crit.Metric)})
			continue
		}
		if metric.Type == catalog.MetricFloat {
			if _, err := strconv.ParseFloat(crit.Threshold, 64); err != nil {
				errs = append(errs, FieldError{field,
					fmt.Sprintf("threshold %q is not a number", crit.Threshold)})
			}
		}
	}
	if req.Combine != "" && req.Combine != models.CombineAnd && req.Combine != models.CombineOr {
		errs = append(errs, FieldError{"combine", fmt.Sprintf("unknown combinator %q", req.Combine)})
	}

	if req.Variant == "" {
		errs = append(errs, FieldError{"variant", "variant name is required"})
	} else if fnKnown {
		v, ok := fn.Variants[req.Variant]
		switch {
		case !ok:
			errs = append(errs, FieldError{"variant",
				fmt.Sprintf("function %q has no variant %q", req.Function, req.Variant)})
		case v.Type != catalog.VariantChatCompletion:
			errs = append(errs, FieldError{"variant",
				fmt.Sprintf("variant %q is type %s, only chat_completion variants can seed fine-tuning", req.Variant, v.Type)})
		}
	}

	if req.Model == "" {
		errs = append(errs, FieldError{"model", "model identifier is required"})
	}
	if req.Provider == "" {
		errs = append(errs, FieldError{"provider", "provider is required"})
	}
	// Bedrock stages training data to S3, so it alone needs a location.
	if req.Provider == models.ProviderBedrock {
		if req.Location == nil || req.Location.Region == "" {
			errs = append(errs, FieldError{"location.region", "region is required for bedrock"})
		}
		if req.Location == nil || req.Location.Bucket == "" {
			errs = append(errs, FieldError{"location.bucket", "bucket is required for bedrock"})
		}
	}

	if req.ValidationSplitPercent < 0 || req.ValidationSplitPercent > 100 {
		errs = append(errs, FieldError{"validation_split_percent",
			fmt.Sprintf("must be between 0 and 100, got %d", req.ValidationSplitPercent)})
	}
	if req.MaxSamples < minTrainingSamples {
		errs = append(errs, FieldError{"max_samples",
			fmt.Sprintf("must be at least %d, got %d", minTrainingSamples, req.MaxSamples)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
