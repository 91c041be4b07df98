package service

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tuneboard/tuneboard/internal/catalog"
	"github.com/tuneboard/tuneboard/internal/models"
)

// modelFragment is the YAML shape of the derived model configuration.
type modelFragment struct {
	Models map[string]models.ServingConfig `yaml:"models"`
}

// variantFragment nests the derived variant under its function, so the
// operator can paste it straight into their configuration.
type variantFragment struct {
	Functions map[string]struct {
		Variants map[string]catalog.Variant `yaml:"variants"`
	} `yaml:"functions"`
}

// DeriveFragments renders the two configuration fragments shown after a job
// completes: the model entry binding the fine-tuned model to its serving
// parameters, and a copy of the source variant pointing at the new model
// with its routing weight zeroed. Neither is written into live
// configuration; adoption stays a manual step.
func DeriveFragments(result models.FineTuneResult, function, variantName string, source catalog.Variant) (string, string, error) {
	serving := result.Serving
	// model_name duplicates the map key in the models block.
	serving.ModelName = ""

	mf := modelFragment{
		Models: map[string]models.ServingConfig{
			result.FineTunedModel: serving,
		},
	}
	modelYAML, err := yaml.Marshal(mf)
	if err != nil {
		return "", "", fmt.Errorf("render model fragment: %w", err)
	}

	derived := source
	derived.Model = result.FineTunedModel
	derived.Weight = 0

	vf := variantFragment{
		Functions: map[string]struct {
			Variants map[string]catalog.Variant `yaml:"variants"`
		}{
			function: {Variants: map[string]catalog.Variant{
				variantName + "-ft": derived,
			}},
		},
	}
	variantYAML, err := yaml.Marshal(vf)
	if err != nil {
		return "", "", fmt.Errorf("render variant fragment: %w", err)
	}

	return string(modelYAML), string(variantYAML), nil
}
