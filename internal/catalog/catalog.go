// Package catalog loads the read-only configuration enumerating the
// functions, variants, and metrics a deployment knows about. The rest of the
// system treats it as an immutable lookup table.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VariantType classifies how a variant produces inferences.
type VariantType string

const (
	// VariantChatCompletion is the only variant type eligible as a
	// fine-tuning source; other types never enter the selection set.
	VariantChatCompletion VariantType = "chat_completion"
	VariantBestOfN        VariantType = "best_of_n"
	VariantMixtureOfN     VariantType = "mixture_of_n"
)

// MetricType classifies metric values.
type MetricType string

const (
	MetricFloat   MetricType = "float"
	MetricBoolean MetricType = "boolean"
)

// Variant is a named prompt/model configuration attached to a function.
type Variant struct {
	Type           VariantType `yaml:"type" json:"type"`
	Model          string      `yaml:"model" json:"model"`
	Weight         float64     `yaml:"weight" json:"weight"`
	Temperature    *float64    `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens      *int        `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	SystemTemplate string      `yaml:"system_template,omitempty" json:"system_template,omitempty"`
}

// Function groups the variants that can serve it.
type Function struct {
	Type     string             `yaml:"type" json:"type"`
	Variants map[string]Variant `yaml:"variants" json:"variants"`
}

// Metric describes a feedback signal curated inferences are selected by.
type Metric struct {
	Type     MetricType `yaml:"type" json:"type"`
	Optimize string     `yaml:"optimize,omitempty" json:"optimize,omitempty"`
}

// Catalog is the loaded configuration object.
type Catalog struct {
	Functions map[string]Function `yaml:"functions" json:"functions"`
	Metrics   map[string]Metric   `yaml:"metrics" json:"metrics"`
}

// Load reads and parses a catalog YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Functions) == 0 {
		return nil, fmt.Errorf("catalog defines no functions")
	}
	return &c, nil
}

// Function looks up a function by name.
func (c *Catalog) Function(name string) (Function, bool) {
	fn, ok := c.Functions[name]
	return fn, ok
}

// Metric looks up a metric by name.
func (c *Catalog) Metric(name string) (Metric, bool) {
	m, ok := c.Metrics[name]
	return m, ok
}

// Variant looks up a variant of a function.
func (c *Catalog) Variant(function, name string) (Variant, bool) {
	fn, ok := c.Functions[function]
	if !ok {
		return Variant{}, false
	}
	v, ok := fn.Variants[name]
	return v, ok
}

// EligibleVariants returns the chat-completion variants of a function.
// Other variant types cannot seed a fine-tuning job and are filtered out
// of the selection set entirely.
func (c *Catalog) EligibleVariants(function string) map[string]Variant {
	fn, ok := c.Functions[function]
	if !ok {
		return nil
	}
	eligible := make(map[string]Variant)
	for name, v := range fn.Variants {
		if v.Type == VariantChatCompletion {
			eligible[name] = v
		}
	}
	return eligible
}
