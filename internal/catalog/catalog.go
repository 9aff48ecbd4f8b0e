// Package catalog holds the static provider/model metadata table: pricing,
// context windows, and output-token ceilings. The table is loaded once at
// startup from an embedded document and is immutable afterwards; adapters
// never read it directly, cost attachment happens in the gateway layer.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

const (
	tokensPerK = 1000.0

	// DefaultMaxOutputTokens is returned for models missing from the table.
	DefaultMaxOutputTokens = 4096
)

// ModelMetadata describes pricing and limits for one provider model.
// Costs are USD per 1K tokens.
type ModelMetadata struct {
	InputCostPer1K  float64  `yaml:"input_cost"  json:"input_cost"`
	OutputCostPer1K float64  `yaml:"output_cost" json:"output_cost"`
	ContextWindow   int      `yaml:"max_tokens"  json:"max_tokens"`
	MaxOutput       int      `yaml:"max_output"  json:"max_output"`
	Description     string   `yaml:"description" json:"description"`
	Strengths       []string `yaml:"strengths"   json:"strengths"`
}

// Model is a catalog entry flattened for listing.
type Model struct {
	Provider string `json:"provider"`
	Name     string `json:"model"`
	ModelMetadata
}

// Catalog is the immutable provider→model metadata table.
type Catalog struct {
	providers map[string]map[string]ModelMetadata
}

// Load parses the embedded model table (DI constructor).
func Load() (*Catalog, error) {
	providers := make(map[string]map[string]ModelMetadata)
	if err := yaml.Unmarshal(modelsYAML, &providers); err != nil {
		return nil, fmt.Errorf("failed to parse model catalog: %w", err)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("model catalog is empty")
	}

	return &Catalog{providers: providers}, nil
}

// Cost returns the USD cost for the given token counts. Unknown
// provider/model pairs cost 0.
func (c *Catalog) Cost(provider, model string, inputTokens, outputTokens int) float64 {
	meta, ok := c.providers[provider][model]
	if !ok {
		return 0
	}

	inputCost := float64(inputTokens) / tokensPerK * meta.InputCostPer1K
	outputCost := float64(outputTokens) / tokensPerK * meta.OutputCostPer1K
	return inputCost + outputCost
}

// MaxOutputTokens returns the model's default output-token ceiling, falling
// back to DefaultMaxOutputTokens for unknown models.
func (c *Catalog) MaxOutputTokens(provider, model string) int {
	meta, ok := c.providers[provider][model]
	if !ok || meta.MaxOutput <= 0 {
		return DefaultMaxOutputTokens
	}
	return meta.MaxOutput
}

// Providers returns the provider names in sorted order.
func (c *Catalog) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Models returns every catalog entry, sorted by provider then model name.
func (c *Catalog) Models() []Model {
	models := make([]Model, 0, len(c.providers)*4)
	for provider, table := range c.providers {
		for name, meta := range table {
			models = append(models, Model{
				Provider:      provider,
				Name:          name,
				ModelMetadata: meta,
			})
		}
	}

	sort.Slice(models, func(i, j int) bool {
		if models[i].Provider != models[j].Provider {
			return models[i].Provider < models[j].Provider
		}
		return models[i].Name < models[j].Name
	})

	return models
}
