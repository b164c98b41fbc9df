package capabilities

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ToolCallQuality represents how well a model handles function calling
type ToolCallQuality string

const (
	ToolCallQualityExcellent ToolCallQuality = "excellent"
	ToolCallQualityGood      ToolCallQuality = "good"
	ToolCallQualityBasic     ToolCallQuality = "basic"
)

// PricingTier represents a pricing tier based on context window usage
type PricingTier struct {
	Threshold   *int    `yaml:"threshold" json:"threshold"`       // null = unlimited
	InputPrice  float64 `yaml:"input_price" json:"input_price"`   // USD per million tokens
	OutputPrice float64 `yaml:"output_price" json:"output_price"` // USD per million tokens
}

// ModelCapabilities represents all metadata for a specific model
type ModelCapabilities struct {
	// Model identifier (set during YAML unmarshaling)
	ID string `yaml:"-" json:"id"`

	// Display information
	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`

	// Core capabilities
	SupportsTools    bool `yaml:"supports_tools" json:"supports_tools"`
	SupportsThinking bool `yaml:"supports_thinking" json:"supports_thinking"`

	ToolCallQuality ToolCallQuality `yaml:"tool_call_quality" json:"tool_call_quality"`

	// Limits
	ContextWindow int `yaml:"context_window" json:"context_window"`
	MaxOutput     int `yaml:"max_output" json:"max_output"`

	// Pricing (per million tokens, tiered by prompt size)
	PricingTiers []PricingTier `yaml:"pricing_tiers" json:"pricing_tiers"`
}

// ProviderCapabilities represents all models for a provider
type ProviderCapabilities struct {
	Provider string              `yaml:"provider" json:"provider"`
	Models   []ModelCapabilities `yaml:"-" json:"models"` // Ordered slice, populated by custom unmarshaler
}

// UnmarshalYAML keeps the models mapping in file order. The first model of a
// provider is its default, so a plain map would lose information.
func (p *ProviderCapabilities) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: provider catalog must be a mapping", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "provider":
			p.Provider = value.Value
		case "models":
			if value.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: models must be a mapping", value.Line)
			}
			for j := 0; j+1 < len(value.Content); j += 2 {
				var model ModelCapabilities
				if err := value.Content[j+1].Decode(&model); err != nil {
					return fmt.Errorf("model %s: %w", value.Content[j].Value, err)
				}
				model.ID = value.Content[j].Value
				p.Models = append(p.Models, model)
			}
		}
	}

	return nil
}
