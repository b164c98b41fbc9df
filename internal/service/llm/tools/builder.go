package tools

import (
	"errors"

	llmModels "chatloop/internal/domain/models/llm"
	"chatloop/internal/service/llm/tools/external"
)

// ToolRegistryBuilder provides a fluent API for building tool registries.
// Registration errors are collected and returned by Build.
type ToolRegistryBuilder struct {
	registry *ToolRegistry
	config   *ToolConfig
	errs     []error
}

// NewToolRegistryBuilder creates a new builder with a fresh registry.
func NewToolRegistryBuilder() *ToolRegistryBuilder {
	return &ToolRegistryBuilder{
		registry: NewToolRegistry(),
		config:   DefaultToolConfig(),
	}
}

// WithConfig sets custom tool configuration.
// If not called, defaults will be used.
func (b *ToolRegistryBuilder) WithConfig(config *ToolConfig) *ToolRegistryBuilder {
	if config != nil {
		b.config = config
	}
	return b
}

// WithWeather registers the getWeather tool backed by a forecast client.
// Only registers if a client is provided.
func (b *ToolRegistryBuilder) WithWeather(client external.WeatherClient) *ToolRegistryBuilder {
	if client != nil {
		b.With(llmModels.GetWeatherToolDefinition(), NewWeatherTool(client, b.config))
	}
	return b
}

// With registers an arbitrary tool
func (b *ToolRegistryBuilder) With(definition llmModels.ToolDefinition, executor ToolExecutor) *ToolRegistryBuilder {
	if err := b.registry.Register(definition, executor); err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Build returns the constructed tool registry.
func (b *ToolRegistryBuilder) Build() (*ToolRegistry, error) {
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return b.registry, nil
}
