package llm

import (
	"fmt"
	"strings"

	"github.com/openai/openai-go/option"

	"chatloop/internal/capabilities"
	"chatloop/internal/config"
	domainllm "chatloop/internal/domain/services/llm"
	"chatloop/internal/service/llm/middleware"
	"chatloop/internal/service/llm/providers/anthropic"
	"chatloop/internal/service/llm/providers/lorem"
	"chatloop/internal/service/llm/providers/openai"
)

// ModelSelection is a catalog-validated provider/model pair
type ModelSelection struct {
	Provider     string
	Model        string
	Capabilities *capabilities.ModelCapabilities
}

// ProviderFactory creates LLM provider instances
type ProviderFactory struct {
	config  *config.Config
	catalog *capabilities.Registry
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config, catalog *capabilities.Registry) *ProviderFactory {
	return &ProviderFactory{
		config:  cfg,
		catalog: catalog,
	}
}

// GetProvider returns a provider instance for the given provider name,
// rate limited when PROVIDER_RPS is set.
//
// Supported providers:
//   - "anthropic" - Claude models via Anthropic API
//   - "openai" - GPT and o-series models, or any OpenAI-compatible endpoint
//   - "lorem" - Mock provider for testing (no API key required)
func (f *ProviderFactory) GetProvider(providerName string) (domainllm.LLMProvider, error) {
	var (
		provider domainllm.LLMProvider
		err      error
	)

	switch providerName {
	case "anthropic":
		provider, err = f.createAnthropicProvider()
	case "openai":
		provider, err = f.createOpenAIProvider()
	case "lorem":
		provider = lorem.NewProvider()
	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
	if err != nil {
		return nil, err
	}

	return middleware.WithRateLimit(provider, f.config.ProviderRPS, f.config.ProviderBurst), nil
}

// ResolveModel validates a provider/model pair against the catalog.
// A "provider/model" string overrides providerName, an empty provider is
// inferred from the model name, and an empty model selects the provider's
// first catalog model.
func (f *ProviderFactory) ResolveModel(providerName, model string) (*ModelSelection, error) {
	if model != "" && (providerName == "" || strings.Contains(model, "/")) {
		info, err := ParseModel(model)
		if err != nil {
			return nil, err
		}
		providerName, model = info.Provider, info.Model
	}
	if providerName == "" {
		return nil, fmt.Errorf("provider or model is required")
	}

	if model == "" {
		models, err := f.catalog.ListProviderModels(providerName)
		if err != nil {
			return nil, err
		}
		if len(models) == 0 {
			return nil, fmt.Errorf("provider %s has no catalog models", providerName)
		}
		model = models[0].ID
	}

	caps, err := f.catalog.GetModelCapabilities(providerName, model)
	if err != nil {
		return nil, fmt.Errorf("model not in catalog: %w", err)
	}

	return &ModelSelection{
		Provider:     providerName,
		Model:        model,
		Capabilities: caps,
	}, nil
}

// createAnthropicProvider creates an Anthropic provider instance
func (f *ProviderFactory) createAnthropicProvider() (domainllm.LLMProvider, error) {
	if f.config.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	provider, err := anthropic.NewProvider(f.config.AnthropicAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
	}
	return provider, nil
}

// createOpenAIProvider creates an OpenAI provider instance
func (f *ProviderFactory) createOpenAIProvider() (domainllm.LLMProvider, error) {
	if f.config.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	var opts []option.RequestOption
	if f.config.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(f.config.OpenAIBaseURL))
	}

	provider, err := openai.NewProvider(f.config.OpenAIAPIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI provider: %w", err)
	}
	return provider, nil
}
