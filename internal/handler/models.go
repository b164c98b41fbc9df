package handler

import (
	"log/slog"
	"net/http"

	"chatloop/internal/capabilities"
	"chatloop/internal/config"
	"chatloop/internal/httputil"
)

// ModelsHandler handles HTTP requests for model capabilities
type ModelsHandler struct {
	config   *config.Config
	logger   *slog.Logger
	registry *capabilities.Registry
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(cfg *config.Config, logger *slog.Logger, registry *capabilities.Registry) *ModelsHandler {
	return &ModelsHandler{
		config:   cfg,
		logger:   logger,
		registry: registry,
	}
}

// ProviderResponse represents a provider with its models
type ProviderResponse struct {
	ID      string          `json:"id"`
	Default bool            `json:"default"`
	Models  []ModelResponse `json:"models"`
}

// ModelResponse represents a model's capabilities for the API response
type ModelResponse struct {
	ID            string      `json:"id"`
	DisplayName   string      `json:"display_name"`
	ContextWindow int         `json:"context_window"`
	MaxOutput     int         `json:"max_output"`
	Tools         bool        `json:"tools"`
	ToolCalls     string      `json:"tool_calls,omitempty"` // excellent, good, basic
	Pricing       PricingInfo `json:"pricing"`
}

// PricingInfo represents model pricing
type PricingInfo struct {
	InputPer1M  float64                    `json:"input_per_1m"`  // First tier
	OutputPer1M float64                    `json:"output_per_1m"` // First tier
	Tiers       []capabilities.PricingTier `json:"tiers"`
}

// GetCapabilities returns the catalog for every provider that has credentials
// GET /api/models
func (h *ModelsHandler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	providers := make([]ProviderResponse, 0)

	for _, id := range h.registry.GetAllProviders() {
		if !h.configured(id) {
			continue
		}
		models, err := h.registry.ListProviderModels(id)
		if err != nil {
			h.logger.Warn("skipping provider without catalog", "provider", id, "error", err)
			continue
		}
		providers = append(providers, h.convertProvider(id, models))
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"providers":     providers,
		"default_model": h.config.DefaultModel,
	})
}

// configured reports whether a provider can be instantiated with the current config
func (h *ModelsHandler) configured(provider string) bool {
	switch provider {
	case "anthropic":
		return h.config.AnthropicAPIKey != ""
	case "openai":
		return h.config.OpenAIAPIKey != ""
	case "lorem":
		return true
	}
	return false
}

// convertProvider converts capability registry data to API response format
func (h *ModelsHandler) convertProvider(id string, models []capabilities.ModelCapabilities) ProviderResponse {
	modelResponses := make([]ModelResponse, 0, len(models))

	for _, modelCap := range models {
		var inputPer1M, outputPer1M float64
		if len(modelCap.PricingTiers) > 0 {
			inputPer1M = modelCap.PricingTiers[0].InputPrice
			outputPer1M = modelCap.PricingTiers[0].OutputPrice
		}

		modelResponses = append(modelResponses, ModelResponse{
			ID:            modelCap.ID,
			DisplayName:   modelCap.DisplayName,
			ContextWindow: modelCap.ContextWindow,
			MaxOutput:     modelCap.MaxOutput,
			Tools:         modelCap.SupportsTools,
			ToolCalls:     string(modelCap.ToolCallQuality),
			Pricing: PricingInfo{
				InputPer1M:  inputPer1M,
				OutputPer1M: outputPer1M,
				Tiers:       modelCap.PricingTiers,
			},
		})
	}

	return ProviderResponse{
		ID:      id,
		Default: id == h.config.DefaultProvider,
		Models:  modelResponses,
	}
}
