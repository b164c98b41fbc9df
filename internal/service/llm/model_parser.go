package llm

import (
	"fmt"
	"strings"

	llmModels "chatloop/internal/domain/models/llm"
)

// ModelInfo is a provider/model pair parsed from a model string
type ModelInfo struct {
	Provider string // "anthropic", "openai", "lorem"
	Model    string // Model identifier for that provider
}

// ParseModel extracts provider information from a model string.
//
// Supported formats:
//   - "claude-haiku-4-5-20251001" → {anthropic, claude-haiku-4-5-20251001}
//   - "openai/gpt-4.1" → {openai, gpt-4.1}
//   - "lorem/lorem-slow" → {lorem, lorem-slow}
//
// A string containing "/" is split on the first "/". Otherwise the provider is
// inferred from the model prefix.
func ParseModel(modelStr string) (*ModelInfo, error) {
	if modelStr == "" {
		return nil, fmt.Errorf("model string cannot be empty")
	}

	if provider, model, ok := strings.Cut(modelStr, "/"); ok {
		if provider == "" {
			return nil, fmt.Errorf("provider cannot be empty in model string: %s", modelStr)
		}
		if model == "" {
			return nil, fmt.Errorf("model cannot be empty in model string: %s", modelStr)
		}
		return &ModelInfo{Provider: provider, Model: model}, nil
	}

	provider, ok := llmModels.GetProviderForModel(modelStr)
	if !ok {
		return nil, fmt.Errorf("unable to infer provider from model: %s", modelStr)
	}

	return &ModelInfo{Provider: provider, Model: modelStr}, nil
}
