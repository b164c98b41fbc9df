package llm

import "strings"

// GetProviderForModel returns the provider for a given model name based on common prefixes.
// Returns (provider, true) if a mapping is found, ("", false) if not.
//
// Used as fallback when a catalog lookup does not name a provider.
func GetProviderForModel(model string) (string, bool) {
	if model == "" {
		return "", false
	}

	modelLower := strings.ToLower(model)

	if strings.HasPrefix(modelLower, "claude-") {
		return "anthropic", true
	}

	if strings.HasPrefix(modelLower, "gpt-") || strings.HasPrefix(modelLower, "o1") ||
		strings.HasPrefix(modelLower, "o3") || strings.HasPrefix(modelLower, "o4") {
		return "openai", true
	}

	// Mock provider for local development
	if strings.HasPrefix(modelLower, "lorem-") {
		return "lorem", true
	}

	return "", false
}
