package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatloop/internal/capabilities"
	"chatloop/internal/config"
)

func TestModelsHandler_ListsConfiguredProviders(t *testing.T) {
	registry, err := capabilities.NewRegistry()
	require.NoError(t, err)

	cfg := &config.Config{
		DefaultProvider: "openai",
		DefaultModel:    "gpt-4o-mini",
		OpenAIAPIKey:    "sk-test",
	}
	h := NewModelsHandler(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), registry)

	rec := httptest.NewRecorder()
	h.GetCapabilities(rec, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Providers    []ProviderResponse `json:"providers"`
		DefaultModel string             `json:"default_model"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "gpt-4o-mini", body.DefaultModel)
	require.Len(t, body.Providers, 2, "anthropic has no key and is hidden")

	openai := body.Providers[0]
	assert.Equal(t, "openai", openai.ID)
	assert.True(t, openai.Default)
	require.NotEmpty(t, openai.Models)
	assert.Equal(t, "gpt-4o-mini", openai.Models[0].ID)

	lorem := body.Providers[1]
	assert.Equal(t, "lorem", lorem.ID)
	assert.False(t, lorem.Default)
	require.Len(t, lorem.Models, 3)
	assert.Equal(t, "lorem-cutoff", lorem.Models[2].ID)
	assert.False(t, lorem.Models[2].Tools)
	assert.Equal(t, 64, lorem.Models[2].MaxOutput)
	assert.Zero(t, lorem.Models[0].Pricing.InputPer1M)
}
