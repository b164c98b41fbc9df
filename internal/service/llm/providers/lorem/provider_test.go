package lorem

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatloop/internal/domain/models/llm"
	domainllm "chatloop/internal/domain/services/llm"
)

func newInstantProvider() *Provider {
	p := NewProvider()
	p.delay = func(string) time.Duration { return 0 }
	return p
}

func TestProvider_PlainText(t *testing.T) {
	p := newInstantProvider()

	resp, err := p.GenerateResponse(context.Background(), &domainllm.GenerateRequest{
		Model:    "lorem-fast",
		Messages: []domainllm.Message{{Role: domainllm.MessageRoleUser, Text: "Tell me a story"}},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Text)
	assert.Empty(t, resp.ToolCalls)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, llm.FinishReasonStop, resp.FinishReason)
	assert.Equal(t, 4, resp.InputTokens)
	assert.Equal(t, len(strings.Fields(resp.Text)), resp.OutputTokens)
	assert.True(t, strings.HasPrefix(resp.ResponseID, "lorem_"))
}

func TestProvider_WeatherToolLoop(t *testing.T) {
	p := newInstantProvider()
	tools := []llm.ToolDefinition{llm.GetWeatherToolDefinition()}

	first, err := p.GenerateResponse(context.Background(), &domainllm.GenerateRequest{
		Model:    "lorem-fast",
		Messages: []domainllm.Message{{Role: domainllm.MessageRoleUser, Text: "What's the weather in Berlin?"}},
		Tools:    tools,
	})
	require.NoError(t, err)
	require.Len(t, first.ToolCalls, 1)
	call := first.ToolCalls[0]
	assert.Equal(t, llm.ToolGetWeather, call.Name)
	assert.NotEmpty(t, call.ID)
	assert.Equal(t, mockLatitude, call.Input["latitude"])
	assert.Equal(t, llm.FinishReasonToolCalls, first.FinishReason)

	second, err := p.GenerateResponse(context.Background(), &domainllm.GenerateRequest{
		Model: "lorem-fast",
		Messages: []domainllm.Message{
			{Role: domainllm.MessageRoleUser, Text: "What's the weather in Berlin?"},
			{Role: domainllm.MessageRoleAssistant, ToolCalls: first.ToolCalls},
			{Role: domainllm.MessageRoleTool, ToolResults: []domainllm.ResolvedToolResult{{ToolCallID: call.ID, Result: `{"t":1}`}}},
		},
		Tools: tools,
	})
	require.NoError(t, err)
	assert.Empty(t, second.ToolCalls)
	assert.Equal(t, llm.FinishReasonStop, second.FinishReason)
}

func TestProvider_NoToolWithoutDefinition(t *testing.T) {
	resp, err := newInstantProvider().GenerateResponse(context.Background(), &domainllm.GenerateRequest{
		Model:    "lorem-fast",
		Messages: []domainllm.Message{{Role: domainllm.MessageRoleUser, Text: "weather?"}},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.ToolCalls)
}

func TestProvider_Cutoff(t *testing.T) {
	resp, err := newInstantProvider().GenerateResponse(context.Background(), &domainllm.GenerateRequest{
		Model:     "lorem-cutoff",
		Messages:  []domainllm.Message{{Role: domainllm.MessageRoleUser, Text: "hi"}},
		MaxTokens: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, "max_tokens", resp.StopReason)
	assert.Equal(t, llm.FinishReasonLength, resp.FinishReason)
	assert.Equal(t, 20, resp.OutputTokens)
}

func TestProvider_Cancelled(t *testing.T) {
	p := NewProvider()
	p.delay = func(string) time.Duration { return time.Minute }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.GenerateResponse(ctx, &domainllm.GenerateRequest{Model: "lorem-slow"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProvider_UnsupportedModel(t *testing.T) {
	_, err := newInstantProvider().GenerateResponse(context.Background(), &domainllm.GenerateRequest{Model: "gpt-4o"})
	assert.Error(t, err)
}

func TestResponseDelay(t *testing.T) {
	assert.Equal(t, 2*time.Second, responseDelay("lorem-slow"))
	assert.Zero(t, responseDelay("lorem-fast"))
	assert.Equal(t, 300*time.Millisecond, responseDelay("lorem-cutoff"))
}
