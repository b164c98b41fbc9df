package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatloop/internal/domain"
	llmModels "chatloop/internal/domain/models/llm"
	domainllm "chatloop/internal/domain/services/llm"
	"chatloop/internal/service/llm/tools"
)

type scriptedProvider struct {
	resp    *domainllm.GenerateResponse
	err     error
	lastReq *domainllm.GenerateRequest
}

func (p *scriptedProvider) GenerateResponse(_ context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	p.lastReq = req
	return p.resp, p.err
}

func (p *scriptedProvider) Name() string                { return "scripted" }
func (p *scriptedProvider) SupportsModel(string) bool { return true }

type staticMessages struct {
	err error
}

func (s staticMessages) BuildMessages(_ context.Context, history []llmModels.Turn) ([]domainllm.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domainllm.Message, 0, len(history))
	for _, t := range history {
		out = append(out, domainllm.Message{Role: string(t.Role), Text: t.Text})
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func weatherRegistry(t *testing.T, exec tools.ExecutorFunc) *tools.ToolRegistry {
	t.Helper()
	registry, err := tools.NewToolRegistryBuilder().
		With(llmModels.GetWeatherToolDefinition(), exec).
		Build()
	require.NoError(t, err)
	return registry
}

func TestToolRuntime_TextOnly(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	provider := &scriptedProvider{resp: &domainllm.GenerateResponse{
		Text:         "Hello",
		ResponseID:   "msg_1",
		CreatedAt:    created,
		InputTokens:  12,
		OutputTokens: 3,
		StopReason:   "end_turn",
	}}
	runtime := NewToolRuntime(provider, "claude-haiku-4-5-20251001", 1024, staticMessages{}, discardLogger())

	history := []llmModels.Turn{{ID: "u1", Role: llmModels.RoleUser, Text: "hi"}}
	result, err := runtime.Run(context.Background(), history, nil)
	require.NoError(t, err)

	assert.Equal(t, "Hello", result.Text)
	assert.Equal(t, llmModels.FinishReasonStop, result.FinishReason)
	assert.Equal(t, llmModels.Usage{PromptTokens: 12, CompletionTokens: 3}, result.Usage)
	assert.Equal(t, &llmModels.ResponseInfo{ID: "msg_1", Model: "claude-haiku-4-5-20251001", Timestamp: created}, result.ResponseInfo)
	assert.Empty(t, result.ToolResults)

	require.NotNil(t, provider.lastReq)
	assert.Equal(t, 1024, provider.lastReq.MaxTokens)
	assert.Empty(t, provider.lastReq.Tools)
	assert.Equal(t, []domainllm.Message{{Role: "user", Text: "hi"}}, provider.lastReq.Messages)
}

func TestToolRuntime_ExecutesToolCallsInOrder(t *testing.T) {
	provider := &scriptedProvider{resp: &domainllm.GenerateResponse{
		ToolCalls: []domainllm.ToolCall{
			{ID: "a", Name: llmModels.ToolGetWeather, Input: map[string]any{"latitude": 1.0, "longitude": 2.0}},
			{ID: "b", Name: llmModels.ToolGetWeather, Input: map[string]any{"latitude": -1.0, "longitude": 2.0}},
			{ID: "c", Name: "unknownTool"},
		},
		FinishReason: llmModels.FinishReasonToolCalls,
	}}
	registry := weatherRegistry(t, func(_ context.Context, input map[string]any) (any, error) {
		if input["latitude"].(float64) < 0 {
			return nil, errors.New("southern hemisphere closed")
		}
		return json.RawMessage(`{"temp":21}`), nil
	})
	runtime := NewToolRuntime(provider, "lorem-fast", 0, staticMessages{}, discardLogger())

	result, err := runtime.Run(context.Background(), nil, registry)
	require.NoError(t, err)

	assert.Equal(t, llmModels.FinishReasonToolCalls, result.FinishReason)
	require.Len(t, provider.lastReq.Tools, 1)
	assert.Equal(t, llmModels.ToolGetWeather, provider.lastReq.Tools[0].Name())

	require.Len(t, result.ToolResults, 3)
	assert.Equal(t, domainllm.ResolvedToolResult{ToolCallID: "a", ToolName: llmModels.ToolGetWeather, Result: `{"temp":21}`}, result.ToolResults[0])
	assert.Equal(t, "b", result.ToolResults[1].ToolCallID)
	assert.JSONEq(t, `{"error":"southern hemisphere closed"}`, result.ToolResults[1].Result)
	assert.Equal(t, "c", result.ToolResults[2].ToolCallID)
	assert.Contains(t, result.ToolResults[2].Result, `"error"`)
}

func TestToolRuntime_ToolCallsWithoutToolSet(t *testing.T) {
	provider := &scriptedProvider{resp: &domainllm.GenerateResponse{
		ToolCalls:  []domainllm.ToolCall{{ID: "a", Name: llmModels.ToolGetWeather}},
		StopReason: "tool_use",
	}}
	runtime := NewToolRuntime(provider, "m", 0, staticMessages{}, discardLogger())

	result, err := runtime.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, llmModels.FinishReasonToolCalls, result.FinishReason)
	require.Len(t, result.ToolResults, 1)
	assert.JSONEq(t, `{"error":"no tools available"}`, result.ToolResults[0].Result)
}

func TestToolRuntime_ErrorsWrapProviderFailure(t *testing.T) {
	tests := []struct {
		name     string
		provider *scriptedProvider
		messages staticMessages
	}{
		{"provider error", &scriptedProvider{err: errors.New("overloaded")}, staticMessages{}},
		{"history error", &scriptedProvider{}, staticMessages{err: errors.New("unsupported turn role: robot")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runtime := NewToolRuntime(tt.provider, "m", 0, tt.messages, discardLogger())
			_, err := runtime.Run(context.Background(), nil, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrProviderFailure)
			assert.Contains(t, err.Error(), "scripted: ")
		})
	}
}

func TestEncodeToolResult(t *testing.T) {
	tests := []struct {
		name string
		res  domainllm.ToolResult
		want string
	}{
		{"nil", domainllm.ToolResult{}, `{}`},
		{"raw", domainllm.ToolResult{Result: json.RawMessage(`{"a":1}`)}, `{"a":1}`},
		{"bytes", domainllm.ToolResult{Result: []byte(`[1]`)}, `[1]`},
		{"string", domainllm.ToolResult{Result: "sunny"}, `sunny`},
		{"map", domainllm.ToolResult{Result: map[string]int{"t": 3}}, `{"t":3}`},
		{"error", domainllm.ToolResult{IsError: true, Error: errors.New("boom")}, `{"error":"boom"}`},
		{"error without cause", domainllm.ToolResult{IsError: true}, `{"error":"tool execution failed"}`},
		{"unserializable", domainllm.ToolResult{Result: make(chan int)}, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeToolResult(tt.res)
			if tt.want == "" {
				assert.Contains(t, got, "not serializable")
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
