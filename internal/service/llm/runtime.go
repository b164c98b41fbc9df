package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"chatloop/internal/domain"
	llmModels "chatloop/internal/domain/models/llm"
	domainllm "chatloop/internal/domain/services/llm"
)

// ToolRuntime implements ProviderClient: one model call, then every tool call
// the model requested, executed through the tool set.
type ToolRuntime struct {
	provider       domainllm.LLMProvider
	model          string
	maxTokens      int
	messageBuilder domainllm.MessageBuilder
	logger         *slog.Logger
}

var _ domainllm.ProviderClient = (*ToolRuntime)(nil)

// NewToolRuntime creates a runtime bound to one provider and model.
// maxTokens of zero leaves the provider default.
func NewToolRuntime(
	provider domainllm.LLMProvider,
	model string,
	maxTokens int,
	messageBuilder domainllm.MessageBuilder,
	logger *slog.Logger,
) *ToolRuntime {
	return &ToolRuntime{
		provider:       provider,
		model:          model,
		maxTokens:      maxTokens,
		messageBuilder: messageBuilder,
		logger:         logger,
	}
}

// Run implements domainllm.ProviderClient.
// Every returned error wraps domain.ErrProviderFailure. Tool failures are not
// errors: they come back as {"error": "..."} results for the model to read.
func (r *ToolRuntime) Run(ctx context.Context, history []llmModels.Turn, tools domainllm.ToolSet) (*domainllm.ProviderResult, error) {
	messages, err := r.messageBuilder.BuildMessages(ctx, history)
	if err != nil {
		return nil, &domain.ProviderError{Provider: r.provider.Name(), Err: err}
	}

	var definitions []llmModels.ToolDefinition
	if tools != nil {
		definitions = tools.Definitions()
	}

	resp, err := r.provider.GenerateResponse(ctx, &domainllm.GenerateRequest{
		Messages:  messages,
		Model:     r.model,
		Tools:     definitions,
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		return nil, &domain.ProviderError{Provider: r.provider.Name(), Err: err}
	}

	finishReason := resp.FinishReason
	if finishReason == "" {
		finishReason = llmModels.FinishReasonFromStopReason(resp.StopReason)
	}

	result := &domainllm.ProviderResult{
		Text:         resp.Text,
		ToolCalls:    resp.ToolCalls,
		FinishReason: finishReason,
		Usage: llmModels.Usage{
			PromptTokens:     resp.InputTokens,
			CompletionTokens: resp.OutputTokens,
		},
		ResponseInfo: &llmModels.ResponseInfo{
			ID:        resp.ResponseID,
			Model:     resp.Model,
			Timestamp: resp.CreatedAt,
		},
	}
	if result.ResponseInfo.Model == "" {
		result.ResponseInfo.Model = r.model
	}

	if len(resp.ToolCalls) == 0 {
		return result, nil
	}

	var executed []domainllm.ToolResult
	if tools != nil {
		executed = tools.ExecuteParallel(ctx, resp.ToolCalls)
	}

	result.ToolResults = make([]domainllm.ResolvedToolResult, len(resp.ToolCalls))
	for i, call := range resp.ToolCalls {
		res := domainllm.ToolResult{ID: call.ID, Name: call.Name, Error: errToolsUnavailable, IsError: true}
		if i < len(executed) {
			res = executed[i]
		}
		if res.IsError {
			r.logger.Warn("tool execution failed",
				"tool_name", call.Name,
				"tool_call_id", call.ID,
				"error", res.Error,
			)
		}
		result.ToolResults[i] = domainllm.ResolvedToolResult{
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Result:     encodeToolResult(res),
		}
	}

	r.logger.Debug("provider round complete",
		"provider", r.provider.Name(),
		"model", r.model,
		"finish_reason", finishReason,
		"tool_calls", len(resp.ToolCalls),
	)
	return result, nil
}

var errToolsUnavailable = errors.New("no tools available")

// encodeToolResult renders a tool outcome as the raw string handed to the model
func encodeToolResult(res domainllm.ToolResult) string {
	if res.IsError {
		msg := "tool execution failed"
		if res.Error != nil {
			msg = res.Error.Error()
		}
		b, _ := json.Marshal(map[string]string{"error": msg})
		return string(b)
	}

	switch v := res.Result.(type) {
	case nil:
		return "{}"
	case json.RawMessage:
		return string(v)
	case []byte:
		return string(v)
	case string:
		return v
	}

	b, err := json.Marshal(res.Result)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"error": "tool result is not serializable: " + err.Error()})
	}
	return string(b)
}
