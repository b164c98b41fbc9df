package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"chatloop/internal/capabilities"
	llmModels "chatloop/internal/domain/models/llm"
	domainllm "chatloop/internal/domain/services/llm"
)

// interruptedToolResult answers a stored tool call that never got a result
const interruptedToolResult = `{"error":"Tool execution was interrupted"}`

// MessageBuilderService converts conversation history (stored turns) to LLM messages.
// This is a pure conversion service - data loading happens in the caller.
type MessageBuilderService struct {
	capabilityRegistry *capabilities.Registry
	logger             *slog.Logger
}

var _ domainllm.MessageBuilder = (*MessageBuilderService)(nil)

// NewMessageBuilderService creates a new MessageBuilderService.
// capabilityRegistry may be nil, which disables the context limit warning.
func NewMessageBuilderService(
	capabilityRegistry *capabilities.Registry,
	logger *slog.Logger,
) *MessageBuilderService {
	return &MessageBuilderService{
		capabilityRegistry: capabilityRegistry,
		logger:             logger,
	}
}

// BuildMessages converts turns, ordered oldest first, to provider messages.
//
// An assistant turn becomes an assistant message (text plus the tool calls of
// its call parts), followed by a tool message when the turn carries results.
// Turns with role "data" and turns with no content are skipped.
func (mb *MessageBuilderService) BuildMessages(
	ctx context.Context,
	history []llmModels.Turn,
) ([]domainllm.Message, error) {
	messages := make([]domainllm.Message, 0, len(history))

	for _, turn := range history {
		switch turn.Role {
		case llmModels.RoleSystem:
			if text := turnText(turn); text != "" {
				messages = append(messages, domainllm.Message{Role: domainllm.MessageRoleSystem, Text: text})
			}

		case llmModels.RoleUser:
			text := turnText(turn)
			if text == "" {
				mb.logger.Warn("skipping user turn with no content", "turn_id", turn.ID)
				continue
			}
			messages = append(messages, domainllm.Message{Role: domainllm.MessageRoleUser, Text: text})

		case llmModels.RoleAssistant:
			messages = append(messages, mb.assistantMessages(turn)...)

		case llmModels.RoleData:
			continue

		default:
			return nil, fmt.Errorf("unsupported turn role: %s", turn.Role)
		}
	}

	if err := mb.injectTokenLimitWarningIfNeeded(history, &messages); err != nil {
		// Don't fail the request if warning injection fails
		mb.logger.Warn("failed to inject token limit warning", "error", err)
	}

	return messages, nil
}

func (mb *MessageBuilderService) assistantMessages(turn llmModels.Turn) []domainllm.Message {
	msg := domainllm.Message{Role: domainllm.MessageRoleAssistant, Text: turnText(turn)}

	results := map[string]domainllm.ResolvedToolResult{}
	var resultOrder []string
	for _, res := range turn.Parts.ToolCalls(llmModels.ToolStateResult) {
		if _, seen := results[res.ToolCallID]; !seen {
			resultOrder = append(resultOrder, res.ToolCallID)
		}
		results[res.ToolCallID] = domainllm.ResolvedToolResult{
			ToolCallID: res.ToolCallID,
			ToolName:   res.ToolName,
			Result:     resultString(res.Result),
		}
	}

	var toolMsg domainllm.Message
	for _, call := range turn.Parts.ToolCalls(llmModels.ToolStateCall) {
		args := call.Args
		if args == nil {
			args = map[string]any{}
		}
		msg.ToolCalls = append(msg.ToolCalls, domainllm.ToolCall{ID: call.ToolCallID, Name: call.ToolName, Input: args})

		res, ok := results[call.ToolCallID]
		if !ok {
			// Providers reject a tool call with no matching result
			mb.logger.Warn("injecting error result for dangling tool call",
				"turn_id", turn.ID,
				"tool_call_id", call.ToolCallID,
				"tool_name", call.ToolName,
			)
			res = domainllm.ResolvedToolResult{ToolCallID: call.ToolCallID, ToolName: call.ToolName, Result: interruptedToolResult}
		}
		if res.ToolName == "" {
			res.ToolName = call.ToolName
		}
		toolMsg.ToolResults = append(toolMsg.ToolResults, res)
		delete(results, call.ToolCallID)
	}

	// Results whose call lives in an earlier turn
	for _, id := range resultOrder {
		if res, ok := results[id]; ok {
			toolMsg.ToolResults = append(toolMsg.ToolResults, res)
		}
	}

	var out []domainllm.Message
	if msg.Text != "" || len(msg.ToolCalls) > 0 {
		out = append(out, msg)
	}
	if len(toolMsg.ToolResults) > 0 {
		toolMsg.Role = domainllm.MessageRoleTool
		out = append(out, toolMsg)
	}
	if len(out) == 0 {
		mb.logger.Warn("skipping assistant turn with no content", "turn_id", turn.ID)
	}
	return out
}

// turnText joins the text parts of a turn, or returns Text when it has no parts
func turnText(turn llmModels.Turn) string {
	if len(turn.Parts) == 0 {
		return turn.Text
	}

	var sb strings.Builder
	for _, p := range turn.Parts {
		switch v := p.(type) {
		case llmModels.TextPart:
			sb.WriteString(v.Text)
		case llmModels.UnknownPart:
			sb.WriteString(v.Text)
		}
	}
	return sb.String()
}

// resultString re-serializes a stored tool result for the provider
func resultString(result any) string {
	switch v := result.(type) {
	case nil:
		return "{}"
	case string:
		return v
	}
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprint(result)
	}
	return string(b)
}

// injectTokenLimitWarningIfNeeded checks if the last assistant turn is approaching the
// model's context window and appends a user message warning if usage is >75%
func (mb *MessageBuilderService) injectTokenLimitWarningIfNeeded(history []llmModels.Turn, messages *[]domainllm.Message) error {
	if mb.capabilityRegistry == nil || len(history) == 0 {
		return nil
	}

	var last *llmModels.Turn
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == llmModels.RoleAssistant {
			last = &history[i]
			break
		}
	}
	if last == nil || last.Metadata == nil || last.Metadata.Usage == nil || last.Metadata.ProviderResponseInfo == nil {
		return nil
	}

	model := last.Metadata.ProviderResponseInfo.Model
	if model == "" {
		return nil
	}

	_, modelCap, err := mb.capabilityRegistry.FindModel(model)
	if err != nil {
		// Model not in catalog - skip warning
		return nil
	}
	if modelCap.ContextWindow <= 0 {
		return nil
	}

	usage := last.Metadata.Usage
	totalTokens := usage.PromptTokens + usage.CompletionTokens
	usagePercent := (float64(totalTokens) / float64(modelCap.ContextWindow)) * 100

	if usagePercent > 75 {
		warningText := fmt.Sprintf("Note: You're approaching the context limit (%.1f%% used, %d/%d tokens). Consider wrapping up.", usagePercent, totalTokens, modelCap.ContextWindow)
		*messages = append(*messages, domainllm.Message{Role: domainllm.MessageRoleUser, Text: warningText})

		mb.logger.Info("injected token limit warning",
			"usage_percent", usagePercent,
			"total_tokens", totalTokens,
			"context_limit", modelCap.ContextWindow,
		)
	}

	return nil
}
