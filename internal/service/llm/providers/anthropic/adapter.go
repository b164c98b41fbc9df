package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"chatloop/internal/domain/models/llm"
	domainllm "chatloop/internal/domain/services/llm"
)

// convertToAnthropicMessages converts domain messages to Anthropic SDK format.
// System messages are lifted into the returned system prompt. Tool results
// travel as tool_result blocks inside a user message, and consecutive
// messages with the same role are merged.
func convertToAnthropicMessages(messages []domainllm.Message) (string, []anthropic.MessageParam, error) {
	var system []string
	result := make([]anthropic.MessageParam, 0, len(messages))

	appendBlocks := func(role anthropic.MessageParamRole, blocks []anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(result); n > 0 && result[n-1].Role == role {
			result[n-1].Content = append(result[n-1].Content, blocks...)
			return
		}
		if role == anthropic.MessageParamRoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(blocks...))
		} else {
			result = append(result, anthropic.NewUserMessage(blocks...))
		}
	}

	for i, msg := range messages {
		switch msg.Role {
		case domainllm.MessageRoleSystem:
			if msg.Text != "" {
				system = append(system, msg.Text)
			}

		case domainllm.MessageRoleUser:
			if msg.Text == "" {
				continue
			}
			appendBlocks(anthropic.MessageParamRoleUser, []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Text)})

		case domainllm.MessageRoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolCalls)+1)
			if msg.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Text))
			}
			for _, call := range msg.ToolCalls {
				if call.ID == "" || call.Name == "" {
					return "", nil, fmt.Errorf("message %d: tool call missing id or name", i)
				}
				input := call.Input
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			appendBlocks(anthropic.MessageParamRoleAssistant, blocks)

		case domainllm.MessageRoleTool:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolResults))
			for _, res := range msg.ToolResults {
				blocks = append(blocks, anthropic.NewToolResultBlock(res.ToolCallID, res.Result, false))
			}
			appendBlocks(anthropic.MessageParamRoleUser, blocks)

		default:
			return "", nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}
	}

	return strings.Join(system, "\n\n"), result, nil
}

// convertToAnthropicTools converts tool definitions to Anthropic tool params
func convertToAnthropicTools(defs []llm.ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		if def.Function == nil {
			continue
		}

		var required []string
		switch r := def.Function.Parameters["required"].(type) {
		case []string:
			required = r
		case []any:
			for _, v := range r {
				if s, ok := v.(string); ok {
					required = append(required, s)
				}
			}
		}

		param := anthropic.ToolParam{
			Name:        def.Function.Name,
			Description: anthropic.String(def.Function.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: def.Function.Parameters["properties"],
				Required:   required,
			},
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &param})
	}
	return tools
}

// convertFromAnthropicResponse converts an Anthropic response to domain format.
func convertFromAnthropicResponse(msg *anthropic.Message) (*domainllm.GenerateResponse, error) {
	var text strings.Builder
	var toolCalls []domainllm.ToolCall

	for i, content := range msg.Content {
		switch content.Type {
		case "text":
			text.WriteString(content.Text)

		case "tool_use":
			input := map[string]any{}
			if len(content.Input) > 0 {
				if err := json.Unmarshal(content.Input, &input); err != nil {
					return nil, fmt.Errorf("content %d: invalid tool input: %w", i, err)
				}
			}
			toolCalls = append(toolCalls, domainllm.ToolCall{
				ID:    content.ID,
				Name:  content.Name,
				Input: input,
			})

		// Thinking and server tool blocks are not part of the turn model
		default:
			continue
		}
	}

	stopReason := string(msg.StopReason)

	return &domainllm.GenerateResponse{
		Text:         text.String(),
		ToolCalls:    toolCalls,
		Model:        string(msg.Model),
		ResponseID:   msg.ID,
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		StopReason:   stopReason,
		FinishReason: llm.FinishReasonFromStopReason(stopReason),
	}, nil
}
