package openai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"chatloop/internal/domain/models/llm"
	domainllm "chatloop/internal/domain/services/llm"
)

// convertToOpenAIMessages converts domain messages to chat completion messages.
// Each tool result becomes its own tool message.
func convertToOpenAIMessages(messages []domainllm.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for i, msg := range messages {
		switch msg.Role {
		case domainllm.MessageRoleSystem:
			result = append(result, openai.SystemMessage(msg.Text))

		case domainllm.MessageRoleUser:
			result = append(result, openai.UserMessage(msg.Text))

		case domainllm.MessageRoleAssistant:
			if len(msg.ToolCalls) == 0 {
				result = append(result, openai.AssistantMessage(msg.Text))
				continue
			}

			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				input := call.Input
				if input == nil {
					input = map[string]any{}
				}
				args, err := json.Marshal(input)
				if err != nil {
					return nil, fmt.Errorf("message %d: tool call %s: %w", i, call.ID, err)
				}
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}

			assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
			if msg.Text != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(msg.Text)}
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})

		case domainllm.MessageRoleTool:
			for _, res := range msg.ToolResults {
				result = append(result, openai.ToolMessage(res.Result, res.ToolCallID))
			}

		default:
			return nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}
	}

	return result, nil
}

// convertToOpenAITools converts tool definitions to function tools
func convertToOpenAITools(defs []llm.ToolDefinition) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		if def.Function == nil {
			continue
		}
		fn := shared.FunctionDefinitionParam{
			Name:       def.Function.Name,
			Parameters: shared.FunctionParameters(def.Function.Parameters),
		}
		if def.Function.Description != "" {
			fn.Description = openai.String(def.Function.Description)
		}
		tools = append(tools, openai.ChatCompletionToolParam{Function: fn})
	}
	return tools
}

// convertFromOpenAIResponse converts the first choice of a completion
func convertFromOpenAIResponse(completion *openai.ChatCompletion) (*domainllm.GenerateResponse, error) {
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("completion %s has no choices", completion.ID)
	}
	choice := completion.Choices[0]

	var toolCalls []domainllm.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		input, err := parseArguments(tc.Function.Arguments)
		if err != nil {
			return nil, fmt.Errorf("tool call %s: %w", tc.ID, err)
		}
		toolCalls = append(toolCalls, domainllm.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}

	stopReason := string(choice.FinishReason)

	resp := &domainllm.GenerateResponse{
		Text:         choice.Message.Content,
		ToolCalls:    toolCalls,
		Model:        completion.Model,
		ResponseID:   completion.ID,
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
		StopReason:   stopReason,
		FinishReason: llm.FinishReasonFromStopReason(stopReason),
	}
	if completion.Created > 0 {
		resp.CreatedAt = time.Unix(completion.Created, 0).UTC()
	}
	return resp, nil
}

// parseArguments decodes tool call arguments. Models sometimes emit
// truncated or single-quoted JSON, which is repaired before giving up.
func parseArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}

	err := json.Unmarshal([]byte(raw), &args)
	if err == nil {
		return args, nil
	}
	if _, ok := err.(*json.SyntaxError); !ok {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	fixed, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	args = map[string]any{}
	if err := json.Unmarshal([]byte(fixed), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments after repair: %w", err)
	}
	return args, nil
}
