package streaming

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	llmModels "chatloop/internal/domain/models/llm"
	llmSvc "chatloop/internal/domain/services/llm"
)

var _ llmSvc.TurnBuilder = (*Builder)(nil)

// Builder turns one provider result into the assistant turns to persist:
// a text turn when the model produced text, then one turn per resolved tool
// call, in the order the provider returned them.
type Builder struct {
	newID func() string
	now   func() time.Time
}

// NewBuilder creates a builder with random turn ids and wall-clock timestamps
func NewBuilder() *Builder {
	return &Builder{
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Build implements llmSvc.TurnBuilder
func (b *Builder) Build(result *llmSvc.ProviderResult, conversationID string) []*llmModels.Turn {
	if result == nil {
		return nil
	}

	turns := make([]*llmModels.Turn, 0, len(result.ToolResults)+1)

	if result.Text != "" {
		turn := b.newTurn(conversationID, result)
		turn.Text = result.Text
		turn.Parts = llmModels.Parts{llmModels.TextPart{Text: result.Text}}
		turns = append(turns, turn)
	}

	for i, res := range result.ToolResults {
		call := matchToolCall(result.ToolCalls, res, i)

		toolCallID := res.ToolCallID
		if toolCallID == "" {
			toolCallID = call.ID
		}
		if toolCallID == "" {
			toolCallID = b.newID()
		}

		toolName := call.Name
		if toolName == "" {
			toolName = res.ToolName
		}

		turn := b.newTurn(conversationID, result)
		turn.Parts = llmModels.Parts{
			llmModels.ToolInvocationPart{
				ToolCallID: toolCallID,
				ToolName:   toolName,
				State:      llmModels.ToolStateCall,
				Args:       call.Input,
			},
			llmModels.ToolInvocationPart{
				ToolCallID: toolCallID,
				ToolName:   res.ToolName,
				State:      llmModels.ToolStateResult,
				Result:     ParseToolResult(res.Result),
			},
		}
		turns = append(turns, turn)
	}

	return turns
}

func (b *Builder) newTurn(conversationID string, result *llmSvc.ProviderResult) *llmModels.Turn {
	usage := result.Usage
	return &llmModels.Turn{
		ID:             b.newID(),
		ConversationID: conversationID,
		Role:           llmModels.RoleAssistant,
		Parts:          llmModels.Parts{},
		Metadata: &llmModels.Metadata{
			FinishReason:         result.FinishReason,
			Usage:                &usage,
			ProviderResponseInfo: result.ResponseInfo,
		},
		CreatedAt: b.now(),
	}
}

// NewErrorTurn returns the terminal assistant turn reported when a step fails
func (b *Builder) NewErrorTurn(conversationID, message string) *llmModels.Turn {
	return &llmModels.Turn{
		ID:             b.newID(),
		ConversationID: conversationID,
		Role:           llmModels.RoleAssistant,
		Text:           message,
		Parts:          llmModels.Parts{llmModels.ErrorPart{Message: message}},
		Metadata: &llmModels.Metadata{
			FinishReason: llmModels.FinishReasonError,
			Usage:        &llmModels.Usage{},
		},
		CreatedAt: b.now(),
	}
}

// matchToolCall finds the call a result answers: by id when the result has
// one, otherwise by position.
func matchToolCall(calls []llmSvc.ToolCall, res llmSvc.ResolvedToolResult, index int) llmSvc.ToolCall {
	if res.ToolCallID != "" {
		for _, c := range calls {
			if c.ID == res.ToolCallID {
				return c
			}
		}
	}
	if index < len(calls) {
		return calls[index]
	}
	return llmSvc.ToolCall{Name: res.ToolName}
}

// ParseToolResult decodes a raw tool result when it is valid JSON and keeps
// the raw string otherwise. JSON null stays the string "null".
func ParseToolResult(raw string) any {
	if !json.Valid([]byte(raw)) {
		return raw
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	if v == nil {
		// A nil result reads back as absent; keep the text instead
		return raw
	}
	return v
}
