package llm

import (
	"context"
	"time"

	"chatloop/internal/domain/models/llm"
)

// LLMProvider performs one inference call against a model backend.
// This abstraction allows supporting multiple providers (Anthropic, OpenAI, lorem)
// behind the single ProviderClient the step loop talks to.
type LLMProvider interface {
	// GenerateResponse runs one blocking inference call.
	GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Name returns the provider name (e.g., "anthropic", "openai")
	Name() string

	// SupportsModel returns true if the provider supports the given model.
	SupportsModel(model string) bool
}

// Message roles understood by providers
const (
	MessageRoleSystem    = "system"
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleTool      = "tool"
)

// GenerateRequest contains the parameters for an LLM generation request.
type GenerateRequest struct {
	// Messages is the conversation history, oldest first.
	Messages []Message

	// Model is the model identifier (e.g., "claude-haiku-4-5-20251001")
	Model string

	// Tools are offered to the model for this call.
	Tools []llm.ToolDefinition

	// MaxTokens caps the completion. Zero means provider default.
	MaxTokens int
}

// Message is one provider-neutral message.
//
// Assistant messages may carry ToolCalls. Tool messages carry ToolResults
// answering the calls of the preceding assistant message.
type Message struct {
	Role        string
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ResolvedToolResult
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID    string         `json:"id"`    // tool call id from the model
	Name  string         `json:"name"`  // tool name
	Input map[string]any `json:"input"` // tool arguments
}

// ToolResult is the outcome of executing one ToolCall.
type ToolResult struct {
	ID      string `json:"id"`       // matches ToolCall.ID
	Name    string `json:"name"`     // matches ToolCall.Name
	Result  any    `json:"result"`   // execution result (nil if error)
	Error   error  `json:"-"`        // execution error (nil if success)
	IsError bool   `json:"is_error"` // whether execution failed
}

// ResolvedToolResult is a tool result as handed back to the step loop and to
// the model: the raw payload string, usually JSON.
type ResolvedToolResult struct {
	ToolCallID string
	ToolName   string
	Result     string
}

// GenerateResponse contains the LLM provider's response.
type GenerateResponse struct {
	// Text is the concatenated text output.
	Text string

	// ToolCalls are the tool invocations requested by the model, in order.
	ToolCalls []ToolCall

	// Model is the model that was used (may differ from request if aliased)
	Model string

	// ResponseID is the provider's response identifier, if any.
	ResponseID string

	// CreatedAt is the provider's response timestamp, or zero.
	CreatedAt time.Time

	InputTokens  int
	OutputTokens int

	// StopReason is the provider's raw stop reason (e.g., "end_turn", "tool_calls")
	StopReason string

	// FinishReason is StopReason mapped to the common vocabulary.
	FinishReason llm.FinishReason
}

// ToolSet is the fixed tool registry passed to a provider round.
type ToolSet interface {
	// Definitions returns the tool schemas offered to the model, in registration order.
	Definitions() []llm.ToolDefinition

	// ExecuteParallel runs the calls and returns results in call order.
	ExecuteParallel(ctx context.Context, calls []ToolCall) []ToolResult
}

// ProviderResult is the structured outcome of one provider round.
// ToolResults are already resolved; ToolResults[i] answers ToolCalls[i].
type ProviderResult struct {
	Text         string
	ToolCalls    []ToolCall
	ToolResults  []ResolvedToolResult
	FinishReason llm.FinishReason
	Usage        llm.Usage
	ResponseInfo *llm.ResponseInfo
}

// ProviderClient performs one full provider round: inference plus execution of
// any tool calls the model requested.
type ProviderClient interface {
	// Run returns an error wrapping domain.ErrProviderFailure when the round fails.
	Run(ctx context.Context, history []llm.Turn, tools ToolSet) (*ProviderResult, error)
}
