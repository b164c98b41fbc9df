package llm

import (
	"time"
)

// Role identifies who produced a turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleData is reserved for historical rows. No producer creates it.
	RoleData Role = "data"
)

// Turn is one persisted exchange unit of a conversation.
// Turns are append-only: once stored they are never mutated or deleted.
//
// Text is the flattened human-readable content and may be empty when all
// content lives in Parts (pure tool-call turns). When Parts is empty, Text is
// the sole content.
type Turn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           Role      `json:"role"`
	Text           string    `json:"content"`
	Parts          Parts     `json:"parts"`
	Metadata       *Metadata `json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Usage holds token counters reported by the provider for one round
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// ResponseInfo is provider response metadata (response id, model, timestamp)
type ResponseInfo struct {
	ID        string    `json:"id,omitempty"`
	Model     string    `json:"model,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Metadata is the optional structured record attached to assistant turns.
// FinishReason holds the provider-side value (Stop, ToolCalls, ...), not the wire value.
type Metadata struct {
	FinishReason         FinishReason  `json:"finishReason,omitempty"`
	Usage                *Usage        `json:"usage,omitempty"`
	ProviderResponseInfo *ResponseInfo `json:"providerResponseInfo,omitempty"`
}

// FinishReasonOrDefault returns the stored finish reason, or Stop when absent
func (t *Turn) FinishReasonOrDefault() FinishReason {
	if t.Metadata == nil || t.Metadata.FinishReason == "" {
		return FinishReasonStop
	}
	return t.Metadata.FinishReason
}

// UsageOrZero returns the stored usage, or zero counters when absent
func (t *Turn) UsageOrZero() Usage {
	if t.Metadata == nil || t.Metadata.Usage == nil {
		return Usage{}
	}
	return *t.Metadata.Usage
}
