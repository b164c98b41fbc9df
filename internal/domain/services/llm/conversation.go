package llm

import (
	"context"
	"time"

	"chatloop/internal/domain/models/llm"
)

// ConversationService handles conversation creation, message ingestion and
// history hydration. The step loop itself lives behind StepOrchestrator.
type ConversationService interface {
	// CreateConversation creates an empty conversation.
	CreateConversation(ctx context.Context) (*llm.Conversation, error)

	// GetConversation returns one conversation, or domain.ErrNotFound.
	GetConversation(ctx context.Context, conversationID string) (*llm.Conversation, error)

	// ListConversations returns conversations newest first. A limit outside
	// 1..MaxConversationListLimit is clamped.
	ListConversations(ctx context.Context, limit int) ([]llm.Conversation, error)

	// Exists reports whether the conversation exists.
	Exists(ctx context.Context, conversationID string) (bool, error)

	// Ingest appends client messages that are not yet stored, skipping any
	// whose ID is already present. Returns the newly appended turns.
	Ingest(ctx context.Context, conversationID string, messages []IncomingMessage) ([]llm.Turn, error)

	// Hydrate returns every turn of the conversation in client message shape.
	Hydrate(ctx context.Context, conversationID string) ([]HydratedMessage, error)
}

// IncomingMessage is one client-submitted message
type IncomingMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// HydratedMessage is a stored turn in the client SDK's message shape
type HydratedMessage struct {
	ID        string    `json:"id"`
	Role      llm.Role  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Parts     llm.Parts `json:"parts"`
}
