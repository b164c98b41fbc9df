package llm

import (
	"context"

	"chatloop/internal/domain/models/llm"
)

// ConversationRepository defines the interface for conversation data access
type ConversationRepository interface {
	// Create persists a new conversation. Fills ID and CreatedAt when empty.
	// Returns domain.ErrConflict if the ID is taken.
	Create(ctx context.Context, conv *llm.Conversation) error

	// Get retrieves a conversation by ID
	// Returns domain.ErrNotFound if not found
	Get(ctx context.Context, id string) (*llm.Conversation, error)

	// Exists reports whether a conversation with the given ID exists
	Exists(ctx context.Context, id string) (bool, error)

	// List returns conversations newest first, at most limit of them.
	// A limit of zero or less returns every conversation.
	List(ctx context.Context, limit int) ([]llm.Conversation, error)
}
