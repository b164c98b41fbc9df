package llm

import (
	"context"

	"chatloop/internal/domain/models/llm"
)

// TurnReader defines read operations for turn data access
type TurnReader interface {
	// ListByConversation returns every turn of a conversation ordered by
	// created_at ascending, ties broken by insertion order.
	// Returns an empty slice if the conversation has no turns.
	ListByConversation(ctx context.Context, conversationID string) ([]llm.Turn, error)
}
