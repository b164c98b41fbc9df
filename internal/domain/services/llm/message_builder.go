package llm

import (
	"context"

	"chatloop/internal/domain/models/llm"
)

// MessageBuilder builds LLM messages from conversation history.
type MessageBuilder interface {
	// BuildMessages converts turns, ordered oldest first, into provider messages.
	BuildMessages(ctx context.Context, history []llm.Turn) ([]Message, error)
}
