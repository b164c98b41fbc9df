package llm

import (
	"context"

	"chatloop/internal/domain/models/llm"
)

// TurnWriter defines write operations for turn data access.
// Turns are append-only; there is no update or delete.
type TurnWriter interface {
	// Append persists a new turn and returns the committed copy.
	// Fills ID and CreatedAt when they are empty.
	// Returns domain.ErrConflict if a turn with the same ID already exists.
	Append(ctx context.Context, turn *llm.Turn) (*llm.Turn, error)
}
