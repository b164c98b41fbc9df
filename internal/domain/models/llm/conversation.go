package llm

import (
	"time"
)

// Conversation owns an ordered, append-only log of turns
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
