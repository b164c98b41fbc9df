// Package memory keeps conversations and turns in process memory.
// Used by tests and by STORE_BACKEND=memory for local development.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatloop/internal/domain"
	llmModels "chatloop/internal/domain/models/llm"
	llmRepo "chatloop/internal/domain/repositories/llm"
)

// Store holds conversations and their append-only turn logs
type Store struct {
	mu            sync.RWMutex
	conversations map[string]llmModels.Conversation
	turns         map[string][]llmModels.Turn
	turnIDs       map[string]struct{}
	now           func() time.Time
}

var (
	_ llmRepo.TurnStore              = (*Store)(nil)
	_ llmRepo.ConversationRepository = (*Store)(nil)
)

// New creates an empty store
func New() *Store {
	return &Store{
		conversations: map[string]llmModels.Conversation{},
		turns:         map[string][]llmModels.Turn{},
		turnIDs:       map[string]struct{}{},
		now:           time.Now,
	}
}

// Create stores a conversation, filling ID and CreatedAt when empty.
// Returns a ConflictError if the ID is taken.
func (s *Store) Create(_ context.Context, conv *llmModels.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = s.now()
	}
	if _, ok := s.conversations[conv.ID]; ok {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("conversation %s already exists", conv.ID),
			ResourceType: "conversation",
			ResourceID:   conv.ID,
		}
	}
	s.conversations[conv.ID] = *conv
	return nil
}

// Get returns a conversation, or domain.ErrNotFound
func (s *Store) Get(_ context.Context, id string) (*llmModels.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	return &conv, nil
}

// Exists reports whether a conversation is stored
func (s *Store) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.conversations[id]
	return ok, nil
}

// List returns conversations newest first. Equal timestamps order by ID,
// descending, so repeated calls agree.
func (s *Store) List(_ context.Context, limit int) ([]llmModels.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]llmModels.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conv)
	}
	slices.SortFunc(out, func(a, b llmModels.Conversation) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Append stores a turn of an existing conversation, filling ID and CreatedAt
// when empty. Returns domain.ErrNotFound for an unknown conversation and a
// ConflictError for a duplicate turn ID.
func (s *Store) Append(_ context.Context, turn *llmModels.Turn) (*llmModels.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[turn.ConversationID]; !ok {
		return nil, fmt.Errorf("conversation %s: %w", turn.ConversationID, domain.ErrNotFound)
	}

	saved := cloneTurn(*turn)
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = s.now()
	}
	if _, ok := s.turnIDs[saved.ID]; ok {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("turn %s already exists", saved.ID),
			ResourceType: "turn",
			ResourceID:   saved.ID,
		}
	}

	s.turnIDs[saved.ID] = struct{}{}
	s.turns[saved.ConversationID] = append(s.turns[saved.ConversationID], saved)

	out := cloneTurn(saved)
	return &out, nil
}

// ListByConversation orders by CreatedAt; equal timestamps keep insertion order
func (s *Store) ListByConversation(_ context.Context, conversationID string) ([]llmModels.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.turns[conversationID]
	out := make([]llmModels.Turn, 0, len(stored))
	for _, t := range stored {
		out = append(out, cloneTurn(t))
	}
	slices.SortStableFunc(out, func(a, b llmModels.Turn) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func cloneTurn(t llmModels.Turn) llmModels.Turn {
	t.Parts = slices.Clone(t.Parts)
	if t.Metadata != nil {
		md := *t.Metadata
		t.Metadata = &md
	}
	return t
}
