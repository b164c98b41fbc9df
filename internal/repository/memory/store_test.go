package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatloop/internal/domain"
	llmModels "chatloop/internal/domain/models/llm"
)

func TestStore_ConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	conv := &llmModels.Conversation{}
	require.NoError(t, s.Create(ctx, conv))
	assert.NotEmpty(t, conv.ID)
	assert.False(t, conv.CreatedAt.IsZero())

	ok, err := s.Exists(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.Create(ctx, &llmModels.Conversation{ID: conv.ID})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, &llmModels.Conversation{ID: "c1"}))

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for _, tt := range []struct {
		id string
		at time.Time
	}{
		{"late", base.Add(time.Minute)},
		{"tie-a", base},
		{"tie-b", base},
		{"early", base.Add(-time.Minute)},
	} {
		_, err := s.Append(ctx, &llmModels.Turn{ID: tt.id, ConversationID: "c1", Role: llmModels.RoleUser, CreatedAt: tt.at})
		require.NoError(t, err)
	}

	turns, err := s.ListByConversation(ctx, "c1")
	require.NoError(t, err)

	ids := make([]string, len(turns))
	for i, turn := range turns {
		ids[i] = turn.ID
	}
	assert.Equal(t, []string{"early", "tie-a", "tie-b", "late"}, ids)

	empty, err := s.ListByConversation(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_AppendRules(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Append(ctx, &llmModels.Turn{ConversationID: "nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Create(ctx, &llmModels.Conversation{ID: "c1"}))

	saved, err := s.Append(ctx, &llmModels.Turn{ConversationID: "c1", Text: "hi"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	_, err = s.Append(ctx, &llmModels.Turn{ID: saved.ID, ConversationID: "c1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, &llmModels.Conversation{ID: "c1"}))

	turn := &llmModels.Turn{ID: "t1", ConversationID: "c1", Parts: llmModels.Parts{llmModels.TextPart{Text: "a"}}}
	_, err := s.Append(ctx, turn)
	require.NoError(t, err)

	turn.Parts[0] = llmModels.TextPart{Text: "mutated"}

	turns, err := s.ListByConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, llmModels.TextPart{Text: "a"}, turns[0].Parts[0])
}

func TestStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Create(ctx, &llmModels.Conversation{ID: "old", CreatedAt: base}))
	require.NoError(t, s.Create(ctx, &llmModels.Conversation{ID: "new", CreatedAt: base.Add(2 * time.Hour)}))
	require.NoError(t, s.Create(ctx, &llmModels.Conversation{ID: "mid", CreatedAt: base.Add(time.Hour)}))

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, c := range all {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids)

	limited, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "new", limited[0].ID)
	assert.Equal(t, base.Add(2*time.Hour), limited[0].CreatedAt)

	empty, err := New().List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
