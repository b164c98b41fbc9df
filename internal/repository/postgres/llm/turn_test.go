package llm

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"chatloop/internal/domain"
	llmModels "chatloop/internal/domain/models/llm"
	"chatloop/internal/repository/postgres"
)

// ============================================================================
// UNIT TESTS - JSONB encoding
// ============================================================================

func TestTurnJSON_RoundTrip(t *testing.T) {
	turn := &llmModels.Turn{
		ID:   "t1",
		Role: llmModels.RoleAssistant,
		Parts: llmModels.Parts{
			llmModels.ToolInvocationPart{ToolCallID: "c1", ToolName: "getWeather", State: llmModels.ToolStateCall, Args: map[string]any{"latitude": 1.5}},
		},
		Metadata: &llmModels.Metadata{
			FinishReason: llmModels.FinishReasonToolCalls,
			Usage:        &llmModels.Usage{PromptTokens: 3, CompletionTokens: 4},
		},
	}

	parts, metadata, err := encodeTurnJSON(turn)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var decoded llmModels.Turn
	if err := decodeTurnJSON(&decoded, parts, metadata); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(decoded.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(decoded.Parts))
	}
	call, ok := decoded.Parts[0].(llmModels.ToolInvocationPart)
	if !ok || call.ToolCallID != "c1" || call.State != llmModels.ToolStateCall {
		t.Errorf("unexpected part: %#v", decoded.Parts[0])
	}
	if decoded.FinishReasonOrDefault() != llmModels.FinishReasonToolCalls {
		t.Errorf("finish reason = %s", decoded.FinishReasonOrDefault())
	}
	if decoded.UsageOrZero().CompletionTokens != 4 {
		t.Errorf("usage = %+v", decoded.UsageOrZero())
	}
}

func TestTurnJSON_NilMetadataIsNull(t *testing.T) {
	parts, metadata, err := encodeTurnJSON(&llmModels.Turn{ID: "t1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(parts) != "[]" {
		t.Errorf("parts = %s, want []", parts)
	}
	if metadata != nil {
		t.Errorf("metadata = %s, want nil", metadata)
	}

	var decoded llmModels.Turn
	if err := decodeTurnJSON(&decoded, nil, nil); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Metadata != nil {
		t.Errorf("expected nil metadata")
	}
}

// ============================================================================
// INTEGRATION TESTS - require TEST_DATABASE_URL
// ============================================================================

func setupStores(t *testing.T) (*PostgresTurnStore, *PostgresConversationRepository) {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	prefix := "it_" + uuid.NewString()[:8] + "_"
	txm := postgres.NewTransactionManager(pool, logger)
	if err := postgres.Migrate(ctx, pool, txm, prefix); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		_ = postgres.Drop(context.Background(), pool, txm, prefix)
	})

	cfg := &postgres.RepositoryConfig{Pool: pool, Tables: postgres.NewTableNames(prefix), Logger: logger}
	return NewTurnStore(cfg).(*PostgresTurnStore), NewConversationRepository(cfg).(*PostgresConversationRepository)
}

func TestPostgresTurnStore_AppendAndList(t *testing.T) {
	turns, convs := setupStores(t)
	ctx := context.Background()

	conv := &llmModels.Conversation{}
	if err := convs.Create(ctx, conv); err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	// Same timestamp: insertion order must win
	at := time.Now().UTC().Truncate(time.Microsecond)
	for _, text := range []string{"first", "second", "third"} {
		if _, err := turns.Append(ctx, &llmModels.Turn{
			ConversationID: conv.ID,
			Role:           llmModels.RoleUser,
			Text:           text,
			Parts:          llmModels.Parts{llmModels.TextPart{Text: text}},
			CreatedAt:      at,
		}); err != nil {
			t.Fatalf("append %s: %v", text, err)
		}
	}

	listed, err := turns.ListByConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(listed))
	}
	for i, want := range []string{"first", "second", "third"} {
		if listed[i].Text != want {
			t.Errorf("turn %d = %q, want %q", i, listed[i].Text, want)
		}
	}
}

func TestPostgresTurnStore_Errors(t *testing.T) {
	turns, convs := setupStores(t)
	ctx := context.Background()

	_, err := turns.Append(ctx, &llmModels.Turn{ConversationID: "missing", Role: llmModels.RoleUser})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown conversation: got %v, want ErrNotFound", err)
	}

	conv := &llmModels.Conversation{}
	if err := convs.Create(ctx, conv); err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	turn := &llmModels.Turn{ID: uuid.NewString(), ConversationID: conv.ID, Role: llmModels.RoleUser}
	if _, err := turns.Append(ctx, turn); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := turns.Append(ctx, turn); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate turn: got %v, want ErrConflict", err)
	}
	if err := convs.Create(ctx, &llmModels.Conversation{ID: conv.ID}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("duplicate conversation: got %v, want ErrConflict", err)
	}

	exists, err := convs.Exists(ctx, conv.ID)
	if err != nil || !exists {
		t.Errorf("Exists = %v, %v", exists, err)
	}
}

func TestPostgresConversationRepository_ListNewestFirst(t *testing.T) {
	_, convs := setupStores(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	for _, c := range []struct {
		id string
		at time.Time
	}{
		{"old", base},
		{"new", base.Add(2 * time.Hour)},
		{"mid", base.Add(time.Hour)},
	} {
		if err := convs.Create(ctx, &llmModels.Conversation{ID: c.id, CreatedAt: c.at}); err != nil {
			t.Fatalf("create %s: %v", c.id, err)
		}
	}

	all, err := convs.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var ids []string
	for _, c := range all {
		ids = append(ids, c.ID)
	}
	if strings.Join(ids, ",") != "new,mid,old" {
		t.Errorf("order = %v, want [new mid old]", ids)
	}

	limited, err := convs.List(ctx, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].ID != "new" {
		t.Errorf("limited = %+v, want new then mid", limited)
	}
}
