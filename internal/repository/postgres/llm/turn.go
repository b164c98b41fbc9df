package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatloop/internal/domain"
	llmModels "chatloop/internal/domain/models/llm"
	llmRepo "chatloop/internal/domain/repositories/llm"
	"chatloop/internal/repository/postgres"
)

// PostgresTurnStore implements the TurnStore interface using PostgreSQL.
// Rows carry a BIGSERIAL seq so turns sharing a created_at keep insertion order.
type PostgresTurnStore struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewTurnStore creates a new PostgresTurnStore
func NewTurnStore(config *postgres.RepositoryConfig) llmRepo.TurnStore {
	return &PostgresTurnStore{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Append inserts a turn. Parts and metadata are stored as JSONB.
func (r *PostgresTurnStore) Append(ctx context.Context, turn *llmModels.Turn) (*llmModels.Turn, error) {
	saved := *turn
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now()
	}

	parts, metadata, err := encodeTurnJSON(&saved)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, conversation_id, role, content, parts, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, r.tables.Turns)

	executor := postgres.GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		saved.ID,
		saved.ConversationID,
		string(saved.Role),
		saved.Text,
		parts,
		metadata, // nil becomes NULL
		saved.CreatedAt,
	).Scan(&saved.CreatedAt)
	if err != nil {
		switch {
		case postgres.IsPgForeignKeyError(err):
			return nil, fmt.Errorf("conversation %s: %w", saved.ConversationID, domain.ErrNotFound)
		case postgres.IsPgDuplicateError(err):
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("turn %s already exists", saved.ID),
				ResourceType: "turn",
				ResourceID:   saved.ID,
			}
		}
		return nil, fmt.Errorf("append turn: %w", err)
	}

	return &saved, nil
}

// ListByConversation returns turns ordered by created_at, then seq
func (r *PostgresTurnStore) ListByConversation(ctx context.Context, conversationID string) ([]llmModels.Turn, error) {
	query := fmt.Sprintf(`
		SELECT id, conversation_id, role, content, parts, metadata, created_at
		FROM %s
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC
	`, r.tables.Turns)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	turns := make([]llmModels.Turn, 0)
	for rows.Next() {
		turn, err := scanTurnRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, *turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	return turns, nil
}

// scanner is implemented by both pgx.Row and pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanTurnRow(row scanner) (*llmModels.Turn, error) {
	var (
		turn     llmModels.Turn
		role     string
		parts    []byte
		metadata []byte
	)
	if err := row.Scan(
		&turn.ID,
		&turn.ConversationID,
		&role,
		&turn.Text,
		&parts,
		&metadata,
		&turn.CreatedAt,
	); err != nil {
		return nil, err
	}
	turn.Role = llmModels.Role(role)

	if err := decodeTurnJSON(&turn, parts, metadata); err != nil {
		return nil, err
	}
	return &turn, nil
}

func encodeTurnJSON(turn *llmModels.Turn) (parts, metadata []byte, err error) {
	parts, err = json.Marshal(turn.Parts)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal parts: %w", err)
	}
	if turn.Metadata != nil {
		metadata, err = json.Marshal(turn.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal metadata: %w", err)
		}
	}
	return parts, metadata, nil
}

func decodeTurnJSON(turn *llmModels.Turn, parts, metadata []byte) error {
	if len(parts) > 0 {
		if err := json.Unmarshal(parts, &turn.Parts); err != nil {
			return fmt.Errorf("turn %s parts: %w", turn.ID, err)
		}
	}
	if len(metadata) > 0 {
		var md llmModels.Metadata
		if err := json.Unmarshal(metadata, &md); err != nil {
			return fmt.Errorf("turn %s metadata: %w", turn.ID, err)
		}
		turn.Metadata = &md
	}
	return nil
}
