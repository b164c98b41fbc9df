package llm

import (
	"context"
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

// PostgresConversationRepository implements the ConversationRepository interface using PostgreSQL
type PostgresConversationRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewConversationRepository creates a new PostgresConversationRepository
func NewConversationRepository(config *postgres.RepositoryConfig) llmRepo.ConversationRepository {
	return &PostgresConversationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a new conversation
func (r *PostgresConversationRepository) Create(ctx context.Context, conv *llmModels.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, created_at)
		VALUES ($1, $2)
		RETURNING created_at
	`, r.tables.Conversations)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, conv.ID, conv.CreatedAt).Scan(&conv.CreatedAt)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("conversation %s already exists", conv.ID),
				ResourceType: "conversation",
				ResourceID:   conv.ID,
			}
		}
		return fmt.Errorf("create conversation: %w", err)
	}

	return nil
}

// Get retrieves a conversation by ID
func (r *PostgresConversationRepository) Get(ctx context.Context, id string) (*llmModels.Conversation, error) {
	query := fmt.Sprintf(`SELECT id, created_at FROM %s WHERE id = $1`, r.tables.Conversations)

	var conv llmModels.Conversation
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&conv.ID, &conv.CreatedAt); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return &conv, nil
}

// Exists checks if a conversation exists
func (r *PostgresConversationRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, r.tables.Conversations)

	var exists bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check conversation: %w", err)
	}

	return exists, nil
}

// List returns conversations newest first; limit <= 0 returns all of them
func (r *PostgresConversationRepository) List(ctx context.Context, limit int) ([]llmModels.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, created_at
		FROM %s
		ORDER BY created_at DESC, id DESC
	`, r.tables.Conversations)

	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	convs := make([]llmModels.Conversation, 0)
	for rows.Next() {
		var conv llmModels.Conversation
		if err := rows.Scan(&conv.ID, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	return convs, nil
}
