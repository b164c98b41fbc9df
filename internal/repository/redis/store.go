// Package redis stores conversations and turn logs in Redis.
//
// Layout, all keys under the configured prefix:
//
//	<prefix>conversation:<id>        created_at (RFC 3339, nanoseconds)
//	<prefix>conversation:<id>:turns  list of JSON-encoded turns, append order
//	<prefix>turn-ids                 set of every stored turn id
//	<prefix>conversations            sorted set of conversation ids, scored by created_at (µs)
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"chatloop/internal/domain"
	llmModels "chatloop/internal/domain/models/llm"
	llmRepo "chatloop/internal/domain/repositories/llm"
)

// appendScript checks the conversation and the turn id, then appends, atomically.
// Returns 0 on success, -1 for an unknown conversation, -2 for a duplicate turn id.
var appendScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
if redis.call("SADD", KEYS[3], ARGV[1]) == 0 then
	return -2
end
redis.call("RPUSH", KEYS[2], ARGV[2])
return 0
`)

// createScript sets the conversation key only if absent and indexes it.
// Returns 1 when created, 0 when the id is taken.
var createScript = redis.NewScript(`
if redis.call("SET", KEYS[1], ARGV[1], "NX") then
	redis.call("ZADD", KEYS[2], ARGV[2], ARGV[3])
	return 1
end
return 0
`)

// Store implements TurnStore and ConversationRepository on a Redis client
type Store struct {
	rdb    redis.UniversalClient
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

var (
	_ llmRepo.TurnStore              = (*Store)(nil)
	_ llmRepo.ConversationRepository = (*Store)(nil)
)

// New creates a Store. prefix separates environments sharing one Redis.
func New(rdb redis.UniversalClient, prefix string, logger *slog.Logger) *Store {
	return &Store{
		rdb:    rdb,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}
}

// Connect parses a redis:// URL and verifies the server answers
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rdb, nil
}

func (s *Store) conversationKey(id string) string {
	return s.prefix + "conversation:" + id
}

func (s *Store) turnsKey(conversationID string) string {
	return s.conversationKey(conversationID) + ":turns"
}

func (s *Store) turnIDsKey() string {
	return s.prefix + "turn-ids"
}

func (s *Store) conversationsKey() string {
	return s.prefix + "conversations"
}

// Create stores a conversation and adds it to the created_at index, filling
// ID and CreatedAt when empty. Returns a ConflictError if the ID is taken.
func (s *Store) Create(ctx context.Context, conv *llmModels.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = s.now()
	}

	keys := []string{s.conversationKey(conv.ID), s.conversationsKey()}
	created, err := createScript.Run(ctx, s.rdb, keys,
		conv.CreatedAt.Format(time.RFC3339Nano),
		conv.CreatedAt.UnixMicro(),
		conv.ID,
	).Int()
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	if created == 0 {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("conversation %s already exists", conv.ID),
			ResourceType: "conversation",
			ResourceID:   conv.ID,
		}
	}
	return nil
}

// Get returns a conversation, or domain.ErrNotFound
func (s *Store) Get(ctx context.Context, id string) (*llmModels.Conversation, error) {
	raw, err := s.rdb.Get(ctx, s.conversationKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("conversation %s created_at: %w", id, err)
	}
	return &llmModels.Conversation{ID: id, CreatedAt: createdAt}, nil
}

// Exists reports whether a conversation key is present
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.conversationKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check conversation: %w", err)
	}
	return n == 1, nil
}

// List reads the created_at index newest first. Equal scores order by id,
// descending.
func (s *Store) List(ctx context.Context, limit int) ([]llmModels.Conversation, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	ids, err := s.rdb.ZRevRange(ctx, s.conversationsKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if len(ids) == 0 {
		return []llmModels.Conversation{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.conversationKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}

	out := make([]llmModels.Conversation, 0, len(ids))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			s.logger.Warn("conversation index entry without key", "conversation_id", ids[i])
			continue
		}
		createdAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("conversation %s created_at: %w", ids[i], err)
		}
		out = append(out, llmModels.Conversation{ID: ids[i], CreatedAt: createdAt})
	}
	return out, nil
}

// Append pushes a turn onto its conversation's list after checking that the
// conversation exists and the turn id is new, in one script call.
func (s *Store) Append(ctx context.Context, turn *llmModels.Turn) (*llmModels.Turn, error) {
	saved := *turn
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = s.now()
	}

	payload, err := json.Marshal(saved)
	if err != nil {
		return nil, fmt.Errorf("marshal turn: %w", err)
	}

	keys := []string{
		s.conversationKey(saved.ConversationID),
		s.turnsKey(saved.ConversationID),
		s.turnIDsKey(),
	}
	code, err := appendScript.Run(ctx, s.rdb, keys, saved.ID, payload).Int()
	if err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}

	switch code {
	case -1:
		return nil, fmt.Errorf("conversation %s: %w", saved.ConversationID, domain.ErrNotFound)
	case -2:
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("turn %s already exists", saved.ID),
			ResourceType: "turn",
			ResourceID:   saved.ID,
		}
	}

	s.logger.Debug("turn appended",
		"conversation_id", saved.ConversationID,
		"turn_id", saved.ID,
		"role", saved.Role,
	)
	return &saved, nil
}

// ListByConversation orders by CreatedAt; equal timestamps keep list order
func (s *Store) ListByConversation(ctx context.Context, conversationID string) ([]llmModels.Turn, error) {
	raw, err := s.rdb.LRange(ctx, s.turnsKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	turns := make([]llmModels.Turn, 0, len(raw))
	for i, item := range raw {
		var turn llmModels.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("decode turn %d of conversation %s: %w", i, conversationID, err)
		}
		turns = append(turns, turn)
	}

	slices.SortStableFunc(turns, func(a, b llmModels.Turn) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return turns, nil
}
