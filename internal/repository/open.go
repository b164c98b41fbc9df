// Package repository selects and opens the configured storage backend.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"chatloop/internal/config"
	llmRepo "chatloop/internal/domain/repositories/llm"
	"chatloop/internal/repository/memory"
	"chatloop/internal/repository/postgres"
	postgresLLM "chatloop/internal/repository/postgres/llm"
	redisStore "chatloop/internal/repository/redis"
)

// Stores is an opened backend
type Stores struct {
	Conversations llmRepo.ConversationRepository
	Turns         llmRepo.TurnStore

	// Pool is set for the postgres backend only
	Pool *pgxpool.Pool

	closers []func()
}

// Close releases backend connections
func (s *Stores) Close() {
	for _, c := range s.closers {
		c()
	}
}

// Open connects to the backend named by cfg.StoreBackend
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Stores, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		}
		logger.Info("database connected", "backend", cfg.StoreBackend, "table_prefix", cfg.TablePrefix)
		return &Stores{
			Conversations: postgresLLM.NewConversationRepository(repoConfig),
			Turns:         postgresLLM.NewTurnStore(repoConfig),
			Pool:          pool,
			closers:       []func(){pool.Close},
		}, nil

	case config.StoreRedis:
		rdb, err := redisStore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		store := redisStore.New(rdb, cfg.TablePrefix, logger)
		logger.Info("redis connected", "backend", cfg.StoreBackend, "key_prefix", cfg.TablePrefix)
		return &Stores{
			Conversations: store,
			Turns:         store,
			closers: []func(){func() {
				if err := rdb.Close(); err != nil {
					logger.Warn("close redis", "error", err)
				}
			}},
		}, nil

	case config.StoreMemory:
		logger.Warn("using in-memory store, history is lost on restart")
		store := memory.New()
		return &Stores{Conversations: store, Turns: store}, nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
