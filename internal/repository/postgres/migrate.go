package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"chatloop/internal/domain/repositories"
)

//go:embed schema.sql
var schemaSQL string

// SchemaSQL renders the embedded schema for a table prefix
func SchemaSQL(prefix string) string {
	return strings.ReplaceAll(schemaSQL, "{{prefix}}", prefix)
}

// DropSQL drops every table the schema creates, children first
func DropSQL(tables *TableNames) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;\nDROP TABLE IF EXISTS %s CASCADE;\n",
		tables.Turns, tables.Conversations)
}

// Migrate applies the schema inside one transaction. Statements are idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool, txm repositories.TransactionManager, prefix string) error {
	return txm.ExecTx(ctx, func(ctx context.Context) error {
		if _, err := GetExecutor(ctx, pool).Exec(ctx, SchemaSQL(prefix)); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		return nil
	})
}

// Drop removes the schema tables for a prefix
func Drop(ctx context.Context, pool *pgxpool.Pool, txm repositories.TransactionManager, prefix string) error {
	return txm.ExecTx(ctx, func(ctx context.Context) error {
		if _, err := GetExecutor(ctx, pool).Exec(ctx, DropSQL(NewTableNames(prefix))); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
		return nil
	})
}
