package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatloop/internal/config"
	"chatloop/internal/repository/postgres"
)

var migrateDrop bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema",
	Long: `Apply the embedded Postgres schema for the configured TABLE_PREFIX.

The schema is idempotent. With --drop the tables are dropped instead
(refused when ENVIRONMENT=prod).

Examples:
  chatctl migrate
  ENVIRONMENT=test chatctl migrate --drop`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.StoreBackend != config.StorePostgres {
			return fmt.Errorf("migrate needs STORE_BACKEND=postgres, got %s", cfg.StoreBackend)
		}
		if migrateDrop && cfg.Environment == "prod" {
			return fmt.Errorf("refusing to drop tables in prod")
		}

		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		txm := postgres.NewTransactionManager(pool, newLogger())
		if migrateDrop {
			if err := postgres.Drop(ctx, pool, txm, cfg.TablePrefix); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dropped tables (prefix: %s)\n", cfg.TablePrefix)
			return nil
		}

		if err := postgres.Migrate(ctx, pool, txm, cfg.TablePrefix); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema applied (prefix: %s)\n", cfg.TablePrefix)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDrop, "drop", false, "Drop the tables instead of creating them")
	rootCmd.AddCommand(migrateCmd)
}
