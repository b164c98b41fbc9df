package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"chatloop/internal/config"
	"chatloop/internal/repository"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "chatctl",
	Short:         "Operate the chat backend's storage",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
}

// newLogger logs to stderr with -v, otherwise discards; stdout carries command output
func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// loadConfig reads and validates the storage part of the configuration
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if cfg.StoreBackend == config.StorePostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the postgres backend")
	}
	return cfg, nil
}

// openStores opens the configured backend
func openStores(ctx context.Context) (*config.Config, *repository.Stores, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	stores, err := repository.Open(ctx, cfg, newLogger())
	if err != nil {
		return nil, nil, err
	}
	return cfg, stores, nil
}
