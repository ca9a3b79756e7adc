package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/integhra/ragstore"
	"github.com/integhra/ragstore/application/service"
	"github.com/integhra/ragstore/internal/log"
	"github.com/spf13/cobra"
)

func syncCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull changes from the production API",
		Long: `Pull records changed since the last run from the production API and
upsert them.

Requires SYNC_API_BASE_URL and SYNC_API_TOKEN to be configured, and a
previous bulk ingest to establish the baseline timestamp.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")

	return cmd
}

func runSync(ctx context.Context, envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	if !cfg.Sync().IsConfigured() {
		return errors.New("sync api not configured: set SYNC_API_BASE_URL")
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.New(cfg)

	opts := append(clientOptions(cfg), ragstore.WithLogger(logger))
	client, err := ragstore.New(opts...)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close client", slog.Any("error", err))
		}
	}()

	stats, err := client.Ingest.Sync(ctx)
	if err != nil {
		if errors.Is(err, service.ErrSyncNotInitialized) {
			return fmt.Errorf("%w (use 'ragstore ingest' to establish a baseline)", err)
		}
		return fmt.Errorf("sync: %w", err)
	}

	fmt.Printf("Synced %d records (%d products, %d offers, %d skipped)\n",
		stats.Stored, stats.Products, stats.Offers, stats.Skipped)
	return nil
}
