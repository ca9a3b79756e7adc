package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/integhra/ragstore"
	"github.com/integhra/ragstore/infrastructure/persistence"
	"github.com/integhra/ragstore/internal/config"
	"github.com/integhra/ragstore/internal/log"
	"github.com/spf13/cobra"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the pgvector similarity index",
		Long: `Manage the ivfflat similarity index on the embeddings table.

The index is never created automatically: ivfflat clustering is only
meaningful once the table holds a representative corpus, so creation is
a deliberate step after bulk ingestion. Until then searches run as exact
sequential scans. PostgreSQL only.`,
	}

	cmd.AddCommand(indexStatusCmd())
	cmd.AddCommand(indexCreateCmd())

	return cmd
}

func indexStatusCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the similarity index state and row count",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), envFile, func(ctx context.Context, cfg config.AppConfig, client *ragstore.Client) error {
				status, err := client.Index.Status(ctx)
				if err != nil {
					return indexErr(err)
				}
				fmt.Printf("State: %s\nRows:  %d\n", status.State, status.Rows)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")

	return cmd
}

func indexCreateCmd() *cobra.Command {
	var (
		envFile string
		lists   int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the ivfflat similarity index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), envFile, func(ctx context.Context, cfg config.AppConfig, client *ragstore.Client) error {
				if lists <= 0 {
					lists = cfg.Index().Lists()
				}
				status, err := client.Index.Create(ctx, lists)
				if err != nil {
					return indexErr(err)
				}
				fmt.Printf("Index %s (%d rows)\n", status.State, status.Rows)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().IntVar(&lists, "lists", 0, "Number of ivfflat partitions (default: INDEX_LISTS)")

	return cmd
}

// withClient builds a client from configuration, runs fn, and closes the
// client. Shared by the index subcommands.
func withClient(ctx context.Context, envFile string, fn func(context.Context, config.AppConfig, *ragstore.Client) error) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
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

	return fn(ctx, cfg, client)
}

func indexErr(err error) error {
	if errors.Is(err, persistence.ErrVectorIndexUnsupported) {
		return errors.New("vector index requires PostgreSQL, set DB_URL to a postgres:// URL")
	}
	return err
}
