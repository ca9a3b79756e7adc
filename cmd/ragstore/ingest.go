package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/integhra/ragstore"
	"github.com/integhra/ragstore/internal/log"
	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	var (
		envFile  string
		manifest string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run a bulk ingest from CSV sources",
		Long: `Run a bulk ingest from the CSV sources listed in a manifest file.

The manifest is a YAML file naming the source CSVs. Only products is
required; the other sources enrich the product records when present:

  products: products.csv
  offers: offers.csv
  companies: companies.csv
  categories: categories.csv
  offer_products: offer_products.csv
  compendium: compendium.csv

Relative paths are resolved from the manifest's directory. A successful
run records its start time as the baseline for later incremental syncs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), envFile, manifest)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVar(&manifest, "manifest", "sources.yaml", "Path to the sources manifest")

	return cmd
}

func runIngest(ctx context.Context, envFile, manifest string) error {
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

	// Fail before parsing anything if the database is unreachable.
	if err := client.Health.Require(ctx); err != nil {
		return err
	}

	stats, err := client.Ingest.Bulk(ctx, manifest)
	if err != nil {
		return fmt.Errorf("bulk ingest: %w", err)
	}

	fmt.Printf("Ingested %d records (%d products, %d offers, %d companies, %d skipped)\n",
		stats.Stored, stats.Products, stats.Offers, stats.Companies, stats.Skipped)
	return nil
}
