package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/integhra/ragstore"
	"github.com/integhra/ragstore/infrastructure/api"
	v1 "github.com/integhra/ragstore/infrastructure/api/v1"
	"github.com/integhra/ragstore/internal/config"
	"github.com/integhra/ragstore/internal/log"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                  Server host to bind to (default: 0.0.0.0)
  PORT                  Server port to listen on (default: 8080)
  DATA_DIR              Data directory (default: ~/.ragstore)
  DB_URL                Database URL (default: sqlite:///{data_dir}/ragstore.db)
  LOG_LEVEL             Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT            Log format: pretty, json (default: pretty)

  EMBEDDING_*           Embedding provider configuration
    PROVIDER            Backend: local, openai (default: local)
    BASE_URL            OpenAI-compatible endpoint base URL
    MODEL               Model identifier
    API_KEY             API key for authentication
    DIMENSION           Vector width, must match the model (default: 384)
    BATCH_SIZE          Texts per embedding call (default: 10)
    PARALLEL            Concurrent embedding batches (default: 4)

  SYNC_*                Incremental sync configuration
    API_BASE_URL        Production API base URL
    API_TOKEN           Production API token

  INDEX_*               Deferred vector index configuration
    LISTS               ivfflat partitions (default: 100)
    MIN_ROWS            Row count below which creation warns (default: 1000)

  SEARCH_LIMIT          Default search result limit (default: 5)
  INGEST_BATCH_SIZE     Upsert batch size for ingestion (default: 100)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	// Flags take precedence over env vars
	cfg = applyServeOverrides(cfg, host, port)

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.New(cfg)

	logger.Info("starting ragstore",
		slog.String("version", version),
		slog.String("addr", cfg.Addr()),
		slog.String("data_dir", cfg.DataDir()))

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

	server := api.NewServer(cfg.Addr(), logger)
	router := server.Router()

	router.Get("/healthz", api.HealthHandler(client.Health, logger))
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"name":"ragstore","version":"%s"}`, version)
	})

	router.Mount("/api/v1/search", v1.NewSearchRouter(client.Search, logger).Routes())
	router.Mount("/api/v1/embeddings", v1.NewEmbeddingsRouter(client.Store, logger).Routes())
	router.Mount("/api/v1/index", v1.NewIndexRouter(client.Index, cfg.Index().Lists(), logger).Routes())

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("shutting down server")
		cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	logger.Info("starting server", slog.String("addr", server.Addr()))
	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
