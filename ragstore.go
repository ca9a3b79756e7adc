// Package ragstore provides a vector store for veterinary product search.
//
// ragstore ingests product catalogues from CSV exports or a production REST
// API, embeds their descriptions with a local ONNX model or an
// OpenAI-compatible endpoint, and stores the vectors in PostgreSQL with
// pgvector (or SQLite for development) for semantic search.
//
// Basic usage:
//
//	client, err := ragstore.New(
//	    ragstore.WithSQLite(".ragstore/ragstore.db"),
//	    ragstore.WithOpenAI(os.Getenv("EMBEDDING_API_KEY")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Bulk ingest from CSV sources
//	stats, err := client.Ingest.Bulk(ctx, "sources.yaml")
//
//	// Semantic search
//	results, err := client.Search.Query(ctx, "antiparasitario para gatos",
//	    service.WithLimit(5),
//	)
//
//	for _, r := range results {
//	    fmt.Println(r.Record().Content(), r.Score())
//	}
package ragstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/integhra/ragstore/application/service"
	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/infrastructure/etl"
	"github.com/integhra/ragstore/infrastructure/persistence"
	"github.com/integhra/ragstore/infrastructure/provider"
	"github.com/integhra/ragstore/internal/config"
	"github.com/integhra/ragstore/internal/database"
	"github.com/integhra/ragstore/internal/log"
)

// ErrNoDatabase is returned when no database option was provided.
var ErrNoDatabase = errors.New("no database configured: use WithSQLite or WithPostgres")

// Client is the main entry point for the ragstore library.
//
// Access services via struct fields:
//
//	client.Search.Query(ctx, "query")
//	client.Ingest.Bulk(ctx, "sources.yaml")
//	client.Index.Status(ctx)
type Client struct {
	// Public service fields (direct access)
	Search *service.Search
	Ingest *service.Ingest
	Health *service.Health

	// Store gives direct access to the embedding records.
	Store embedding.Store

	// Index manages the deferred pgvector index. Status and Create return
	// persistence.ErrVectorIndexUnsupported on SQLite.
	Index *persistence.VectorIndex

	db       database.Database
	embedder embedding.Embedder
	logger   *slog.Logger
	dataDir  string
	closers  []io.Closer
	closed   atomic.Bool
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.database == databaseUnset {
		return nil, ErrNoDatabase
	}

	logger := cfg.logger
	if logger == nil {
		logger = log.New(config.NewAppConfig())
	}

	if err := os.MkdirAll(cfg.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	embedder, err := buildEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	dbURL, err := buildDatabaseURL(cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store, err := buildStore(ctx, db, embedder.Dimension(), logger)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("create store: %w", err), errClose)
	}

	index := persistence.NewVectorIndex(db, cfg.index.MinRows(), logger)

	state := etl.NewSyncState(filepath.Join(cfg.dataDir, "last_sync.txt"))

	var api *etl.APIClient
	if cfg.sync.IsConfigured() {
		api = etl.NewAPIClient(cfg.sync, logger)
	}

	client := &Client{
		Store:    store,
		Index:    index,
		db:       db,
		embedder: embedder,
		logger:   logger,
		dataDir:  cfg.dataDir,
		closers:  cfg.closers,
	}

	client.Search = service.NewSearch(store, embedder, cfg.searchLimit, logger)
	client.Ingest = service.NewIngest(store, embedder, state, api, cfg.ingestBatch, cfg.embedding.Parallel(), logger)
	client.Health = service.NewHealth(db, store, logger)

	return client, nil
}

// Embedder returns the configured embedding provider.
func (c *Client) Embedder() embedding.Embedder { return c.embedder }

// Database returns the underlying database handle.
func (c *Client) Database() database.Database { return c.db }

// DataDir returns the data directory path.
func (c *Client) DataDir() string { return c.dataDir }

// Close releases the database connection and any registered resources.
// Safe to call more than once.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// buildEmbedder creates the embedding provider from configuration. A custom
// provider set via WithEmbedder takes precedence.
func buildEmbedder(cfg *clientConfig, logger *slog.Logger) (embedding.Embedder, error) {
	if cfg.embedder != nil {
		return cfg.embedder, nil
	}

	if cfg.embedding.Provider() == config.ProviderOpenAI {
		if cfg.embedding.APIKey() == "" && cfg.embedding.BaseURL() == "" {
			return nil, errors.New("openai embedding provider requires an API key or base URL")
		}
		return provider.NewOpenAIEmbedder(cfg.embedding), nil
	}

	modelDir := cfg.modelDir
	if modelDir == "" {
		modelDir = filepath.Join(cfg.dataDir, "models")
	}
	local := provider.NewLocalEmbedder(modelDir, cfg.embedding.Dimension())
	if !local.Available() {
		return nil, fmt.Errorf("no embedding model found in %s: run 'ragstore download-model' or configure an OpenAI-compatible endpoint", modelDir)
	}
	logger.Info("local embedding provider enabled", slog.String("model_dir", modelDir))
	return local, nil
}

// buildStore selects the vector store implementation for the database driver.
func buildStore(ctx context.Context, db database.Database, dimension int, logger *slog.Logger) (embedding.Store, error) {
	if db.IsPostgres() {
		return persistence.NewPostgresStore(ctx, db, dimension, logger)
	}
	return persistence.NewSQLiteStore(ctx, db, dimension, logger)
}

// buildDatabaseURL constructs the database URL from configuration.
func buildDatabaseURL(cfg *clientConfig) (string, error) {
	switch cfg.database {
	case databaseSQLite:
		return "sqlite:///" + cfg.dbPath, nil
	case databasePostgres:
		return cfg.dbDSN, nil
	default:
		return "", ErrNoDatabase
	}
}
