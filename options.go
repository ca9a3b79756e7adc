package ragstore

import (
	"io"
	"log/slog"

	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/internal/config"
)

// databaseType identifies the database.
type databaseType int

const (
	databaseUnset databaseType = iota
	databaseSQLite
	databasePostgres
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	database    databaseType
	dbPath      string
	dbDSN       string
	dataDir     string
	modelDir    string
	embedding   config.EmbeddingConfig
	sync        config.SyncConfig
	index       config.IndexConfig
	searchLimit int
	ingestBatch int
	embedder    embedding.Embedder
	logger      *slog.Logger
	closers     []io.Closer
}

// newClientConfig creates a clientConfig with defaults from internal/config.
// This ensures all defaults come from the single source of truth.
func newClientConfig() *clientConfig {
	return &clientConfig{
		dataDir:     config.DefaultDataDir(),
		embedding:   config.NewEmbeddingConfig(),
		sync:        config.NewSyncConfig(),
		index:       config.NewIndexConfig(),
		searchLimit: config.DefaultSearchLimit,
		ingestBatch: config.DefaultIngestBatchSize,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite configures SQLite as the database. Vectors are stored as JSON
// and ranked in memory; suited to development and tests.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.database = databaseSQLite
		c.dbPath = path
	}
}

// WithPostgres configures PostgreSQL as the database. The pgvector
// extension is installed on first use.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.database = databasePostgres
		c.dbDSN = dsn
	}
}

// WithOpenAI configures an OpenAI-compatible embeddings endpoint with the
// given API key.
func WithOpenAI(apiKey string) Option {
	return func(c *clientConfig) {
		c.embedding = config.NewEmbeddingConfigWithOptions(
			config.WithProvider(config.ProviderOpenAI),
			config.WithAPIKey(apiKey),
		)
	}
}

// WithEmbeddingConfig sets the full embedding provider configuration.
func WithEmbeddingConfig(cfg config.EmbeddingConfig) Option {
	return func(c *clientConfig) {
		c.embedding = cfg
	}
}

// WithEmbedder sets a custom embedding provider. Takes precedence over
// WithOpenAI and WithEmbeddingConfig.
func WithEmbedder(e embedding.Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithSyncConfig sets the incremental sync configuration. Sync stays
// disabled until a base URL is configured.
func WithSyncConfig(cfg config.SyncConfig) Option {
	return func(c *clientConfig) {
		c.sync = cfg
	}
}

// WithIndexConfig sets the deferred vector index configuration.
func WithIndexConfig(cfg config.IndexConfig) Option {
	return func(c *clientConfig) {
		c.index = cfg
	}
}

// WithDataDir sets the data directory for the sync state file, model cache,
// and default SQLite database location.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}

// WithModelDir sets the directory where local model files are stored.
// Defaults to {dataDir}/models if not specified.
func WithModelDir(dir string) Option {
	return func(c *clientConfig) {
		c.modelDir = dir
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithSearchLimit sets the default search result limit.
// Values <= 0 are ignored.
func WithSearchLimit(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.searchLimit = n
		}
	}
}

// WithIngestBatchSize sets the embed-and-upsert batch size for ingestion.
// Values <= 0 are ignored.
func WithIngestBatchSize(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.ingestBatch = n
		}
	}
}

// WithCloser registers a resource to be closed when the Client shuts down.
func WithCloser(closer io.Closer) Option {
	return func(c *clientConfig) {
		c.closers = append(c.closers, closer)
	}
}
