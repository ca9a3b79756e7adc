// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Default configuration values.
const (
	DefaultHost               = "0.0.0.0"
	DefaultPort               = 8080
	DefaultLogLevel           = "INFO"
	DefaultSearchLimit        = 5
	DefaultEmbeddingModel     = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultEmbeddingDimension = 384
	DefaultEmbeddingBatchSize = 10
	DefaultEmbeddingParallel  = 4
	DefaultEmbeddingTimeout   = 60 * time.Second
	DefaultEmbeddingRetries   = 5
	DefaultIngestBatchSize    = 100
	DefaultSyncTimeout        = 30 * time.Second
	DefaultSyncRetries        = 3
	DefaultSyncProductsPath   = "/products/"
	DefaultSyncOffersPath     = "/offers/"
	DefaultIndexLists         = 100
	DefaultIndexMinRows       = 1000
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// EmbeddingProvider selects how embedding vectors are produced.
type EmbeddingProvider string

// EmbeddingProvider values.
const (
	// ProviderLocal runs an ONNX model in-process.
	ProviderLocal EmbeddingProvider = "local"
	// ProviderOpenAI calls an OpenAI-compatible embeddings endpoint.
	ProviderOpenAI EmbeddingProvider = "openai"
)

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	provider   EmbeddingProvider
	baseURL    string
	model      string
	apiKey     string
	dimension  int
	batchSize  int
	parallel   int
	timeout    time.Duration
	maxRetries int
}

// NewEmbeddingConfig creates an EmbeddingConfig with defaults.
func NewEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		provider:   ProviderLocal,
		model:      DefaultEmbeddingModel,
		dimension:  DefaultEmbeddingDimension,
		batchSize:  DefaultEmbeddingBatchSize,
		parallel:   DefaultEmbeddingParallel,
		timeout:    DefaultEmbeddingTimeout,
		maxRetries: DefaultEmbeddingRetries,
	}
}

// Provider returns the configured provider kind.
func (e EmbeddingConfig) Provider() EmbeddingProvider { return e.provider }

// BaseURL returns the endpoint base URL (openai provider only).
func (e EmbeddingConfig) BaseURL() string { return e.baseURL }

// Model returns the embedding model identifier.
func (e EmbeddingConfig) Model() string { return e.model }

// APIKey returns the endpoint API key.
func (e EmbeddingConfig) APIKey() string { return e.apiKey }

// Dimension returns the expected vector width. Producers must match it
// exactly; swapping the embedding model changes this value.
func (e EmbeddingConfig) Dimension() int { return e.dimension }

// BatchSize returns the number of texts per embedding call.
func (e EmbeddingConfig) BatchSize() int { return e.batchSize }

// Parallel returns the number of concurrent embedding batches.
func (e EmbeddingConfig) Parallel() int { return e.parallel }

// Timeout returns the request timeout.
func (e EmbeddingConfig) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e EmbeddingConfig) MaxRetries() int { return e.maxRetries }

// EmbeddingOption is a functional option for EmbeddingConfig.
type EmbeddingOption func(*EmbeddingConfig)

// WithProvider sets the provider kind.
func WithProvider(p EmbeddingProvider) EmbeddingOption {
	return func(e *EmbeddingConfig) { e.provider = p }
}

// WithBaseURL sets the endpoint base URL.
func WithBaseURL(url string) EmbeddingOption {
	return func(e *EmbeddingConfig) { e.baseURL = url }
}

// WithModel sets the embedding model.
func WithModel(model string) EmbeddingOption {
	return func(e *EmbeddingConfig) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EmbeddingOption {
	return func(e *EmbeddingConfig) { e.apiKey = key }
}

// WithDimension sets the expected vector width.
func WithDimension(d int) EmbeddingOption {
	return func(e *EmbeddingConfig) { e.dimension = d }
}

// WithBatchSize sets the embedding batch size.
func WithBatchSize(n int) EmbeddingOption {
	return func(e *EmbeddingConfig) { e.batchSize = n }
}

// WithParallel sets the number of concurrent embedding batches.
func WithParallel(n int) EmbeddingOption {
	return func(e *EmbeddingConfig) { e.parallel = n }
}

// WithEmbeddingTimeout sets the request timeout.
func WithEmbeddingTimeout(d time.Duration) EmbeddingOption {
	return func(e *EmbeddingConfig) { e.timeout = d }
}

// WithEmbeddingRetries sets the maximum retry count.
func WithEmbeddingRetries(n int) EmbeddingOption {
	return func(e *EmbeddingConfig) { e.maxRetries = n }
}

// NewEmbeddingConfigWithOptions creates an EmbeddingConfig with functional options.
func NewEmbeddingConfigWithOptions(opts ...EmbeddingOption) EmbeddingConfig {
	e := NewEmbeddingConfig()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// SyncConfig configures the incremental sync against the production API.
type SyncConfig struct {
	baseURL      string
	token        string
	productsPath string
	offersPath   string
	timeout      time.Duration
	maxRetries   int
}

// NewSyncConfig creates a SyncConfig with defaults.
func NewSyncConfig() SyncConfig {
	return SyncConfig{
		productsPath: DefaultSyncProductsPath,
		offersPath:   DefaultSyncOffersPath,
		timeout:      DefaultSyncTimeout,
		maxRetries:   DefaultSyncRetries,
	}
}

// BaseURL returns the production API base URL.
func (s SyncConfig) BaseURL() string { return s.baseURL }

// Token returns the API bearer token.
func (s SyncConfig) Token() string { return s.token }

// ProductsPath returns the products endpoint path.
func (s SyncConfig) ProductsPath() string { return s.productsPath }

// OffersPath returns the offers endpoint path.
func (s SyncConfig) OffersPath() string { return s.offersPath }

// Timeout returns the request timeout.
func (s SyncConfig) Timeout() time.Duration { return s.timeout }

// MaxRetries returns the maximum retry count.
func (s SyncConfig) MaxRetries() int { return s.maxRetries }

// IsConfigured reports whether the sync API is reachable per configuration.
func (s SyncConfig) IsConfigured() bool { return s.baseURL != "" }

// IndexConfig configures the deferred vector index.
type IndexConfig struct {
	lists   int
	minRows int64
}

// NewIndexConfig creates an IndexConfig with defaults.
func NewIndexConfig() IndexConfig {
	return IndexConfig{
		lists:   DefaultIndexLists,
		minRows: DefaultIndexMinRows,
	}
}

// Lists returns the number of ivfflat partitions.
func (i IndexConfig) Lists() int { return i.lists }

// MinRows returns the row count below which index creation warns about
// poor partition quality.
func (i IndexConfig) MinRows() int64 { return i.minRows }

// AppConfig holds the main application configuration.
type AppConfig struct {
	host        string
	port        int
	dataDir     string
	dbURL       string
	logLevel    string
	logFormat   LogFormat
	embedding   EmbeddingConfig
	sync        SyncConfig
	index       IndexConfig
	searchLimit int
	ingestBatch int
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ragstore"
	}
	return filepath.Join(home, ".ragstore")
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:        DefaultHost,
		port:        DefaultPort,
		dataDir:     dataDir,
		dbURL:       "sqlite:///" + filepath.Join(dataDir, "ragstore.db"),
		logLevel:    DefaultLogLevel,
		logFormat:   LogFormatPretty,
		embedding:   NewEmbeddingConfig(),
		sync:        NewSyncConfig(),
		index:       NewIndexConfig(),
		searchLimit: DefaultSearchLimit,
		ingestBatch: DefaultIngestBatchSize,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// Embedding returns the embedding provider config.
func (c AppConfig) Embedding() EmbeddingConfig { return c.embedding }

// Sync returns the incremental sync config.
func (c AppConfig) Sync() SyncConfig { return c.sync }

// Index returns the deferred vector index config.
func (c AppConfig) Index() IndexConfig { return c.index }

// SearchLimit returns the default search result limit.
func (c AppConfig) SearchLimit() int { return c.searchLimit }

// IngestBatchSize returns the upsert batch size for ingestion.
func (c AppConfig) IngestBatchSize() int { return c.ingestBatch }

// ModelDir returns the local model cache directory.
func (c AppConfig) ModelDir() string {
	return filepath.Join(c.dataDir, "models")
}

// SyncStatePath returns the last-sync timestamp file path.
func (c AppConfig) SyncStatePath() string {
	return filepath.Join(c.dataDir, "last_sync.txt")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) { c.dataDir = dir }
}

// WithDBURL sets the database connection URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithEmbedding sets the embedding provider config.
func WithEmbedding(e EmbeddingConfig) AppConfigOption {
	return func(c *AppConfig) { c.embedding = e }
}

// WithSync sets the incremental sync config.
func WithSync(s SyncConfig) AppConfigOption {
	return func(c *AppConfig) { c.sync = s }
}

// WithIndex sets the deferred vector index config.
func WithIndex(i IndexConfig) AppConfigOption {
	return func(c *AppConfig) { c.index = i }
}

// WithSearchLimit sets the default search result limit.
func WithSearchLimit(n int) AppConfigOption {
	return func(c *AppConfig) { c.searchLimit = n }
}

// WithIngestBatchSize sets the upsert batch size for ingestion.
func WithIngestBatchSize(n int) AppConfigOption {
	return func(c *AppConfig) { c.ingestBatch = n }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a copy of the config with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
