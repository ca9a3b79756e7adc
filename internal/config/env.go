package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration. Nested structs use
// an underscore delimiter (e.g. EMBEDDING_BASE_URL, SYNC_API_TOKEN).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.ragstore
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL. Production deployments point
	// this at a PostgreSQL instance with the pgvector extension available.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/ragstore.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingEnv `envconfig:"EMBEDDING"`

	// Sync configures the incremental sync against the production API.
	Sync SyncEnv `envconfig:"SYNC"`

	// Index configures the deferred vector index.
	Index IndexEnv `envconfig:"INDEX"`

	// SearchLimit is the default search result limit.
	// Env: SEARCH_LIMIT (default: 5)
	SearchLimit int `envconfig:"SEARCH_LIMIT" default:"5"`

	// IngestBatchSize is the upsert batch size for ingestion.
	// Env: INGEST_BATCH_SIZE (default: 100)
	IngestBatchSize int `envconfig:"INGEST_BATCH_SIZE" default:"100"`
}

// EmbeddingEnv holds environment configuration for the embedding provider.
type EmbeddingEnv struct {
	// Provider selects the embedding backend (local or openai).
	// Env: EMBEDDING_PROVIDER (default: local)
	Provider string `envconfig:"PROVIDER" default:"local"`

	// BaseURL is the OpenAI-compatible endpoint base URL.
	// Env: EMBEDDING_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the embedding model identifier.
	// Env: EMBEDDING_MODEL (default: sentence-transformers/all-MiniLM-L6-v2)
	Model string `envconfig:"MODEL"`

	// APIKey is the endpoint API key.
	// Env: EMBEDDING_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Dimension is the expected vector width. Must match the model.
	// Env: EMBEDDING_DIMENSION (default: 384)
	Dimension int `envconfig:"DIMENSION" default:"384"`

	// BatchSize is the number of texts per embedding call.
	// Env: EMBEDDING_BATCH_SIZE (default: 10)
	BatchSize int `envconfig:"BATCH_SIZE" default:"10"`

	// Parallel is the number of concurrent embedding batches.
	// Env: EMBEDDING_PARALLEL (default: 4)
	Parallel int `envconfig:"PARALLEL" default:"4"`

	// Timeout is the request timeout in seconds.
	// Env: EMBEDDING_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// MaxRetries is the maximum number of retries.
	// Env: EMBEDDING_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`
}

// SyncEnv holds environment configuration for incremental sync.
type SyncEnv struct {
	// APIBaseURL is the production API base URL.
	// Env: SYNC_API_BASE_URL
	APIBaseURL string `envconfig:"API_BASE_URL"`

	// APIToken is the production API bearer token.
	// Env: SYNC_API_TOKEN
	APIToken string `envconfig:"API_TOKEN"`

	// ProductsPath is the products endpoint path.
	// Env: SYNC_PRODUCTS_PATH (default: /products/)
	ProductsPath string `envconfig:"PRODUCTS_PATH" default:"/products/"`

	// OffersPath is the offers endpoint path.
	// Env: SYNC_OFFERS_PATH (default: /offers/)
	OffersPath string `envconfig:"OFFERS_PATH" default:"/offers/"`

	// Timeout is the request timeout in seconds.
	// Env: SYNC_TIMEOUT (default: 30)
	Timeout float64 `envconfig:"TIMEOUT" default:"30"`

	// MaxRetries is the maximum retry attempts.
	// Env: SYNC_MAX_RETRIES (default: 3)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"3"`
}

// IndexEnv holds environment configuration for the deferred vector index.
type IndexEnv struct {
	// Lists is the number of ivfflat partitions.
	// Env: INDEX_LISTS (default: 100)
	Lists int `envconfig:"LISTS" default:"100"`

	// MinRows is the row count below which index creation warns.
	// Env: INDEX_MIN_ROWS (default: 1000)
	MinRows int64 `envconfig:"MIN_ROWS" default:"1000"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig, applying only the values
// that were actually set (defaults stay in AppConfig's hands).
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = cfg.Apply(WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = cfg.Apply(WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = cfg.Apply(WithDataDir(e.DataDir), WithDBURL("sqlite:///"+e.DataDir+"/ragstore.db"))
	}
	if e.DBURL != "" {
		cfg = cfg.Apply(WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = cfg.Apply(WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = cfg.Apply(WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.SearchLimit > 0 {
		cfg = cfg.Apply(WithSearchLimit(e.SearchLimit))
	}
	if e.IngestBatchSize > 0 {
		cfg = cfg.Apply(WithIngestBatchSize(e.IngestBatchSize))
	}

	cfg = cfg.Apply(WithEmbedding(e.Embedding.ToEmbeddingConfig()))
	cfg = cfg.Apply(WithSync(e.Sync.ToSyncConfig()))
	cfg = cfg.Apply(WithIndex(e.Index.ToIndexConfig()))

	return cfg
}

// ToEmbeddingConfig converts EmbeddingEnv to EmbeddingConfig.
func (e EmbeddingEnv) ToEmbeddingConfig() EmbeddingConfig {
	opts := []EmbeddingOption{
		WithProvider(parseProvider(e.Provider)),
	}
	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.Model != "" {
		opts = append(opts, WithModel(e.Model))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}
	if e.Dimension > 0 {
		opts = append(opts, WithDimension(e.Dimension))
	}
	if e.BatchSize > 0 {
		opts = append(opts, WithBatchSize(e.BatchSize))
	}
	if e.Parallel > 0 {
		opts = append(opts, WithParallel(e.Parallel))
	}
	if e.Timeout > 0 {
		opts = append(opts, WithEmbeddingTimeout(time.Duration(e.Timeout*float64(time.Second))))
	}
	if e.MaxRetries > 0 {
		opts = append(opts, WithEmbeddingRetries(e.MaxRetries))
	}
	return NewEmbeddingConfigWithOptions(opts...)
}

// ToSyncConfig converts SyncEnv to SyncConfig.
func (e SyncEnv) ToSyncConfig() SyncConfig {
	s := NewSyncConfig()
	s.baseURL = e.APIBaseURL
	s.token = e.APIToken
	if e.ProductsPath != "" {
		s.productsPath = e.ProductsPath
	}
	if e.OffersPath != "" {
		s.offersPath = e.OffersPath
	}
	if e.Timeout > 0 {
		s.timeout = time.Duration(e.Timeout * float64(time.Second))
	}
	if e.MaxRetries > 0 {
		s.maxRetries = e.MaxRetries
	}
	return s
}

// ToIndexConfig converts IndexEnv to IndexConfig.
func (e IndexEnv) ToIndexConfig() IndexConfig {
	i := NewIndexConfig()
	if e.Lists > 0 {
		i.lists = e.Lists
	}
	if e.MinRows > 0 {
		i.minRows = e.MinRows
	}
	return i
}

func parseLogFormat(s string) LogFormat {
	if strings.EqualFold(s, string(LogFormatJSON)) {
		return LogFormatJSON
	}
	return LogFormatPretty
}

func parseProvider(s string) EmbeddingProvider {
	if strings.EqualFold(s, string(ProviderOpenAI)) {
		return ProviderOpenAI
	}
	return ProviderLocal
}
