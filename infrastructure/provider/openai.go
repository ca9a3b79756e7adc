// Package provider implements embedding vector producers: a remote
// OpenAI-compatible client and a local ONNX model.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/internal/config"
	openai "github.com/sashabaranov/go-openai"
)

// errEmbeddingCountMismatch indicates the API returned fewer embedding
// vectors than requested. Retryable: transient upstream issues can produce
// partial responses behind a 200 status.
var errEmbeddingCountMismatch = errors.New("embedding response count mismatch")

// OpenAIEmbedder produces embedding vectors through an OpenAI-compatible
// embeddings endpoint.
type OpenAIEmbedder struct {
	client        *openai.Client
	model         string
	dimension     int
	batchSize     int
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// NewOpenAIEmbedder creates an embedder from the embedding configuration.
func NewOpenAIEmbedder(cfg config.EmbeddingConfig) *OpenAIEmbedder {
	clientConfig := openai.DefaultConfig(cfg.APIKey())
	if cfg.BaseURL() != "" {
		clientConfig.BaseURL = cfg.BaseURL()
	}
	if cfg.Timeout() > 0 {
		clientConfig.HTTPClient = &http.Client{
			Timeout: cfg.Timeout(),
		}
	}

	batchSize := cfg.BatchSize()
	if batchSize <= 0 {
		batchSize = config.DefaultEmbeddingBatchSize
	}

	maxRetries := cfg.MaxRetries()
	if maxRetries <= 0 {
		maxRetries = config.DefaultEmbeddingRetries
	}

	return &OpenAIEmbedder{
		client:        openai.NewClientWithConfig(clientConfig),
		model:         cfg.Model(),
		dimension:     cfg.Dimension(),
		batchSize:     batchSize,
		maxRetries:    maxRetries,
		initialDelay:  2 * time.Second,
		backoffFactor: 2.0,
	}
}

// Dimension returns the expected vector width.
func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

// Embed generates embeddings for the given texts, splitting them into
// API-call batches internally. Every returned vector is validated against
// the configured dimension so a misconfigured remote model fails loudly
// instead of corrupting the store.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	}

	var resp openai.EmbeddingResponse

	err := e.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = e.client.CreateEmbeddings(ctx, req)
		if callErr != nil {
			return callErr
		}
		if len(resp.Data) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d texts", errEmbeddingCountMismatch, len(resp.Data), len(texts))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}

	vectors := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != e.dimension {
			return nil, fmt.Errorf("%w: model %q returned %d dimensions, expected %d",
				embedding.ErrDimensionMismatch, e.model, len(data.Embedding), e.dimension)
		}
		vec := make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}

	return vectors, nil
}

// withRetry executes the function with exponential backoff retry.
func (e *OpenAIEmbedder) withRetry(ctx context.Context, fn func() error) error {
	delay := e.initialDelay
	var lastErr error

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !isRetryable(lastErr) {
			return lastErr
		}

		if attempt < e.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * e.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable determines if an error should be retried.
func isRetryable(err error) bool {
	if errors.Is(err, errEmbeddingCountMismatch) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return true
	}

	return false
}

var _ embedding.Embedder = (*OpenAIEmbedder)(nil)
