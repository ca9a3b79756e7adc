// Package service provides application layer services that orchestrate
// domain operations.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/domain/repository"
	"github.com/integhra/ragstore/infrastructure/etl"
	"github.com/integhra/ragstore/internal/config"
)

// SearchOption configures a search request.
type SearchOption func(*searchConfig)

type searchConfig struct {
	limit          int
	entityTypes    []string
	filters        embedding.Filters
	hasFilters     bool
	minScore       float64
	semanticWeight float64
}

func newSearchConfig(defaultLimit int) *searchConfig {
	if defaultLimit <= 0 {
		defaultLimit = config.DefaultSearchLimit
	}
	return &searchConfig{
		limit:          defaultLimit,
		semanticWeight: 0.7,
	}
}

// WithLimit sets the maximum number of results.
func WithLimit(n int) SearchOption {
	return func(c *searchConfig) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithEntityTypes restricts results to the given entity types.
func WithEntityTypes(types ...string) SearchOption {
	return func(c *searchConfig) {
		c.entityTypes = types
	}
}

// WithFilters applies hard metadata filters.
func WithFilters(f embedding.Filters) SearchOption {
	return func(c *searchConfig) {
		c.filters = f
		c.hasFilters = true
	}
}

// WithMinScore drops results scoring below the threshold.
func WithMinScore(score float64) SearchOption {
	return func(c *searchConfig) {
		if score >= 0 {
			c.minScore = score
		}
	}
}

// WithSemanticWeight sets the blend between vector similarity and keyword
// overlap in the final score (0-1, default 0.7).
func WithSemanticWeight(w float64) SearchOption {
	return func(c *searchConfig) {
		if w >= 0 && w <= 1 {
			c.semanticWeight = w
		}
	}
}

// Search embeds queries and ranks stored records against them.
type Search struct {
	store    embedding.Store
	embedder embedding.Embedder
	limit    int
	logger   *slog.Logger
}

// NewSearch creates a Search service.
func NewSearch(store embedding.Store, embedder embedding.Embedder, defaultLimit int, logger *slog.Logger) *Search {
	if logger == nil {
		logger = slog.Default()
	}
	return &Search{store: store, embedder: embedder, limit: defaultLimit, logger: logger}
}

// Query embeds the query text, runs similarity search with any hard
// filters, and rescores with keyword overlap so literal product-name
// queries rank exact matches above merely-similar ones.
func (s *Search) Query(ctx context.Context, query string, options ...SearchOption) ([]embedding.Result, error) {
	cfg := newSearchConfig(s.limit)
	for _, opt := range options {
		opt(cfg)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []embedding.Result{}, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}

	// Over-fetch so rescoring has candidates to promote.
	storeOptions := []repository.Option{
		embedding.WithVector(vectors[0]),
		repository.WithLimit(cfg.limit * 3),
	}
	if len(cfg.entityTypes) == 1 {
		storeOptions = append(storeOptions, embedding.WithEntityType(cfg.entityTypes[0]))
	} else if len(cfg.entityTypes) > 1 {
		storeOptions = append(storeOptions, embedding.WithEntityTypes(cfg.entityTypes))
	}
	if cfg.hasFilters && !cfg.filters.Empty() {
		storeOptions = append(storeOptions, embedding.WithFilters(cfg.filters))
	}

	candidates, err := s.store.Search(ctx, storeOptions...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	queryTerms := queryKeywords(query)
	rescored := make([]embedding.Result, 0, len(candidates))
	for _, c := range candidates {
		score := cfg.semanticWeight*c.Score() + (1-cfg.semanticWeight)*keywordOverlap(queryTerms, c.Record())
		if score < cfg.minScore {
			continue
		}
		rescored = append(rescored, embedding.NewResult(c.Record(), score))
	}

	sort.SliceStable(rescored, func(i, j int) bool {
		return rescored[i].Score() > rescored[j].Score()
	})
	if len(rescored) > cfg.limit {
		rescored = rescored[:cfg.limit]
	}

	s.logger.DebugContext(ctx, "search done",
		slog.String("query", query),
		slog.Int("candidates", len(candidates)),
		slog.Int("results", len(rescored)))
	return rescored, nil
}

// queryKeywords normalizes the query into filter-form terms.
func queryKeywords(query string) []string {
	var terms []string
	for _, word := range strings.Fields(query) {
		if clean := etl.NormalizeForFilter(word); len(clean) > 2 {
			terms = append(terms, clean)
		}
	}
	return terms
}

// keywordOverlap scores how many query terms appear in the record's
// search keywords, in [0,1].
func keywordOverlap(terms []string, record embedding.Record) float64 {
	if len(terms) == 0 {
		return 0
	}
	keywords, _ := record.Metadata()[embedding.MetaSearchKeywords].(string)
	if keywords == "" {
		return 0
	}
	matched := 0
	for _, term := range terms {
		if strings.Contains(keywords, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
