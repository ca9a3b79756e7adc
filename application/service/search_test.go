package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns canned vectors per text, falling back to a default.
type fakeEmbedder struct {
	vectors  map[string][]float64
	fallback []float64
	err      error
	calls    int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		vectors:  map[string][]float64{},
		fallback: []float64{1, 0, 0},
	}
}

func (f *fakeEmbedder) set(text string, vector []float64) *fakeEmbedder {
	f.vectors[text] = vector
	return f
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = f.fallback
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

// fakeStore serves canned search results and captures the query.
type fakeStore struct {
	embedding.Store

	results   []embedding.Result
	lastQuery repository.Query
	err       error
}

func (f *fakeStore) Search(_ context.Context, opts ...repository.Option) ([]embedding.Result, error) {
	f.lastQuery = repository.Build(opts...)
	return f.results, f.err
}

func storedResult(id int64, entityType string, score float64, metadata map[string]any) embedding.Result {
	rec := embedding.NewStoredRecord(id, entityType, id, "content", []float64{1, 0, 0}, metadata, time.Now())
	return embedding.NewResult(rec, score)
}

func TestSearchQueryEmpty(t *testing.T) {
	search := NewSearch(&fakeStore{}, newFakeEmbedder(), 5, nil)

	results, err := search.Query(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchQueryRanksBySemanticScore(t *testing.T) {
	store := &fakeStore{results: []embedding.Result{
		storedResult(1, "product", 0.6, nil),
		storedResult(2, "product", 0.9, nil),
	}}
	search := NewSearch(store, newFakeEmbedder(), 5, nil)

	results, err := search.Query(context.Background(), "algo")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].Record().ID())
	assert.Equal(t, int64(1), results[1].Record().ID())
}

func TestSearchQueryKeywordOverlapPromotes(t *testing.T) {
	// close semantic scores, but only one candidate carries the query term
	store := &fakeStore{results: []embedding.Result{
		storedResult(1, "product", 0.80, map[string]any{
			embedding.MetaSearchKeywords: "otra cosa distinta",
		}),
		storedResult(2, "product", 0.78, map[string]any{
			embedding.MetaSearchKeywords: "apoquel comprimidos zoetis",
		}),
	}}
	search := NewSearch(store, newFakeEmbedder(), 5, nil)

	results, err := search.Query(context.Background(), "apoquel")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].Record().ID())

	// 0.7*0.78 + 0.3*1.0
	assert.InDelta(t, 0.846, results[0].Score(), 0.0001)
	// 0.7*0.80 + 0.3*0
	assert.InDelta(t, 0.56, results[1].Score(), 0.0001)
}

func TestSearchQueryMinScore(t *testing.T) {
	store := &fakeStore{results: []embedding.Result{
		storedResult(1, "product", 0.9, nil),
		storedResult(2, "product", 0.2, nil),
	}}
	search := NewSearch(store, newFakeEmbedder(), 5, nil)

	results, err := search.Query(context.Background(), "algo", WithMinScore(0.5))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].Record().ID())
}

func TestSearchQueryLimitAndOverFetch(t *testing.T) {
	store := &fakeStore{results: []embedding.Result{
		storedResult(1, "product", 0.9, nil),
		storedResult(2, "product", 0.8, nil),
		storedResult(3, "product", 0.7, nil),
	}}
	search := NewSearch(store, newFakeEmbedder(), 5, nil)

	results, err := search.Query(context.Background(), "algo", WithLimit(2))
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// the store is asked for 3x the limit so rescoring has candidates
	assert.Equal(t, 6, store.lastQuery.LimitValue())
}

func TestSearchQueryPassesEntityTypesAndFilters(t *testing.T) {
	store := &fakeStore{}
	search := NewSearch(store, newFakeEmbedder(), 5, nil)

	filters := embedding.NewFilters(embedding.WithLabs([]string{"zoetis"}))
	_, err := search.Query(context.Background(), "algo",
		WithEntityTypes("product"),
		WithFilters(filters),
	)
	require.NoError(t, err)

	conditions := store.lastQuery.Conditions()
	require.Len(t, conditions, 1)
	assert.Equal(t, "entity_type", conditions[0].Field())
	assert.Equal(t, "product", conditions[0].Value())

	got, ok := embedding.FiltersFrom(store.lastQuery)
	require.True(t, ok)
	assert.Equal(t, []string{"zoetis"}, got.Labs())

	vec, ok := embedding.VectorFrom(store.lastQuery)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0, 0}, vec)
}

func TestSearchQueryEmbedError(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.err = errors.New("model offline")
	search := NewSearch(&fakeStore{}, embedder, 5, nil)

	_, err := search.Query(context.Background(), "algo")
	assert.ErrorContains(t, err, "embed query")
}
