package ragstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/integhra/ragstore/domain/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder produces deterministic vectors from text content so search
// results are stable without a real model.
type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v := make([]float64, 3)
		for j, r := range t {
			v[j%3] += float64(r%31) / 31
		}
		out[i] = v
	}
	return out, nil
}

func (hashEmbedder) Dimension() int { return 3 }

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dir := t.TempDir()
	client, err := New(
		WithSQLite(filepath.Join(dir, "test.db")),
		WithDataDir(dir),
		WithEmbedder(hashEmbedder{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewRequiresDatabase(t *testing.T) {
	_, err := New(WithEmbedder(hashEmbedder{}))
	assert.ErrorIs(t, err, ErrNoDatabase)
}

func TestClientEndToEnd(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	// store a couple of records through the client's store
	texts := []string{"Apoquel comprimidos dermatitis", "Shampoo antipulgas"}
	vectors, err := client.Embedder().Embed(ctx, texts)
	require.NoError(t, err)

	require.NoError(t, client.Store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 1, texts[0], vectors[0], map[string]any{
			embedding.MetaSearchKeywords: "apoquel comprimidos dermatitis",
		}),
		embedding.NewRecord("product", 2, texts[1], vectors[1], nil),
	}))

	status := client.Health.Check(ctx)
	assert.True(t, status.Healthy())
	assert.Equal(t, int64(2), status.Records)

	results, err := client.Search.Query(ctx, "Apoquel comprimidos dermatitis")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, int64(1), results[0].Record().EntityID())
}

func TestClientCloseIdempotent(t *testing.T) {
	client := newTestClient(t)
	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
}
