// Package smoke exercises the assembled system end to end: client
// construction, ingestion through the store, and the HTTP surface.
package smoke

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	ragstore "github.com/integhra/ragstore"
	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/infrastructure/api"
	v1 "github.com/integhra/ragstore/infrastructure/api/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type smokeEmbedder struct{}

func (smokeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
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

func (smokeEmbedder) Dimension() int { return 3 }

func newSmokeServer(t *testing.T) (*httptest.Server, *ragstore.Client) {
	t.Helper()
	dir := t.TempDir()

	client, err := ragstore.New(
		ragstore.WithSQLite(filepath.Join(dir, "smoke.db")),
		ragstore.WithDataDir(dir),
		ragstore.WithEmbedder(smokeEmbedder{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	server := api.NewServer("127.0.0.1:0", nil)
	router := server.Router()
	router.Get("/healthz", api.HealthHandler(client.Health, nil))
	router.Mount("/api/v1/search", v1.NewSearchRouter(client.Search, nil).Routes())
	router.Mount("/api/v1/embeddings", v1.NewEmbeddingsRouter(client.Store, nil).Routes())
	router.Mount("/api/v1/index", v1.NewIndexRouter(client.Index, 100, nil).Routes())

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, client
}

func seed(t *testing.T, client *ragstore.Client) {
	t.Helper()
	ctx := context.Background()

	texts := []string{"Apoquel comprimidos dermatitis", "Shampoo antipulgas perros"}
	vectors, err := client.Embedder().Embed(ctx, texts)
	require.NoError(t, err)

	require.NoError(t, client.Store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 1, texts[0], vectors[0], map[string]any{
			embedding.MetaSearchKeywords: "apoquel comprimidos dermatitis",
		}),
		embedding.NewRecord("product", 2, texts[1], vectors[1], map[string]any{
			embedding.MetaSearchKeywords: "shampoo antipulgas perros",
		}),
	}))
}

func TestSmoke(t *testing.T) {
	ts, client := newSmokeServer(t)
	seed(t, client)

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var health api.HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, int64(2), health.Records)
	})

	t.Run("search", func(t *testing.T) {
		body := `{"query": "apoquel dermatitis"}`
		resp, err := http.Post(ts.URL+"/api/v1/search", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var search v1.SearchResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&search))
		require.NotZero(t, search.Count)
		assert.Equal(t, int64(1), search.Results[0].EntityID)
	})

	t.Run("embeddings", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/embeddings/product/1")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var record v1.RecordDTO
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&record))
		assert.Equal(t, "product", record.EntityType)
	})

	t.Run("index status on sqlite", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/index")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}
