package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/integhra/ragstore/application/service"
	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/infrastructure/persistence"
	"github.com/integhra/ragstore/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder maps known texts to fixed vectors; everything else embeds
// to the fallback.
type stubEmbedder struct {
	known map[string][]float64
}

func (s stubEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if v, ok := s.known[t]; ok {
			out[i] = v
			continue
		}
		out[i] = []float64{1, 0, 0}
	}
	return out, nil
}

func (s stubEmbedder) Dimension() int { return 3 }

func newSearchHandler(t *testing.T) (*SearchRouter, *persistence.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	store, err := persistence.NewSQLiteStore(ctx, testdb.New(t), 3, nil)
	require.NoError(t, err)

	search := service.NewSearch(store, stubEmbedder{}, 5, nil)
	return NewSearchRouter(search, nil), store
}

func TestSearchEndpoint(t *testing.T) {
	router, store := newSearchHandler(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 1, "Apoquel comprimidos", []float64{1, 0, 0}, map[string]any{
			embedding.MetaSearchKeywords: "apoquel comprimidos",
		}),
		embedding.NewRecord("product", 2, "Otra cosa", []float64{0, 1, 0}, nil),
	}))

	body := `{"query": "apoquel", "limit": 5}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, 2, response.Count)
	assert.Equal(t, int64(1), response.Results[0].EntityID)
	assert.Greater(t, response.Results[0].Score, response.Results[1].Score)
}

func TestSearchEndpointFilters(t *testing.T) {
	router, store := newSearchHandler(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 1, "Zoetis", []float64{1, 0, 0}, map[string]any{
			embedding.MetaFilterLab: "zoetis",
		}),
		embedding.NewRecord("product", 2, "Bayer", []float64{1, 0, 0}, map[string]any{
			embedding.MetaFilterLab: "bayer",
		}),
	}))

	body := `{"query": "antibiotico", "filters": {"labs": ["zoetis"]}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, 1, response.Count)
	assert.Equal(t, int64(1), response.Results[0].EntityID)
}

func TestSearchEndpointBadRequests(t *testing.T) {
	router, _ := newSearchHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{not json"},
		{"missing query", `{"limit": 5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.Routes().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
