package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/infrastructure/persistence"
	"github.com/integhra/ragstore/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbeddingsHandler(t *testing.T) (*EmbeddingsRouter, *persistence.SQLiteStore) {
	t.Helper()
	store, err := persistence.NewSQLiteStore(context.Background(), testdb.New(t), 3, nil)
	require.NoError(t, err)
	return NewEmbeddingsRouter(store, nil), store
}

func seedRecords(t *testing.T, store *persistence.SQLiteStore) {
	t.Helper()
	require.NoError(t, store.Upsert(context.Background(), []embedding.Record{
		embedding.NewRecord("product", 1, "Amoxicilina", []float64{1, 0, 0}, nil),
		embedding.NewRecord("offer", 2, "2x1 Frontline", []float64{0, 1, 0}, nil),
	}))
}

func TestEmbeddingsList(t *testing.T) {
	router, store := newEmbeddingsHandler(t)
	seedRecords(t, store)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Count)
}

func TestEmbeddingsListByEntityType(t *testing.T) {
	router, store := newEmbeddingsHandler(t)
	seedRecords(t, store)

	req := httptest.NewRequest(http.MethodGet, "/?entity_type=offer", nil)
	rec := httptest.NewRecorder()
	router.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, 1, response.Count)
	assert.Equal(t, "offer", response.Records[0].EntityType)
}

func TestEmbeddingsListBadLimit(t *testing.T) {
	router, _ := newEmbeddingsHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/?limit=zero", nil)
	rec := httptest.NewRecorder()
	router.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmbeddingsGet(t *testing.T) {
	router, store := newEmbeddingsHandler(t)
	seedRecords(t, store)

	req := httptest.NewRequest(http.MethodGet, "/product/1", nil)
	rec := httptest.NewRecorder()
	router.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var dto RecordDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, "product", dto.EntityType)
	assert.Equal(t, int64(1), dto.EntityID)
	assert.Equal(t, "Amoxicilina", dto.ContentText)
}

func TestEmbeddingsGetNotFound(t *testing.T) {
	router, _ := newEmbeddingsHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/product/42", nil)
	rec := httptest.NewRecorder()
	router.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmbeddingsGetBadID(t *testing.T) {
	router, _ := newEmbeddingsHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/product/abc", nil)
	rec := httptest.NewRecorder()
	router.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmbeddingsListRecentFirst(t *testing.T) {
	router, store := newEmbeddingsHandler(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 1, "Amoxicilina", []float64{1, 0, 0}, nil),
	}))
	require.NoError(t, store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 2, "Apoquel", []float64{0, 1, 0}, nil),
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, 2, response.Count)
	assert.Equal(t, int64(2), response.Records[0].EntityID)
	assert.Equal(t, int64(1), response.Records[1].EntityID)
}
