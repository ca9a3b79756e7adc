package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/integhra/ragstore/application/service"
	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/infrastructure/persistence"
	"github.com/integhra/ragstore/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	store, err := persistence.NewSQLiteStore(ctx, db, 3, nil)
	require.NoError(t, err)

	require.NoError(t, store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 1, "a", []float64{1, 0, 0}, nil),
	}))

	handler := HealthHandler(service.NewHealth(db, store, nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.True(t, response.Database)
	assert.True(t, response.VectorExtension)
	assert.Equal(t, int64(1), response.Records)
}

func TestServerRouterServesMountedRoutes(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)
	server.Router().Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
