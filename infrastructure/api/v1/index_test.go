package v1

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/integhra/ragstore/infrastructure/persistence"
	"github.com/integhra/ragstore/internal/testdb"
	"github.com/stretchr/testify/assert"
)

// The index endpoints report Conflict against SQLite: the approximate
// index only exists on PostgreSQL.
func TestIndexEndpointsUnsupportedBackend(t *testing.T) {
	index := persistence.NewVectorIndex(testdb.New(t), 1000, nil)
	router := NewIndexRouter(index, 100, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"lists": 50}`))
	rec = httptest.NewRecorder()
	router.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIndexCreateBadBody(t *testing.T) {
	index := persistence.NewVectorIndex(testdb.New(t), 1000, nil)
	router := NewIndexRouter(index, 100, nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad`))
	rec := httptest.NewRecorder()
	router.Routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
