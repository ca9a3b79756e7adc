package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/integhra/ragstore/application/service"
	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/infrastructure/persistence"
	"github.com/integhra/ragstore/internal/testdb"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	results []embedding.Result
	err     error
}

func (s stubSearcher) Query(context.Context, string, ...service.SearchOption) ([]embedding.Result, error) {
	return s.results, s.err
}

func toolRequest(args map[string]any) mcpgo.CallToolRequest {
	var req mcpgo.CallToolRequest
	req.Params.Arguments = args
	return req
}

func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHandleSearch(t *testing.T) {
	rec := embedding.NewStoredRecord(1, "product", 7, "Apoquel comprimidos", []float64{1, 0, 0},
		map[string]any{embedding.MetaTitle: "APOQUEL 16 MG"}, time.Now())
	srv := NewServer(stubSearcher{results: []embedding.Result{embedding.NewResult(rec, 0.92)}}, nil, nil)

	result, err := srv.handleSearch(context.Background(), toolRequest(map[string]any{
		"query": "apoquel",
		"top_k": float64(3),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "product", rows[0]["entity_type"])
	assert.Equal(t, float64(7), rows[0]["entity_id"])
	assert.Equal(t, "APOQUEL 16 MG", rows[0]["title"])
}

func TestHandleSearchMissingQuery(t *testing.T) {
	srv := NewServer(stubSearcher{}, nil, nil)

	result, err := srv.handleSearch(context.Background(), toolRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetRecord(t *testing.T) {
	ctx := context.Background()
	store, err := persistence.NewSQLiteStore(ctx, testdb.New(t), 3, nil)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 7, "Apoquel comprimidos", []float64{1, 0, 0}, nil),
	}))

	srv := NewServer(stubSearcher{}, store, nil)

	result, err := srv.handleGetRecord(ctx, toolRequest(map[string]any{
		"entity_type": "product",
		"entity_id":   "7",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var row map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &row))
	assert.Equal(t, "Apoquel comprimidos", row["content"])
}

func TestHandleGetRecordErrors(t *testing.T) {
	ctx := context.Background()
	store, err := persistence.NewSQLiteStore(ctx, testdb.New(t), 3, nil)
	require.NoError(t, err)

	srv := NewServer(stubSearcher{}, store, nil)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing entity_type", map[string]any{"entity_id": "7"}},
		{"non-numeric entity_id", map[string]any{"entity_type": "product", "entity_id": "abc"}},
		{"not found", map[string]any{"entity_type": "product", "entity_id": "404"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleGetRecord(ctx, toolRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}
}
