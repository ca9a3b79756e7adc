package service

import (
	"context"
	"testing"

	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/infrastructure/persistence"
	"github.com/integhra/ragstore/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	store, err := persistence.NewSQLiteStore(ctx, db, 3, nil)
	require.NoError(t, err)

	require.NoError(t, store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 1, "a", []float64{1, 0, 0}, nil),
	}))

	health := NewHealth(db, store, nil)
	status := health.Check(ctx)

	assert.True(t, status.Database)
	assert.True(t, status.VectorExtension)
	assert.Equal(t, int64(1), status.Records)
	assert.True(t, status.Healthy())
}

func TestHealthRequire(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	store, err := persistence.NewSQLiteStore(ctx, db, 3, nil)
	require.NoError(t, err)

	health := NewHealth(db, store, nil)
	assert.NoError(t, health.Require(ctx))
}

func TestHealthStatusHealthy(t *testing.T) {
	assert.True(t, HealthStatus{Database: true, VectorExtension: true}.Healthy())
	assert.False(t, HealthStatus{Database: true}.Healthy())
	assert.False(t, HealthStatus{VectorExtension: true}.Healthy())
}
