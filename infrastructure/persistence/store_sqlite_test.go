package persistence

import (
	"context"
	"testing"

	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/domain/repository"
	"github.com/integhra/ragstore/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db := testdb.New(t)
	store, err := NewSQLiteStore(context.Background(), db, 3, nil)
	require.NoError(t, err)
	return store
}

func TestSQLiteStoreInsertAndFindOne(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rec := embedding.NewRecord("product", 1, "Amoxicilina 500mg", []float64{1, 0, 0}, map[string]any{
		embedding.MetaTitle: "AMOXICILINA 500 MG",
	})
	inserted, err := store.Insert(ctx, rec)
	require.NoError(t, err)
	assert.NotZero(t, inserted.ID())

	found, err := store.FindOne(ctx, embedding.WithEntity("product", 1)...)
	require.NoError(t, err)
	assert.Equal(t, "product", found.EntityType())
	assert.Equal(t, int64(1), found.EntityID())
	assert.Equal(t, "Amoxicilina 500mg", found.Content())
	assert.Equal(t, []float64{1, 0, 0}, found.Vector())
	assert.Equal(t, "AMOXICILINA 500 MG", found.Metadata()[embedding.MetaTitle])
	assert.NotZero(t, found.ID())
	assert.False(t, found.CreatedAt().IsZero())
}

func TestSQLiteStoreInsertDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rec := embedding.NewRecord("product", 1, "original", []float64{1, 0, 0}, nil)
	_, err := store.Insert(ctx, rec)
	require.NoError(t, err)

	_, err = store.Insert(ctx, rec)
	assert.ErrorIs(t, err, embedding.ErrDuplicateEntity)
}

func TestSQLiteStoreInsertValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tests := []struct {
		name     string
		record   embedding.Record
		expected error
	}{
		{
			name:     "missing entity type",
			record:   embedding.NewRecord("", 1, "text", []float64{1, 0, 0}, nil),
			expected: embedding.ErrMissingField,
		},
		{
			name:     "missing content",
			record:   embedding.NewRecord("product", 1, "", []float64{1, 0, 0}, nil),
			expected: embedding.ErrMissingField,
		},
		{
			name:     "wrong dimension",
			record:   embedding.NewRecord("product", 1, "text", []float64{1, 0}, nil),
			expected: embedding.ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Insert(ctx, tt.record)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestSQLiteStoreUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := embedding.NewRecord("product", 1, "old text", []float64{1, 0, 0}, map[string]any{"v": "old"})
	require.NoError(t, store.Upsert(ctx, []embedding.Record{first}))

	second := embedding.NewRecord("product", 1, "new text", []float64{0, 1, 0}, map[string]any{"v": "new"})
	require.NoError(t, store.Upsert(ctx, []embedding.Record{second}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	found, err := store.FindOne(ctx, embedding.WithEntity("product", 1)...)
	require.NoError(t, err)
	assert.Equal(t, "new text", found.Content())
	assert.Equal(t, []float64{0, 1, 0}, found.Vector())
	assert.Equal(t, "new", found.Metadata()["v"])
}

func TestSQLiteStoreFindOneNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.FindOne(ctx, embedding.WithEntity("product", 42)...)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStoreFind(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 1, "a", []float64{1, 0, 0}, nil),
		embedding.NewRecord("product", 2, "b", []float64{0, 1, 0}, nil),
		embedding.NewRecord("offer", 3, "c", []float64{0, 0, 1}, nil),
	}))

	products, err := store.Find(ctx, embedding.WithEntityType("product"))
	require.NoError(t, err)
	assert.Len(t, products, 2)

	all, err := store.Find(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteStoreSearch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 1, "exact match", []float64{1, 0, 0}, nil),
		embedding.NewRecord("product", 2, "close match", []float64{0.9, 0.1, 0}, nil),
		embedding.NewRecord("product", 3, "far away", []float64{0, 0, 1}, nil),
	}))

	results, err := store.Search(ctx, embedding.WithVector([]float64{1, 0, 0}), repository.WithLimit(2))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, int64(1), results[0].Record().EntityID())
	assert.Equal(t, int64(2), results[1].Record().EntityID())
	assert.Greater(t, results[0].Score(), results[1].Score())
	assert.InDelta(t, 1.0, results[0].Score(), 0.0001)
}

func TestSQLiteStoreSearchWithoutVector(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 1, "a", []float64{1, 0, 0}, nil),
	}))

	results, err := store.Search(ctx, repository.WithLimit(5))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLiteStoreSearchFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 1, "zoetis product", []float64{1, 0, 0}, map[string]any{
			embedding.MetaFilterLab: "zoetis",
		}),
		embedding.NewRecord("product", 2, "bayer product", []float64{1, 0, 0}, map[string]any{
			embedding.MetaFilterLab: "bayer",
		}),
	}))

	filters := embedding.NewFilters(embedding.WithLabs([]string{"zoetis"}))
	results, err := store.Search(ctx,
		embedding.WithVector([]float64{1, 0, 0}),
		embedding.WithFilters(filters),
		repository.WithLimit(10),
	)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].Record().EntityID())
}

func TestSQLiteStoreSearchEntityTypeCondition(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 1, "a", []float64{1, 0, 0}, nil),
		embedding.NewRecord("offer", 2, "b", []float64{1, 0, 0}, nil),
	}))

	results, err := store.Search(ctx,
		embedding.WithVector([]float64{1, 0, 0}),
		embedding.WithEntityType("offer"),
		repository.WithLimit(10),
	)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "offer", results[0].Record().EntityType())
}

func TestSQLiteStoreExistsAndDeleteBy(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, []embedding.Record{
		embedding.NewRecord("product", 1, "a", []float64{1, 0, 0}, nil),
		embedding.NewRecord("offer", 2, "b", []float64{0, 1, 0}, nil),
	}))

	exists, err := store.Exists(ctx, embedding.WithEntity("product", 1)...)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.DeleteBy(ctx, embedding.WithEntityType("product")))

	exists, err = store.Exists(ctx, embedding.WithEntity("product", 1)...)
	require.NoError(t, err)
	assert.False(t, exists)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNewSQLiteStoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)

	store, err := NewSQLiteStore(ctx, db, 3, nil)
	require.NoError(t, err)

	rec := embedding.NewRecord("product", 1, "Amoxicilina 500mg", []float64{1, 0, 0}, nil)
	require.NoError(t, store.Upsert(ctx, []embedding.Record{rec}))

	again, err := NewSQLiteStore(ctx, db, 3, nil)
	require.NoError(t, err)

	count, err := again.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	found, err := again.FindOne(ctx, embedding.WithEntity("product", 1)...)
	require.NoError(t, err)
	assert.Equal(t, "Amoxicilina 500mg", found.Content())
}

func TestSQLiteStoreFindRecentFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i := int64(1); i <= 3; i++ {
		_, err := store.Insert(ctx, embedding.NewRecord("product", i, "text", []float64{1, 0, 0}, nil))
		require.NoError(t, err)
	}

	records, err := store.Find(ctx, embedding.WithRecentFirst())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, int64(3), records[0].EntityID())
	assert.Equal(t, int64(2), records[1].EntityID())
	assert.Equal(t, int64(1), records[2].EntityID())
	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].CreatedAt().After(records[i-1].CreatedAt()))
	}
}
