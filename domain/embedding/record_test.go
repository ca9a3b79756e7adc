package embedding

import (
	"testing"

	"github.com/integhra/ragstore/domain/repository"
	"github.com/stretchr/testify/assert"
)

func buildQuery(opts ...repository.Option) repository.Query {
	return repository.Build(opts...)
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		expected error
	}{
		{
			name:     "valid",
			record:   NewRecord("product", 1, "text", []float64{1, 0, 0}, nil),
			expected: nil,
		},
		{
			name:     "missing entity type",
			record:   NewRecord("", 1, "text", []float64{1, 0, 0}, nil),
			expected: ErrMissingField,
		},
		{
			name:     "missing entity id",
			record:   NewRecord("product", 0, "text", []float64{1, 0, 0}, nil),
			expected: ErrMissingField,
		},
		{
			name:     "missing content",
			record:   NewRecord("product", 1, "", []float64{1, 0, 0}, nil),
			expected: ErrMissingField,
		},
		{
			name:     "dimension mismatch",
			record:   NewRecord("product", 1, "text", []float64{1, 0}, nil),
			expected: ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate(3)
			if tt.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expected)
			}
		})
	}
}

func TestRecordImmutability(t *testing.T) {
	vector := []float64{1, 2, 3}
	metadata := map[string]any{"key": "value"}
	rec := NewRecord("product", 1, "text", vector, metadata)

	// mutating the inputs must not affect the record
	vector[0] = 99
	metadata["key"] = "changed"
	assert.Equal(t, []float64{1, 2, 3}, rec.Vector())
	assert.Equal(t, "value", rec.Metadata()["key"])

	// mutating the getters' returns must not affect the record either
	rec.Vector()[1] = 99
	rec.Metadata()["key"] = "changed"
	assert.Equal(t, []float64{1, 2, 3}, rec.Vector())
	assert.Equal(t, "value", rec.Metadata()["key"])
}

func TestFilters(t *testing.T) {
	assert.True(t, NewFilters().Empty())

	f := NewFilters(
		WithLabs([]string{"zoetis"}),
		WithCategories([]string{"vacunas"}),
		WithSpecies([]string{"perros"}),
		WithOffersOnly(),
	)
	assert.False(t, f.Empty())
	assert.Equal(t, []string{"zoetis"}, f.Labs())
	assert.Equal(t, []string{"vacunas"}, f.Categories())
	assert.Equal(t, []string{"perros"}, f.Species())
	assert.True(t, f.OffersOnly())
}

func TestVectorFrom(t *testing.T) {
	q := buildQuery(WithVector([]float64{1, 2, 3}))
	v, ok := VectorFrom(q)
	assert.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, v)

	_, ok = VectorFrom(buildQuery())
	assert.False(t, ok)
}

func TestFiltersFrom(t *testing.T) {
	filters := NewFilters(WithOffersOnly())
	q := buildQuery(WithFilters(filters))

	got, ok := FiltersFrom(q)
	assert.True(t, ok)
	assert.True(t, got.OffersOnly())

	_, ok = FiltersFrom(buildQuery())
	assert.False(t, ok)
}
