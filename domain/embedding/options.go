package embedding

import (
	"time"

	"github.com/integhra/ragstore/domain/repository"
)

// WithEntityType filters by the "entity_type" column.
func WithEntityType(entityType string) repository.Option {
	return repository.WithCondition("entity_type", entityType)
}

// WithEntityTypes filters by the "entity_type" column using IN.
func WithEntityTypes(entityTypes []string) repository.Option {
	return repository.WithConditionIn("entity_type", entityTypes)
}

// WithEntityID filters by the "entity_id" column.
func WithEntityID(entityID int64) repository.Option {
	return repository.WithCondition("entity_id", entityID)
}

// WithEntity filters by the unique (entity_type, entity_id) pair.
func WithEntity(entityType string, entityID int64) []repository.Option {
	return []repository.Option{
		WithEntityType(entityType),
		WithEntityID(entityID),
	}
}

// WithCreatedAfter filters records created strictly after t.
func WithCreatedAfter(t time.Time) repository.Option {
	return repository.WithWhere("created_at > ?", t)
}

// WithRecentFirst orders by created_at descending, id descending as the
// tiebreaker so paging stays stable across equal timestamps.
func WithRecentFirst() repository.Option {
	return func(q repository.Query) repository.Query {
		q = repository.WithOrderDesc("created_at")(q)
		return repository.WithOrderDesc("id")(q)
	}
}

// WithVector passes the query vector for similarity search through options.
func WithVector(vector []float64) repository.Option {
	return repository.WithParam("query_vector", vector)
}

// VectorFrom extracts the query vector from a built query.
func VectorFrom(q repository.Query) ([]float64, bool) {
	v, ok := q.Param("query_vector")
	if !ok {
		return nil, false
	}
	vec, ok := v.([]float64)
	return vec, ok
}

// WithFilters passes hard metadata filters through options.
func WithFilters(filters Filters) repository.Option {
	return repository.WithParam("search_filters", filters)
}

// FiltersFrom extracts hard metadata filters from a built query.
func FiltersFrom(q repository.Query) (Filters, bool) {
	v, ok := q.Param("search_filters")
	if !ok {
		return Filters{}, false
	}
	f, ok := v.(Filters)
	return f, ok
}
