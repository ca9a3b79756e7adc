package embedding

import (
	"context"

	"github.com/integhra/ragstore/domain/repository"
)

// Store defines persistence operations for embedding records.
type Store interface {
	// Upsert persists records, replacing any existing row with the same
	// (entity_type, entity_id) pair.
	Upsert(ctx context.Context, records []Record) error

	// Insert persists a single record, returning ErrDuplicateEntity when
	// the (entity_type, entity_id) pair already exists.
	Insert(ctx context.Context, record Record) (Record, error)

	// Find retrieves records matching the given options.
	Find(ctx context.Context, options ...repository.Option) ([]Record, error)

	// FindOne retrieves a single record matching the given options.
	FindOne(ctx context.Context, options ...repository.Option) (Record, error)

	// Search ranks records by cosine similarity to the query vector passed
	// via WithVector, after applying condition options and hard filters.
	Search(ctx context.Context, options ...repository.Option) ([]Result, error)

	// Count returns the number of records matching the given options.
	Count(ctx context.Context, options ...repository.Option) (int64, error)

	// Exists checks whether any record matches the given options.
	Exists(ctx context.Context, options ...repository.Option) (bool, error)

	// DeleteBy removes records matching the given options.
	DeleteBy(ctx context.Context, options ...repository.Option) error
}

// Result pairs a record with its similarity score. Scores are cosine
// similarity in [0, 1]; higher is closer.
type Result struct {
	record Record
	score  float64
}

// NewResult creates a search Result.
func NewResult(record Record, score float64) Result {
	return Result{record: record, score: score}
}

// Record returns the matched record.
func (r Result) Record() Record { return r.record }

// Score returns the similarity score.
func (r Result) Score() float64 { return r.score }
