// Package embedding defines the embedding record domain model and its
// persistence contract. One record holds the embedded text, its vector, and
// auxiliary metadata for a single external entity.
package embedding

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors surfaced by stores and validation.
var (
	// ErrDuplicateEntity indicates an insert collided with an existing
	// (entity_type, entity_id) pair.
	ErrDuplicateEntity = errors.New("embedding already exists for entity")

	// ErrDimensionMismatch indicates a vector whose length does not match
	// the configured embedding dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrMissingField indicates a required record field is empty.
	ErrMissingField = errors.New("missing required field")
)

// Record is one stored embedding: the text that was embedded, its vector,
// and the external entity it belongs to. Records are immutable values;
// re-ingesting the same entity replaces the stored row as a whole.
type Record struct {
	id         int64
	entityType string
	entityID   int64
	content    string
	vector     []float64
	metadata   map[string]any
	createdAt  time.Time
}

// NewRecord creates a Record for the given entity. The vector and metadata
// are defensively copied.
func NewRecord(entityType string, entityID int64, content string, vector []float64, metadata map[string]any) Record {
	return Record{
		entityType: entityType,
		entityID:   entityID,
		content:    content,
		vector:     copyVector(vector),
		metadata:   copyMetadata(metadata),
	}
}

// NewStoredRecord reconstructs a Record loaded from persistence.
func NewStoredRecord(id int64, entityType string, entityID int64, content string, vector []float64, metadata map[string]any, createdAt time.Time) Record {
	r := NewRecord(entityType, entityID, content, vector, metadata)
	r.id = id
	r.createdAt = createdAt
	return r
}

// ID returns the surrogate row identifier (0 before first save).
func (r Record) ID() int64 { return r.id }

// EntityType returns the entity classification tag.
func (r Record) EntityType() string { return r.entityType }

// EntityID returns the external entity identifier.
func (r Record) EntityID() int64 { return r.entityID }

// Content returns the original text that was embedded.
func (r Record) Content() string { return r.content }

// Vector returns a copy of the embedding vector.
func (r Record) Vector() []float64 { return copyVector(r.vector) }

// Dimension returns the vector length.
func (r Record) Dimension() int { return len(r.vector) }

// Metadata returns a copy of the auxiliary metadata, or nil if none.
func (r Record) Metadata() map[string]any { return copyMetadata(r.metadata) }

// CreatedAt returns the insertion timestamp (zero before first save).
func (r Record) CreatedAt() time.Time { return r.createdAt }

// Validate checks the record against the storage constraints: required
// fields present and vector length exactly dimension. The database enforces
// the same constraints; validating here surfaces a typed error before the
// round trip.
func (r Record) Validate(dimension int) error {
	if r.entityType == "" {
		return fmt.Errorf("%w: entity_type", ErrMissingField)
	}
	if r.entityID == 0 {
		return fmt.Errorf("%w: entity_id", ErrMissingField)
	}
	if r.content == "" {
		return fmt.Errorf("%w: content_text", ErrMissingField)
	}
	if len(r.vector) != dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(r.vector), dimension)
	}
	return nil
}

func copyVector(v []float64) []float64 {
	if v == nil {
		return nil
	}
	cp := make([]float64, len(v))
	copy(cp, v)
	return cp
}

func copyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
