// Package persistence provides database storage implementations for
// embedding records.
package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/internal/database"
)

// TableName is the embeddings table shared by both backends.
const TableName = "embeddings"

// ErrNotFound indicates no record matched the query.
var ErrNotFound = errors.New("embedding not found")

// PgRecordModel is the GORM model for the PostgreSQL embeddings table.
type PgRecordModel struct {
	ID         int64            `gorm:"column:id;primaryKey;autoIncrement"`
	EntityType string           `gorm:"column:entity_type"`
	EntityID   int64            `gorm:"column:entity_id"`
	Content    string           `gorm:"column:content_text"`
	Embedding  database.Vector  `gorm:"column:embedding;type:vector"`
	Metadata   database.JSONMap `gorm:"column:metadata;type:jsonb"`
	CreatedAt  time.Time        `gorm:"column:created_at"`
}

// TableName implements gorm's Tabler.
func (PgRecordModel) TableName() string { return TableName }

func pgToDomain(m PgRecordModel) embedding.Record {
	return embedding.NewStoredRecord(
		m.ID, m.EntityType, m.EntityID, m.Content,
		m.Embedding.Floats(), map[string]any(m.Metadata), m.CreatedAt,
	)
}

func pgToModel(r embedding.Record, now time.Time) PgRecordModel {
	return PgRecordModel{
		EntityType: r.EntityType(),
		EntityID:   r.EntityID(),
		Content:    r.Content(),
		Embedding:  database.NewVector(r.Vector()),
		Metadata:   database.JSONMap(r.Metadata()),
		CreatedAt:  now,
	}
}

// Float64Slice stores a []float64 as JSON in SQLite.
type Float64Slice []float64

// Scan implements sql.Scanner.
func (f *Float64Slice) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}

	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer.
func (f Float64Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

// SQLiteRecordModel is the GORM model for the SQLite embeddings table.
// The vector is stored as JSON; similarity search ranks in memory.
type SQLiteRecordModel struct {
	ID         int64            `gorm:"column:id;primaryKey;autoIncrement"`
	EntityType string           `gorm:"column:entity_type"`
	EntityID   int64            `gorm:"column:entity_id"`
	Content    string           `gorm:"column:content_text"`
	Embedding  Float64Slice     `gorm:"column:embedding;type:json"`
	Metadata   database.JSONMap `gorm:"column:metadata;type:json"`
	CreatedAt  time.Time        `gorm:"column:created_at"`
}

// TableName implements gorm's Tabler.
func (SQLiteRecordModel) TableName() string { return TableName }

func sqliteToDomain(m SQLiteRecordModel) embedding.Record {
	return embedding.NewStoredRecord(
		m.ID, m.EntityType, m.EntityID, m.Content,
		[]float64(m.Embedding), map[string]any(m.Metadata), m.CreatedAt,
	)
}

func sqliteToModel(r embedding.Record, now time.Time) SQLiteRecordModel {
	return SQLiteRecordModel{
		EntityType: r.EntityType(),
		EntityID:   r.EntityID(),
		Content:    r.Content(),
		Embedding:  Float64Slice(r.Vector()),
		Metadata:   database.JSONMap(r.Metadata()),
		CreatedAt:  now,
	}
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 (opposite) and 1 (identical), or 0 if either
// vector has zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// similarityScore maps cosine similarity [-1, 1] onto [0, 1], the scale
// the Postgres store produces from cosine distance (1 - d/2). Both backends
// report scores on the same scale.
func similarityScore(cos float64) float64 {
	return (1 + cos) / 2
}

// topK ranks results by score descending and truncates to k.
func topK(results []embedding.Result, k int) []embedding.Result {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score() > results[j].Score()
	})
	if k > 0 && k < len(results) {
		results = results[:k]
	}
	return results
}

// matchesFilters applies hard metadata filters to a record's metadata map.
// Used by the SQLite backend; the Postgres backend compiles the same
// predicates to JSONB SQL.
func matchesFilters(meta map[string]any, f embedding.Filters) bool {
	if f.Empty() {
		return true
	}
	if meta == nil {
		return false
	}

	if labs := f.Labs(); len(labs) > 0 && !stringIn(meta[embedding.MetaFilterLab], labs) {
		return false
	}
	if cats := f.Categories(); len(cats) > 0 && !stringIn(meta[embedding.MetaFilterCategory], cats) {
		return false
	}
	if species := f.Species(); len(species) > 0 {
		haystack, _ := meta[embedding.MetaSpeciesFilter].(string)
		if !containsSpecies(haystack, species) {
			return false
		}
	}
	if f.OffersOnly() {
		isOffer, _ := meta[embedding.MetaIsOffer].(bool)
		if !isOffer {
			return false
		}
	}
	return true
}

func stringIn(value any, set []string) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

// containsSpecies matches any requested species as a substring, also
// trying the singular form so "perros" matches a "perro" tag.
func containsSpecies(haystack string, species []string) bool {
	if haystack == "" {
		return false
	}
	for _, s := range species {
		if s == "" {
			continue
		}
		if strings.Contains(haystack, s) {
			return true
		}
		if singular := strings.TrimSuffix(s, "s"); singular != s && strings.Contains(haystack, singular) {
			return true
		}
	}
	return false
}

// SpeciesPatterns expands species filter values into SQL ILIKE patterns,
// including singular fallbacks.
func SpeciesPatterns(species []string) []string {
	patterns := make([]string, 0, len(species)*2)
	for _, s := range species {
		if s == "" {
			continue
		}
		patterns = append(patterns, "%"+s+"%")
		if singular := strings.TrimSuffix(s, "s"); singular != s {
			patterns = append(patterns, "%"+singular+"%")
		}
	}
	return patterns
}
