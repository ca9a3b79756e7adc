package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/domain/repository"
	"github.com/integhra/ragstore/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLite DDL. The vector is stored as JSON; sqlite has no vector type, so
// similarity search loads candidates and ranks in memory. Used for local
// development and tests.
const (
	sqliteCreateTable = `
CREATE TABLE IF NOT EXISTS embeddings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type VARCHAR(50) NOT NULL,
    entity_id INTEGER NOT NULL,
    content_text TEXT NOT NULL,
    embedding JSON NOT NULL,
    metadata JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (entity_type, entity_id)
)`

	sqliteCreateTypeIndex = `
CREATE INDEX IF NOT EXISTS idx_embeddings_entity_type
ON embeddings (entity_type)`

	sqliteCreateRecencyIndex = `
CREATE INDEX IF NOT EXISTS idx_embeddings_created_at
ON embeddings (created_at DESC)`
)

// upsertBatchSize bounds rows per INSERT to stay clear of sqlite's
// bind-variable limit.
const upsertBatchSize = 100

// SQLiteStore implements embedding.Store for SQLite.
type SQLiteStore struct {
	db     database.Database
	dim    int
	logger *slog.Logger
}

// NewSQLiteStore creates a SQLiteStore, eagerly creating the table and
// scalar indexes.
func NewSQLiteStore(ctx context.Context, db database.Database, dimension int, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQLiteStore{db: db, dim: dimension, logger: logger}

	session := db.Session(ctx)
	for _, stmt := range []string{sqliteCreateTable, sqliteCreateTypeIndex, sqliteCreateRecencyIndex} {
		if err := session.Exec(stmt).Error; err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
	}

	return s, nil
}

// Upsert persists records using batched insert-or-replace keyed on the
// (entity_type, entity_id) pair.
func (s *SQLiteStore) Upsert(ctx context.Context, records []embedding.Record) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	models := make([]SQLiteRecordModel, len(records))
	for i, r := range records {
		if err := r.Validate(s.dim); err != nil {
			return fmt.Errorf("record %s/%d: %w", r.EntityType(), r.EntityID(), err)
		}
		models[i] = sqliteToModel(r, now)
	}

	return s.db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content_text", "embedding", "metadata", "created_at"}),
		}).CreateInBatches(models, upsertBatchSize).Error
	})
}

// Insert persists a single record, surfacing ErrDuplicateEntity when the
// (entity_type, entity_id) pair already exists.
func (s *SQLiteStore) Insert(ctx context.Context, record embedding.Record) (embedding.Record, error) {
	if err := record.Validate(s.dim); err != nil {
		return embedding.Record{}, err
	}

	model := sqliteToModel(record, time.Now().UTC())
	if err := s.db.Session(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return embedding.Record{}, fmt.Errorf("%w: %s/%d", embedding.ErrDuplicateEntity, record.EntityType(), record.EntityID())
		}
		return embedding.Record{}, fmt.Errorf("insert embedding: %w", err)
	}
	return sqliteToDomain(model), nil
}

// Find retrieves records matching the given options.
func (s *SQLiteStore) Find(ctx context.Context, options ...repository.Option) ([]embedding.Record, error) {
	var models []SQLiteRecordModel
	db := database.ApplyOptions(s.db.Session(ctx), options...)
	if err := db.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find embeddings: %w", err)
	}

	records := make([]embedding.Record, len(models))
	for i, m := range models {
		records[i] = sqliteToDomain(m)
	}
	return records, nil
}

// FindOne retrieves a single record matching the given options.
func (s *SQLiteStore) FindOne(ctx context.Context, options ...repository.Option) (embedding.Record, error) {
	var model SQLiteRecordModel
	db := database.ApplyOptions(s.db.Session(ctx), options...)
	if err := db.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return embedding.Record{}, ErrNotFound
		}
		return embedding.Record{}, fmt.Errorf("find embedding: %w", err)
	}
	return sqliteToDomain(model), nil
}

// Search loads candidate records matching the condition options, applies
// hard metadata filters, and ranks by cosine similarity in memory.
func (s *SQLiteStore) Search(ctx context.Context, options ...repository.Option) ([]embedding.Result, error) {
	q := repository.Build(options...)
	vector, ok := embedding.VectorFrom(q)
	if !ok || len(vector) == 0 {
		return []embedding.Result{}, nil
	}

	limit := q.LimitValue()
	if limit <= 0 {
		limit = 10
	}

	var models []SQLiteRecordModel
	db := database.ApplyConditions(s.db.Session(ctx), options...)
	if err := db.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	filters, hasFilters := embedding.FiltersFrom(q)

	results := make([]embedding.Result, 0, len(models))
	for _, m := range models {
		if hasFilters && !matchesFilters(map[string]any(m.Metadata), filters) {
			continue
		}
		score := similarityScore(CosineSimilarity(vector, []float64(m.Embedding)))
		results = append(results, embedding.NewResult(sqliteToDomain(m), score))
	}

	return topK(results, limit), nil
}

// Count returns the number of records matching the given options.
func (s *SQLiteStore) Count(ctx context.Context, options ...repository.Option) (int64, error) {
	var count int64
	db := database.ApplyConditions(s.db.Session(ctx).Model(&SQLiteRecordModel{}), options...)
	if err := db.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// Exists checks whether any record matches the given options.
func (s *SQLiteStore) Exists(ctx context.Context, options ...repository.Option) (bool, error) {
	count, err := s.Count(ctx, options...)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteBy removes records matching the given options.
func (s *SQLiteStore) DeleteBy(ctx context.Context, options ...repository.Option) error {
	db := database.ApplyConditions(s.db.Session(ctx), options...)
	if err := db.Delete(&SQLiteRecordModel{}).Error; err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	return nil
}
