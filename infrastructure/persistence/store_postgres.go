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

// SQL specific to the pgvector backend. All DDL is guarded so schema
// application is idempotent and safe to re-run on every startup.
const (
	pgCreateExtension = `CREATE EXTENSION IF NOT EXISTS vector`

	pgCreateTableTemplate = `
CREATE TABLE IF NOT EXISTS embeddings (
    id BIGSERIAL PRIMARY KEY,
    entity_type VARCHAR(50) NOT NULL,
    entity_id INTEGER NOT NULL,
    content_text TEXT NOT NULL,
    embedding VECTOR(%d) NOT NULL,
    metadata JSONB,
    created_at TIMESTAMP DEFAULT NOW(),
    CONSTRAINT uq_embeddings_entity UNIQUE (entity_type, entity_id)
)`

	pgCreateTypeIndex = `
CREATE INDEX IF NOT EXISTS idx_embeddings_entity_type
ON embeddings (entity_type)`

	pgCreateRecencyIndex = `
CREATE INDEX IF NOT EXISTS idx_embeddings_created_at
ON embeddings (created_at DESC)`

	pgCheckDimension = `
SELECT a.atttypmod AS dimension
FROM pg_attribute a
JOIN pg_class c ON a.attrelid = c.oid
WHERE c.relname = 'embeddings'
AND a.attname = 'embedding'`
)

// ErrPostgresInitializationFailed indicates pgvector store initialization failed.
var ErrPostgresInitializationFailed = errors.New("failed to initialize pgvector store")

// PostgresStore implements embedding.Store on PostgreSQL with the pgvector
// extension. Similarity search runs through the <=> cosine distance
// operator; until the deferred ivfflat index is built it degrades to a
// sequential scan, which stays correct but is linear in row count.
type PostgresStore struct {
	db     database.Database
	dim    int
	logger *slog.Logger
}

// NewPostgresStore creates a PostgresStore, eagerly initializing the
// extension, table, and scalar indexes, and verifying the vector column's
// declared dimension. The ivfflat vector index is intentionally NOT created
// here; see VectorIndex.
func NewPostgresStore(ctx context.Context, db database.Database, dimension int, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PostgresStore{db: db, dim: dimension, logger: logger}

	session := db.Session(ctx)

	if err := session.Exec(pgCreateExtension).Error; err != nil {
		return nil, errors.Join(ErrPostgresInitializationFailed, fmt.Errorf("create extension: %w", err))
	}

	// Dynamic dimension requires raw SQL.
	if err := session.Exec(fmt.Sprintf(pgCreateTableTemplate, dimension)).Error; err != nil {
		return nil, errors.Join(ErrPostgresInitializationFailed, fmt.Errorf("create table: %w", err))
	}

	for _, stmt := range []string{pgCreateTypeIndex, pgCreateRecencyIndex} {
		if err := session.Exec(stmt).Error; err != nil {
			return nil, errors.Join(ErrPostgresInitializationFailed, fmt.Errorf("create index: %w", err))
		}
	}

	// Verify the existing column matches the configured dimension; a
	// pre-existing table from another embedding model must not be written to.
	var dbDimension int
	result := session.Raw(pgCheckDimension).Scan(&dbDimension)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Join(ErrPostgresInitializationFailed, fmt.Errorf("check dimension: %w", result.Error))
	}
	if result.RowsAffected > 0 && dbDimension > 0 && dbDimension != dimension {
		return nil, fmt.Errorf("%w: database has %d, configured %d", embedding.ErrDimensionMismatch, dbDimension, dimension)
	}

	return s, nil
}

// Upsert persists records, replacing any existing row with the same
// (entity_type, entity_id) pair. created_at advances on replace, matching
// the recency index's view of "last ingested".
func (s *PostgresStore) Upsert(ctx context.Context, records []embedding.Record) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	models := make([]PgRecordModel, len(records))
	for i, r := range records {
		if err := r.Validate(s.dim); err != nil {
			return fmt.Errorf("record %s/%d: %w", r.EntityType(), r.EntityID(), err)
		}
		models[i] = pgToModel(r, now)
	}

	return s.db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_type"}, {Name: "entity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"content_text", "embedding", "metadata", "created_at"}),
		}).Create(&models).Error
	})
}

// Insert persists a single record, surfacing ErrDuplicateEntity when the
// (entity_type, entity_id) pair already exists.
func (s *PostgresStore) Insert(ctx context.Context, record embedding.Record) (embedding.Record, error) {
	if err := record.Validate(s.dim); err != nil {
		return embedding.Record{}, err
	}

	model := pgToModel(record, time.Now().UTC())
	if err := s.db.Session(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return embedding.Record{}, fmt.Errorf("%w: %s/%d", embedding.ErrDuplicateEntity, record.EntityType(), record.EntityID())
		}
		return embedding.Record{}, fmt.Errorf("insert embedding: %w", err)
	}
	return pgToDomain(model), nil
}

// Find retrieves records matching the given options.
func (s *PostgresStore) Find(ctx context.Context, options ...repository.Option) ([]embedding.Record, error) {
	var models []PgRecordModel
	db := database.ApplyOptions(s.db.Session(ctx), options...)
	if err := db.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find embeddings: %w", err)
	}

	records := make([]embedding.Record, len(models))
	for i, m := range models {
		records[i] = pgToDomain(m)
	}
	return records, nil
}

// FindOne retrieves a single record matching the given options.
func (s *PostgresStore) FindOne(ctx context.Context, options ...repository.Option) (embedding.Record, error) {
	var model PgRecordModel
	db := database.ApplyOptions(s.db.Session(ctx), options...)
	if err := db.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return embedding.Record{}, ErrNotFound
		}
		return embedding.Record{}, fmt.Errorf("find embedding: %w", err)
	}
	return pgToDomain(model), nil
}

// Search ranks records by cosine distance to the vector passed via
// WithVector, applying condition options and hard metadata filters in SQL.
func (s *PostgresStore) Search(ctx context.Context, options ...repository.Option) ([]embedding.Result, error) {
	q := repository.Build(options...)
	vector, ok := embedding.VectorFrom(q)
	if !ok || len(vector) == 0 {
		return []embedding.Result{}, nil
	}

	limit := q.LimitValue()
	if limit <= 0 {
		limit = 10
	}

	queryVector := database.NewVector(vector).String()

	tx := s.db.Session(ctx).Table(TableName).
		Select("id, entity_type, entity_id, content_text, metadata, created_at, embedding <=> ? AS distance", queryVector)
	tx = database.ApplyConditions(tx, options...)

	if filters, ok := embedding.FiltersFrom(q); ok {
		tx = applyPgFilters(tx, filters)
	}

	tx = tx.Order("distance ASC").Limit(limit)

	var rows []struct {
		ID         int64            `gorm:"column:id"`
		EntityType string           `gorm:"column:entity_type"`
		EntityID   int64            `gorm:"column:entity_id"`
		Content    string           `gorm:"column:content_text"`
		Metadata   database.JSONMap `gorm:"column:metadata"`
		CreatedAt  time.Time        `gorm:"column:created_at"`
		Distance   float64          `gorm:"column:distance"`
	}
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]embedding.Result, len(rows))
	for i, row := range rows {
		record := embedding.NewStoredRecord(
			row.ID, row.EntityType, row.EntityID, row.Content,
			nil, map[string]any(row.Metadata), row.CreatedAt,
		)
		// Cosine distance: 0 = identical, 2 = opposite. Map to [0, 1].
		results[i] = embedding.NewResult(record, 1.0-row.Distance/2.0)
	}
	return results, nil
}

// Count returns the number of records matching the given options.
func (s *PostgresStore) Count(ctx context.Context, options ...repository.Option) (int64, error) {
	var count int64
	db := database.ApplyConditions(s.db.Session(ctx).Model(&PgRecordModel{}), options...)
	if err := db.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// Exists checks whether any record matches the given options.
func (s *PostgresStore) Exists(ctx context.Context, options ...repository.Option) (bool, error) {
	count, err := s.Count(ctx, options...)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteBy removes records matching the given options.
func (s *PostgresStore) DeleteBy(ctx context.Context, options ...repository.Option) error {
	db := database.ApplyConditions(s.db.Session(ctx), options...)
	if err := db.Delete(&PgRecordModel{}).Error; err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	return nil
}

// applyPgFilters compiles hard metadata filters to JSONB predicates.
func applyPgFilters(tx *gorm.DB, f embedding.Filters) *gorm.DB {
	if labs := f.Labs(); len(labs) > 0 {
		tx = tx.Where("metadata->>'filter_lab' IN ?", labs)
	}
	if cats := f.Categories(); len(cats) > 0 {
		tx = tx.Where("metadata->>'filter_category' IN ?", cats)
	}
	if species := f.Species(); len(species) > 0 {
		patterns := SpeciesPatterns(species)
		clause := ""
		args := make([]any, 0, len(patterns))
		for i, p := range patterns {
			if i > 0 {
				clause += " OR "
			}
			clause += "metadata->>'species_filter' ILIKE ?"
			args = append(args, p)
		}
		tx = tx.Where("("+clause+")", args...)
	}
	if f.OffersOnly() {
		tx = tx.Where("(metadata->>'is_offer')::boolean = true")
	}
	return tx
}
