package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/integhra/ragstore/internal/database"
)

// IndexState describes whether the approximate similarity index exists.
type IndexState string

const (
	// IndexStateUnindexed means searches run as exact sequential scans.
	IndexStateUnindexed IndexState = "unindexed"
	// IndexStateIndexed means the ivfflat index is in place and searches
	// are approximate.
	IndexStateIndexed IndexState = "indexed"
)

// VectorIndexName is the name of the approximate similarity index.
const VectorIndexName = "idx_embeddings_embedding"

// ErrVectorIndexUnsupported is returned for backends without an
// approximate vector index (sqlite).
var ErrVectorIndexUnsupported = errors.New("vector index not supported by this database")

const (
	indexProbeQuery = `
SELECT COUNT(*) FROM pg_indexes
WHERE tablename = 'embeddings' AND indexname = ?`

	indexCreateTemplate = `
CREATE INDEX IF NOT EXISTS %s
ON embeddings USING ivfflat (embedding vector_cosine_ops)
WITH (lists = %d)`
)

// VectorIndex manages the ivfflat index on the embeddings table. The index
// is never created during store initialization: ivfflat clustering is only
// meaningful once the table holds a representative corpus, so creation is a
// deliberate one-time operation after bulk ingestion.
type VectorIndex struct {
	db      database.Database
	minRows int64
	logger  *slog.Logger
}

// IndexStatus reports the current index state alongside the row count the
// decision to index is based on.
type IndexStatus struct {
	State IndexState
	Rows  int64
}

// NewVectorIndex creates a VectorIndex. minRows is the row count below
// which Create logs a warning about poor ivfflat recall.
func NewVectorIndex(db database.Database, minRows int64, logger *slog.Logger) *VectorIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorIndex{db: db, minRows: minRows, logger: logger}
}

// Status probes pg_indexes for the index and counts table rows.
func (v *VectorIndex) Status(ctx context.Context) (IndexStatus, error) {
	if !v.db.IsPostgres() {
		return IndexStatus{}, ErrVectorIndexUnsupported
	}

	session := v.db.Session(ctx)

	var indexCount int64
	if err := session.Raw(indexProbeQuery, VectorIndexName).Scan(&indexCount).Error; err != nil {
		return IndexStatus{}, fmt.Errorf("probe vector index: %w", err)
	}

	var rows int64
	if err := session.Raw("SELECT COUNT(*) FROM embeddings").Scan(&rows).Error; err != nil {
		return IndexStatus{}, fmt.Errorf("count embeddings: %w", err)
	}

	status := IndexStatus{State: IndexStateUnindexed, Rows: rows}
	if indexCount > 0 {
		status.State = IndexStateIndexed
	}
	return status, nil
}

// Create builds the ivfflat index with the given list count. Creating the
// index on a small table is allowed but logged as a warning, since ivfflat
// recall degrades when lists outnumber meaningful clusters. Idempotent.
func (v *VectorIndex) Create(ctx context.Context, lists int) (IndexStatus, error) {
	if !v.db.IsPostgres() {
		return IndexStatus{}, ErrVectorIndexUnsupported
	}
	if lists <= 0 {
		return IndexStatus{}, fmt.Errorf("invalid lists value: %d", lists)
	}

	status, err := v.Status(ctx)
	if err != nil {
		return IndexStatus{}, err
	}
	if status.State == IndexStateIndexed {
		v.logger.InfoContext(ctx, "vector index already exists", slog.String("index", VectorIndexName))
		return status, nil
	}
	if status.Rows < v.minRows {
		v.logger.WarnContext(ctx, "creating vector index on small table, recall may suffer",
			slog.Int64("rows", status.Rows),
			slog.Int64("recommended_min", v.minRows))
	}

	stmt := fmt.Sprintf(indexCreateTemplate, VectorIndexName, lists)
	if err := v.db.Session(ctx).Exec(stmt).Error; err != nil {
		return IndexStatus{}, fmt.Errorf("create vector index: %w", err)
	}

	v.logger.InfoContext(ctx, "vector index created",
		slog.String("index", VectorIndexName),
		slog.Int("lists", lists),
		slog.Int64("rows", status.Rows))

	status.State = IndexStateIndexed
	return status, nil
}
