package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/integhra/ragstore/domain/embedding"
	"github.com/integhra/ragstore/internal/database"
)

// HealthStatus reports connectivity and schema readiness.
type HealthStatus struct {
	Database        bool
	VectorExtension bool
	Records         int64
}

// Healthy reports whether the storage backend is fully usable.
func (h HealthStatus) Healthy() bool {
	return h.Database && h.VectorExtension
}

// Health probes the database and the vector extension.
type Health struct {
	db     database.Database
	store  embedding.Store
	logger *slog.Logger
}

// NewHealth creates a Health service.
func NewHealth(db database.Database, store embedding.Store, logger *slog.Logger) *Health {
	if logger == nil {
		logger = slog.Default()
	}
	return &Health{db: db, store: store, logger: logger}
}

// Check probes connectivity, the pgvector extension (Postgres only;
// SQLite has no extension and reports true), and the record count.
func (h *Health) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{}
	session := h.db.Session(ctx)

	var one int
	if err := session.Raw("SELECT 1").Scan(&one).Error; err != nil {
		h.logger.WarnContext(ctx, "database probe failed", slog.String("error", err.Error()))
		return status
	}
	status.Database = true

	if h.db.IsPostgres() {
		var extension string
		err := session.Raw("SELECT extname FROM pg_extension WHERE extname = 'vector'").Scan(&extension).Error
		if err != nil {
			h.logger.WarnContext(ctx, "extension probe failed", slog.String("error", err.Error()))
		}
		status.VectorExtension = extension == "vector"
	} else {
		status.VectorExtension = true
	}

	count, err := h.store.Count(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "record count failed", slog.String("error", err.Error()))
	} else {
		status.Records = count
	}

	return status
}

// Require returns an error when the backend is not fully usable; used as
// a preflight by ingest and sync commands.
func (h *Health) Require(ctx context.Context) error {
	status := h.Check(ctx)
	if !status.Database {
		return fmt.Errorf("database unreachable")
	}
	if !status.VectorExtension {
		return fmt.Errorf("vector extension missing")
	}
	return nil
}
