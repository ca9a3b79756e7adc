package main

import (
	"strings"

	"github.com/integhra/ragstore"
	"github.com/integhra/ragstore/internal/config"
)

// clientOptions returns the ragstore.Option slice derived from the shared
// parts of AppConfig: database storage, embedding provider, sync, and index
// configuration. Callers append entrypoint-specific options (logger, limits)
// before passing the full slice to ragstore.New.
func clientOptions(cfg config.AppConfig) []ragstore.Option {
	opts := []ragstore.Option{
		ragstore.WithDataDir(cfg.DataDir()),
		ragstore.WithModelDir(cfg.ModelDir()),
		ragstore.WithEmbeddingConfig(cfg.Embedding()),
		ragstore.WithSyncConfig(cfg.Sync()),
		ragstore.WithIndexConfig(cfg.Index()),
		ragstore.WithSearchLimit(cfg.SearchLimit()),
		ragstore.WithIngestBatchSize(cfg.IngestBatchSize()),
	}

	opts = append(opts, storageOption(cfg))

	return opts
}

// storageOption returns the ragstore.Option for the configured database
// backend.
func storageOption(cfg config.AppConfig) ragstore.Option {
	dbURL := cfg.DBURL()

	if dbURL != "" && !isSQLite(dbURL) {
		return ragstore.WithPostgres(dbURL)
	}

	dbPath := cfg.DataDir() + "/ragstore.db"
	if dbURL != "" && isSQLite(dbURL) {
		dbPath = strings.TrimPrefix(dbURL, "sqlite:///")
		if dbPath == dbURL {
			dbPath = strings.TrimPrefix(dbURL, "sqlite:")
		}
	}

	return ragstore.WithSQLite(dbPath)
}

// isSQLite checks if the database URL is for SQLite.
func isSQLite(url string) bool {
	return strings.HasPrefix(url, "sqlite:")
}
