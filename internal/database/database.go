// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

/*
database.go - DuckDB Store

This file opens the DuckDB database, configures the connection pool and
bootstraps the schema. The rest of the package implements the sync.Store
persistence contract plus the read queries the HTTP API serves.

Tables:
  - app_info: slowly-changing identity row per app (primary key app_id)
  - app_metrics: append-only measurement rows (version, size, downloads, price)
  - app_rating: append-only star-distribution rows from the detail page
  - app_record: filing information, one row per app, upserted every sync
  - app_data_history: raw upstream payloads, appended on identity or
    metrics change
  - substance_info: curated collection metadata
  - substance_history: raw landing payloads per discovery pass
  - substance_app_map: collection membership links
  - traffic_stats: aggregated caller counters flushed by internal/stats

JSON payloads (history, comments) are stored as TEXT so the bytes written
are the bytes read back; change detection compares parsed values, not
storage representation, but TEXT keeps the round trip boring.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tianxiu2b2t/dashboard/internal/config"
	"github.com/tianxiu2b2t/dashboard/internal/logging"
	"github.com/tianxiu2b2t/dashboard/internal/metrics"
)

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New creates a new database connection and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure parent directory exists for the database file.
	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
		}
	}

	// Disable auto-install/auto-load to prevent hangs in restricted
	// network environments; no extensions are needed here.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads)
	if cfg.MaxMemory != "" {
		connStr += "&max_memory=" + cfg.MaxMemory
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}
	db.configureConnectionPool()

	if err := db.createSchema(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", numThreads).
		Msg("Database opened")

	return db, nil
}

// configureConnectionPool sets connection pool parameters.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	logging.Info().Msg("Closing database connection")
	return db.conn.Close()
}

// observe records query duration and errors for one operation.
func observe(operation, table string, start time.Time, err error) {
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
}

func closeQuietly(c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		logging.Warn().Err(err).Msg("Close failed")
	}
}
