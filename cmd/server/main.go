// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

// Package main is the entry point for the AGDash server.
//
// AGDash tracks Huawei AppGallery catalog entries over time. It polls the
// AppGallery edge API for tracked apps and curated collections, records
// version and metric history in DuckDB, and serves the stored catalog over
// a REST API with live sync progress streaming.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, optional YAML file, environment variables (Koanf v2)
//  2. Database: DuckDB store with catalog, history and traffic tables
//  3. Credential manager: interface-code rotation for upstream requests
//  4. Sync manager: upstream client, fetcher and periodic sync loops
//  5. Traffic stats: bounded in-memory counters flushed on an interval
//  6. HTTP server: chi REST API with SSE progress stream and Prometheus metrics
//
// All long-running components run under a Suture supervisor tree so a
// crashing sync loop restarts with backoff without taking the API down.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (e.g. HTTP_PORT, SYNC_INTERVAL)
//   - Config file (config.yaml, or the path in CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, waits for in-flight requests, performs a final
// traffic counter flush and closes the database.
//
// # Example Usage
//
//	export DUCKDB_PATH=/data/agdash.db
//	export HTTP_PORT=8080
//	export SYNC_INTERVAL=1h
//	./agdash
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tianxiu2b2t/dashboard/internal/api"
	"github.com/tianxiu2b2t/dashboard/internal/config"
	"github.com/tianxiu2b2t/dashboard/internal/credential"
	"github.com/tianxiu2b2t/dashboard/internal/database"
	"github.com/tianxiu2b2t/dashboard/internal/logging"
	"github.com/tianxiu2b2t/dashboard/internal/stats"
	"github.com/tianxiu2b2t/dashboard/internal/supervisor"
	appsync "github.com/tianxiu2b2t/dashboard/internal/sync"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting AGDash with supervisor tree")
	logging.Info().
		Str("upstream", cfg.Upstream.BaseURL).
		Str("db_path", cfg.Database.Path).
		Int("tracked_packages", len(cfg.Sync.Packages)).
		Int("tracked_collections", len(cfg.Sync.Collections)).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Credential manager and sync pipeline. The credential manager shares
	// the upstream HTTP client so both respect the same timeout.
	httpClient := &http.Client{Timeout: cfg.Upstream.Timeout}
	creds := credential.NewManager(cfg.Credential, cfg.Upstream.UserAgent, httpClient)
	client := appsync.NewClient(cfg.Upstream, creds, httpClient)
	fetcher := appsync.NewFetcher(client, cfg.Upstream)
	syncManager := appsync.NewManager(db, fetcher, cfg)

	// Traffic stats collector, recorded by API middleware and flushed to
	// DuckDB by a supervised service.
	collector := stats.NewCollector(cfg.Stats)

	router := api.NewRouter(db, syncManager, cfg, collector)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Bridge zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	tree := supervisor.NewTree(slogLogger, supervisor.DefaultTreeConfig())
	tree.AddSyncService(supervisor.NewSyncService(syncManager))
	tree.AddSyncService(supervisor.NewStatsService(collector, db))
	tree.AddAPIService(supervisor.NewHTTPService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
