// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tianxiu2b2t/dashboard/internal/logging"
	"github.com/tianxiu2b2t/dashboard/internal/stats"
	appsync "github.com/tianxiu2b2t/dashboard/internal/sync"
)

// SyncService wraps the catalog sync manager as a Suture service.
type SyncService struct {
	manager *appsync.Manager
}

// NewSyncService creates a sync service wrapper.
func NewSyncService(manager *appsync.Manager) *SyncService {
	return &SyncService{manager: manager}
}

// Serve implements suture.Service. Starts the sync manager's periodic
// loops and blocks until the context is canceled.
func (s *SyncService) Serve(ctx context.Context) error {
	logging.Info().Msg("Starting catalog sync service")

	if err := s.manager.Start(ctx); err != nil {
		logging.Error().Err(err).Msg("Failed to start catalog sync manager")
		return err
	}

	<-ctx.Done()

	logging.Info().Msg("Stopping catalog sync service")
	if err := s.manager.Stop(); err != nil {
		logging.Warn().Err(err).Msg("Catalog sync manager stop returned error")
	}
	return ctx.Err()
}

// String returns the service name for supervisor logging.
func (s *SyncService) String() string {
	return "catalog-sync"
}

// StatsService wraps the traffic stats collector flush loop as a Suture
// service.
type StatsService struct {
	collector *stats.Collector
	target    stats.Flusher
}

// NewStatsService creates a stats flush service wrapper.
func NewStatsService(collector *stats.Collector, target stats.Flusher) *StatsService {
	return &StatsService{collector: collector, target: target}
}

// Serve implements suture.Service. Run blocks until the context is
// canceled and performs a final flush on the way out.
func (s *StatsService) Serve(ctx context.Context) error {
	logging.Info().Msg("Starting traffic stats flush service")
	s.collector.Run(ctx, s.target)
	return ctx.Err()
}

// String returns the service name for supervisor logging.
func (s *StatsService) String() string {
	return "stats-flush"
}

// HTTPService wraps an http.Server as a Suture service with graceful
// shutdown.
type HTTPService struct {
	server          *http.Server
	shutdownTimeout time.Duration
}

// NewHTTPService creates an HTTP service wrapper. A zero shutdownTimeout
// falls back to 10s.
func NewHTTPService(server *http.Server, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service. Runs ListenAndServe and shuts the
// server down gracefully when the context is canceled. A listen failure
// is returned to the supervisor so the service restarts with backoff.
func (s *HTTPService) Serve(ctx context.Context) error {
	logging.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("HTTP server shutdown did not complete cleanly")
	}
	<-errCh
	return ctx.Err()
}

// String returns the service name for supervisor logging.
func (s *HTTPService) String() string {
	return "http-server"
}
