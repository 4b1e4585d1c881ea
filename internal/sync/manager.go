// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

/*
manager.go - Sync Manager Lifecycle and Orchestration

This file contains the sync manager struct, initialization, and lifecycle
methods for orchestrating catalog synchronization from AppGallery.

Lifecycle Methods:
  - NewManager(): Initialize manager with store, fetcher and configuration
  - Start(): Begin periodic catalog and collection sync loops
  - Stop(): Gracefully shutdown all loops and wait for completion
  - TriggerSync(): Manual full-catalog sync (rejected while one runs)
  - SyncOne(): Fetch and persist a single app on demand

Thread Safety:
  - syncMu: Prevents concurrent full-catalog sync execution
  - mu: Protects shared state (running, lastSync)
  - All loops use WaitGroup for coordinated shutdown
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tianxiu2b2t/dashboard/internal/config"
	"github.com/tianxiu2b2t/dashboard/internal/logging"
	"github.com/tianxiu2b2t/dashboard/internal/metrics"
	"github.com/tianxiu2b2t/dashboard/internal/models"
)

// ErrSyncInProgress is returned when a full-catalog sync is requested
// while one is already running.
var ErrSyncInProgress = fmt.Errorf("catalog sync already in progress")

// Manager orchestrates catalog synchronization from AppGallery to the store.
type Manager struct {
	store    Store
	fetcher  *Fetcher
	cfg      *config.Config
	progress *Progress
	lastSync time.Time
	running  bool
	mu       sync.RWMutex
	syncMu   sync.Mutex // Protects concurrent full-catalog sync execution
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a sync manager.
func NewManager(store Store, fetcher *Fetcher, cfg *config.Config) *Manager {
	m := &Manager{
		store:    store,
		fetcher:  fetcher,
		cfg:      cfg,
		progress: NewProgress(),
		stopChan: make(chan struct{}),
	}

	logging.Info().
		Dur("interval", cfg.Sync.Interval).
		Dur("collection_interval", cfg.Sync.CollectionInterval).
		Int("batch_size", cfg.Sync.BatchSize).
		Int("seed_packages", len(cfg.Sync.Packages)).
		Int("seed_collections", len(cfg.Sync.Collections)).
		Msg("Sync manager config loaded")

	return m
}

// Progress exposes the batch progress tracker for the status endpoint and
// the SSE stream.
func (m *Manager) Progress() *Progress { return m.progress }

// LastSyncTime returns when the last full-catalog sync completed.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

// Start begins the periodic synchronization loops. A zero interval
// disables the corresponding loop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}

	logging.Info().Msg("Starting sync manager...")

	m.running = true
	m.mu.Unlock()

	if m.cfg.Sync.Interval > 0 {
		// Add all goroutines to WaitGroup BEFORE starting them
		// This prevents Stop() from calling Wait() before all Add() calls complete
		m.wg.Add(2) // One for initial sync, one for sync loop

		// Perform initial sync in background to avoid blocking server startup
		go func() {
			defer m.wg.Done()
			if err := m.TriggerSync(ctx); err != nil {
				logging.Warn().Err(err).Msg("Initial catalog sync failed (will retry on next tick)")
			}
		}()

		go m.syncLoop(ctx)
		logging.Info().Msg("Catalog sync loop started")
	} else {
		logging.Info().Msg("Catalog sync loop disabled (SYNC_INTERVAL=0)")
	}

	if m.cfg.Sync.CollectionInterval > 0 {
		m.wg.Add(1)
		go m.collectionLoop(ctx)
		logging.Info().Msg("Collection discovery loop started")
	} else {
		logging.Info().Msg("Collection discovery loop disabled (SYNC_COLLECTION_INTERVAL=0)")
	}

	return nil
}

// Stop gracefully stops the synchronization loops.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is not running")
	}
	m.running = false
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager...")
	close(m.stopChan)
	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")
	return nil
}

// syncLoop runs full-catalog syncs on the configured interval.
func (m *Manager) syncLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Sync.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.TriggerSync(ctx); err != nil {
				logging.Warn().Err(err).Msg("Scheduled catalog sync failed")
			}
		}
	}
}

// collectionLoop runs collection discovery on the configured interval.
func (m *Manager) collectionLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Sync.CollectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.SyncCollections(ctx); err != nil {
				logging.Warn().Err(err).Msg("Scheduled collection discovery failed")
			}
		}
	}
}

// TriggerSync runs one full-catalog sync. Returns ErrSyncInProgress when
// one is already running instead of queueing behind it.
func (m *Manager) TriggerSync(ctx context.Context) error {
	if !m.syncMu.TryLock() {
		return ErrSyncInProgress
	}
	defer m.syncMu.Unlock()

	return m.syncAll(ctx)
}

// SyncOne fetches and persists a single app on demand. listedAt and
// comment override the store-owned audit fields the way the manual sync
// endpoint allows.
func (m *Manager) SyncOne(ctx context.Context, query models.AppQuery, listedAt *time.Time, comment json.RawMessage) (SaveOutcome, error) {
	rec, err := m.fetcher.Fetch(ctx, query)
	if err != nil {
		metrics.SyncErrors.WithLabelValues(errorType(err)).Inc()
		return SaveOutcome{}, err
	}

	out, err := SaveAppData(ctx, m.store, rec, listedAt, comment)
	if err != nil {
		metrics.SyncErrors.WithLabelValues(errorType(err)).Inc()
		return out, err
	}

	if out.InfoChanged || out.MetricsChanged {
		metrics.RecordSyncOutcome(OutcomeInserted)
	} else {
		metrics.RecordSyncOutcome(OutcomeSkipped)
	}
	return out, nil
}
