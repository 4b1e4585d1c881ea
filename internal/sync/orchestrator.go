// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package sync

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tianxiu2b2t/dashboard/internal/logging"
	"github.com/tianxiu2b2t/dashboard/internal/metrics"
	"github.com/tianxiu2b2t/dashboard/internal/models"
)

// syncAll runs one full-catalog sync: every package the store has ever
// seen plus the configured seed list, fetched in concurrent waves.
// Individual app failures are counted and logged, never fatal; the run
// only aborts on cancellation or credential exhaustion, since a dead
// interface code fails every remaining item the same way.
func (m *Manager) syncAll(ctx context.Context) error {
	start := time.Now()
	metrics.SyncInProgress.Set(1)
	defer metrics.SyncInProgress.Set(0)

	queries, err := m.trackedQueries(ctx)
	if err != nil {
		return err
	}
	if m.cfg.Sync.Shuffle {
		// Random order spreads retry pressure across the catalog when a
		// run gets cut short.
		rand.Shuffle(len(queries), func(i, j int) {
			queries[i], queries[j] = queries[j], queries[i]
		})
	}

	waves := chunkQueries(queries, m.cfg.Sync.BatchSize)
	m.progress.Begin(len(queries), len(waves))
	defer m.progress.Finish()

	logging.Info().Int("apps", len(queries)).Int("waves", len(waves)).Int("batch_size", m.cfg.Sync.BatchSize).Msg("Catalog sync started")

	for i, wave := range waves {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-m.stopChan:
			return nil
		default:
		}

		waveStart := time.Now()
		err := m.runWave(ctx, wave)
		metrics.SyncWaveDuration.Observe(time.Since(waveStart).Seconds())
		m.progress.WaveDone()
		if err != nil {
			logging.Error().Err(err).Int("wave", i+1).Msg("Catalog sync aborted")
			return err
		}

		if m.cfg.Sync.WaveDelay > 0 && i < len(waves)-1 {
			select {
			case <-time.After(m.cfg.Sync.WaveDelay):
			case <-ctx.Done():
				return ctx.Err()
			case <-m.stopChan:
				return nil
			}
		}
	}

	m.mu.Lock()
	m.lastSync = time.Now()
	m.mu.Unlock()

	metrics.SyncDuration.Observe(time.Since(start).Seconds())
	metrics.LastSyncTimestamp.SetToCurrentTime()

	snap := m.progress.Snapshot()
	logging.Info().
		Int("processed", snap.Processed).
		Int("inserted", snap.Inserted).
		Int("skipped", snap.Skipped).
		Int("failed", snap.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("Catalog sync finished")

	return nil
}

// runWave fetches and persists one wave of apps concurrently and joins
// before returning. A credential failure from any item is returned so the
// caller can abort instead of grinding through the rest of the catalog
// without a usable interface code.
func (m *Manager) runWave(ctx context.Context, wave []models.AppQuery) error {
	var (
		wg      sync.WaitGroup
		errMu   sync.Mutex
		credErr error
	)
	wg.Add(len(wave))
	for _, query := range wave {
		go func(q models.AppQuery) {
			defer wg.Done()
			outcome, err := m.syncQuery(ctx, q)
			m.progress.ItemDone(outcome)
			metrics.RecordSyncOutcome(outcome)

			var ce *CredentialError
			if errors.As(err, &ce) {
				errMu.Lock()
				if credErr == nil {
					credErr = err
				}
				errMu.Unlock()
			}
		}(query)
	}
	wg.Wait()
	return credErr
}

// syncQuery processes one app and returns its outcome label together with
// the failure cause, when there is one.
func (m *Manager) syncQuery(ctx context.Context, query models.AppQuery) (string, error) {
	rec, err := m.fetcher.Fetch(ctx, query)
	if err != nil {
		metrics.SyncErrors.WithLabelValues(errorType(err)).Inc()
		logging.Warn().Err(err).Str("query", query.String()).Msg("App fetch failed")
		return OutcomeFailed, err
	}

	out, err := SaveAppData(ctx, m.store, rec, nil, nil)
	if err != nil {
		metrics.SyncErrors.WithLabelValues(errorType(err)).Inc()
		logging.Warn().Err(err).Str("query", query.String()).Msg("App save failed")
		return OutcomeFailed, err
	}

	if out.InfoChanged || out.MetricsChanged {
		return OutcomeInserted, nil
	}
	return OutcomeSkipped, nil
}

// trackedQueries merges the configured seed packages with everything the
// store already knows, deduplicated and sorted.
func (m *Manager) trackedQueries(ctx context.Context) ([]models.AppQuery, error) {
	known, err := m.store.AllPackageNames(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "package listing", Err: err}
	}

	queries := make([]models.AppQuery, 0, len(known)+len(m.cfg.Sync.Packages))
	for _, name := range m.cfg.Sync.Packages {
		queries = append(queries, models.ParseQuery(name))
	}
	for _, name := range known {
		queries = append(queries, models.ByPkgName(name))
	}
	return models.DedupQueries(queries), nil
}

// SyncCollections walks every tracked collection, syncs the union of
// their members, then persists the collection snapshots. Member and
// collection failures warn and continue.
func (m *Manager) SyncCollections(ctx context.Context) error {
	ids, err := m.trackedCollectionIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	logging.Info().Int("collections", len(ids)).Msg("Collection discovery started")

	snapshots := make([]*models.CollectionSnapshot, 0, len(ids))
	var members []models.AppQuery
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap, err := m.fetcher.DiscoverCollection(ctx, id)
		if err != nil {
			metrics.SyncErrors.WithLabelValues(errorType(err)).Inc()
			logging.Warn().Err(err).Str("collection_id", id).Msg("Collection walk failed")
			continue
		}
		snapshots = append(snapshots, snap)
		members = append(members, snap.Members...)
	}

	// Members are synced before the snapshots are saved so the membership
	// mapping can resolve every app id.
	for _, query := range models.DedupQueries(members) {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome, err := m.syncQuery(ctx, query)
		metrics.RecordSyncOutcome(outcome)
		var ce *CredentialError
		if errors.As(err, &ce) {
			return err
		}
	}

	for _, snap := range snapshots {
		isNew, err := SaveCollection(ctx, m.store, snap, nil)
		if err != nil {
			metrics.SyncErrors.WithLabelValues(errorType(err)).Inc()
			logging.Warn().Err(err).Str("collection_id", snap.ID).Msg("Collection save failed")
			continue
		}
		if isNew {
			logging.Info().Str("collection_id", snap.ID).Str("title", snap.Title).Int("members", len(snap.Members)).Msg("New collection tracked")
		}
	}

	return nil
}

// DiscoverAndSync walks a single collection on demand, syncs its members
// and persists the snapshot. Used by the manual collection endpoint.
func (m *Manager) DiscoverAndSync(ctx context.Context, id string) (*models.CollectionSnapshot, bool, error) {
	snap, err := m.fetcher.DiscoverCollection(ctx, id)
	if err != nil {
		metrics.SyncErrors.WithLabelValues(errorType(err)).Inc()
		return nil, false, err
	}

	for _, query := range snap.Members {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		outcome, err := m.syncQuery(ctx, query)
		metrics.RecordSyncOutcome(outcome)
		var ce *CredentialError
		if errors.As(err, &ce) {
			return nil, false, err
		}
	}

	isNew, err := SaveCollection(ctx, m.store, snap, nil)
	if err != nil {
		metrics.SyncErrors.WithLabelValues(errorType(err)).Inc()
		return snap, isNew, err
	}
	return snap, isNew, nil
}

// trackedCollectionIDs merges the configured collection ids with the ones
// the store already tracks.
func (m *Manager) trackedCollectionIDs(ctx context.Context) ([]string, error) {
	known, err := m.store.AllCollectionIDs(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "collection listing", Err: err}
	}

	seen := make(map[string]struct{}, len(known)+len(m.cfg.Sync.Collections))
	ids := make([]string, 0, len(known)+len(m.cfg.Sync.Collections))
	for _, id := range append(append([]string(nil), m.cfg.Sync.Collections...), known...) {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
