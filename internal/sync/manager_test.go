// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tianxiu2b2t/dashboard/internal/config"
	"github.com/tianxiu2b2t/dashboard/internal/models"
)

// serveCatalog answers appinfo requests for a fixed set of packages, each
// with its own app id. Requests may resolve by pkgName or by appId, like
// the real endpoint. Unknown packages get a 502.
func (f *upstreamFake) serveCatalog(t *testing.T, catalog map[string]string) {
	t.Helper()
	f.appinfo.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		pkg, _ := body["pkgName"].(string)
		appID, ok := catalog[pkg]
		if !ok {
			if id, _ := body["appId"].(string); id != "" {
				for p, a := range catalog {
					if a == id {
						pkg, appID, ok = p, a, true
						break
					}
				}
			}
		}
		if !ok {
			http.Error(w, "unknown package", http.StatusBadGateway)
			return
		}
		rec := testRawRecord(t, func(a *models.RawApp) {
			a.PkgName = pkg
			a.AppID = appID
		})
		writeJSON(w, rec.Payload)
	}))
}

func testSyncConfig(fake *upstreamFake, syncCfg config.SyncConfig) *config.Config {
	return &config.Config{
		Upstream: fake.upstreamConfig(),
		Sync:     syncCfg,
	}
}

func newTestManager(fake *upstreamFake, store Store, syncCfg config.SyncConfig) *Manager {
	return NewManager(store, fake.newFetcher(), testSyncConfig(fake, syncCfg))
}

func TestTriggerSyncFullCatalog(t *testing.T) {
	fake := newUpstreamFake(t)
	fake.serveCatalog(t, map[string]string{
		"com.example.one":   "C100000000000001",
		"com.example.two":   "C100000000000002",
		"com.example.three": "C100000000000003",
	})

	store := newMemStore()
	m := newTestManager(fake, store, config.SyncConfig{
		BatchSize: 2,
		WaveDelay: time.Millisecond,
		Packages: []string{
			"com.example.one",
			"com.example.two",
			"com.example.three",
			"com.example.broken",
		},
	})

	if err := m.TriggerSync(context.Background()); err != nil {
		t.Fatalf("TriggerSync failed: %v", err)
	}

	snap := m.Progress().Snapshot()
	if snap.Running {
		t.Error("progress must be idle after the run")
	}
	if snap.Total != 4 || snap.Processed != 4 {
		t.Errorf("total=%d processed=%d, want 4/4", snap.Total, snap.Processed)
	}
	if snap.Inserted != 3 {
		t.Errorf("inserted = %d, want 3", snap.Inserted)
	}
	if snap.Failed != 1 {
		t.Errorf("failed = %d, want 1", snap.Failed)
	}
	if snap.TotalWaves != 2 || snap.CurrentWave != 2 {
		t.Errorf("waves = %d/%d, want 2/2", snap.CurrentWave, snap.TotalWaves)
	}
	if len(store.infos) != 3 {
		t.Errorf("store has %d apps, want 3", len(store.infos))
	}
	if m.LastSyncTime().IsZero() {
		t.Error("lastSync must be set after a completed run")
	}
}

func TestTriggerSyncSecondRunSkipsUnchanged(t *testing.T) {
	fake := newUpstreamFake(t)
	fake.serveCatalog(t, map[string]string{"com.example.one": "C100000000000001"})

	store := newMemStore()
	m := newTestManager(fake, store, config.SyncConfig{
		BatchSize: 10,
		Packages:  []string{"com.example.one"},
	})
	ctx := context.Background()

	if err := m.TriggerSync(ctx); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := m.TriggerSync(ctx); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	snap := m.Progress().Snapshot()
	if snap.Skipped != 1 || snap.Inserted != 0 {
		t.Errorf("second run skipped=%d inserted=%d, want 1/0", snap.Skipped, snap.Inserted)
	}
}

func TestTriggerSyncRejectsConcurrentRun(t *testing.T) {
	fake := newUpstreamFake(t)
	store := newMemStore()
	m := newTestManager(fake, store, config.SyncConfig{BatchSize: 10})

	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	err := m.TriggerSync(context.Background())
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}
}

func TestTriggerSyncPicksUpStoredPackages(t *testing.T) {
	fake := newUpstreamFake(t)
	fake.serveCatalog(t, map[string]string{
		"com.example.stored": "C100000000000007",
		"com.example.seed":   "C100000000000008",
	})

	store := newMemStore()
	if err := store.UpsertAppInfo(context.Background(), &models.AppInfo{
		AppID:   "C100000000000007",
		PkgName: "com.example.stored",
	}); err != nil {
		t.Fatal(err)
	}

	m := newTestManager(fake, store, config.SyncConfig{
		BatchSize: 10,
		// The seed duplicates nothing; the stored package joins on its own.
		Packages: []string{"com.example.seed", "com.example.seed"},
	})

	if err := m.TriggerSync(context.Background()); err != nil {
		t.Fatalf("TriggerSync failed: %v", err)
	}

	snap := m.Progress().Snapshot()
	if snap.Total != 2 {
		t.Errorf("total = %d, want 2 (stored + deduped seed)", snap.Total)
	}
	if len(store.infos) != 2 {
		t.Errorf("store has %d apps, want 2", len(store.infos))
	}
}

func TestSyncOne(t *testing.T) {
	fake := newUpstreamFake(t)
	fake.serveCatalog(t, map[string]string{"com.example.one": "C100000000000001"})

	store := newMemStore()
	m := newTestManager(fake, store, config.SyncConfig{BatchSize: 10})
	ctx := context.Background()

	listedAt := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	out, err := m.SyncOne(ctx, models.ByPkgName("com.example.one"), &listedAt, json.RawMessage(`{"via":"api"}`))
	if err != nil {
		t.Fatalf("SyncOne failed: %v", err)
	}
	if !out.InfoChanged || !out.MetricsChanged {
		t.Errorf("first SyncOne outcome = %+v", out)
	}
	if out.Full == nil || out.Full.PkgName != "com.example.one" {
		t.Errorf("full info = %+v", out.Full)
	}
	if !store.infos["C100000000000001"].ListedAt.Equal(listedAt) {
		t.Error("listed_at override not applied")
	}

	out, err = m.SyncOne(ctx, models.ByPkgName("com.example.one"), nil, nil)
	if err != nil {
		t.Fatalf("second SyncOne failed: %v", err)
	}
	if out.Changed() {
		t.Errorf("unchanged app should report nothing new, got %+v", out)
	}
}

func TestSyncOnePropagatesFetchError(t *testing.T) {
	fake := newUpstreamFake(t)
	fake.serveCatalog(t, map[string]string{})

	m := newTestManager(fake, newMemStore(), config.SyncConfig{BatchSize: 10})

	_, err := m.SyncOne(context.Background(), models.ByPkgName("com.example.missing"), nil, nil)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}

func TestDiscoverAndSync(t *testing.T) {
	fake := newUpstreamFake(t)
	fake.serveCatalog(t, map[string]string{"com.example.app": "C100000000000001"})
	fake.pageDetail.Store(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		pageID, _ := body["pageId"].(string)
		if pageID == "webAgSubstanceDetail|9000001" {
			writeJSON(w, landingPage(map[string]interface{}{
				"hasMore": 0,
				"layoutData": []interface{}{
					map[string]interface{}{
						"type": cardTypeScenarioLanding,
						"data": []interface{}{map[string]interface{}{"title": "Picks"}},
					},
					verticalListCard("C100000000000001"),
				},
			}))
			return
		}
		// App detail pages carry nothing in this test.
		writeJSON(w, landingPage(map[string]interface{}{"layoutData": []interface{}{}}))
	}))

	store := newMemStore()
	m := newTestManager(fake, store, config.SyncConfig{BatchSize: 10})

	snap, isNew, err := m.DiscoverAndSync(context.Background(), "9000001")
	if err != nil {
		t.Fatalf("DiscoverAndSync failed: %v", err)
	}
	if !isNew {
		t.Error("first discovery must report a new collection")
	}
	if snap.Title != "Picks" {
		t.Errorf("title = %q", snap.Title)
	}
	// The member was synced by app id, so the mapping resolves.
	if _, ok := store.collMembers["9000001"]["C100000000000001"]; !ok {
		t.Error("member must be synced and mapped")
	}
	if _, ok := store.infos["C100000000000001"]; !ok {
		t.Error("member app must be persisted before mapping")
	}
}

func TestManagerStartStop(t *testing.T) {
	fake := newUpstreamFake(t)
	fake.serveCatalog(t, map[string]string{"com.example.one": "C100000000000001"})

	store := newMemStore()
	m := newTestManager(fake, store, config.SyncConfig{
		Interval:  time.Hour, // loop must not tick during the test
		BatchSize: 10,
		Packages:  []string{"com.example.one"},
	})

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Start(ctx); err == nil {
		t.Error("second Start must fail")
	}

	// The initial sync runs in the background; wait for it to land.
	deadline := time.After(5 * time.Second)
	for len(store.AllPackagesSnapshot()) == 0 {
		select {
		case <-deadline:
			t.Fatal("initial sync did not complete")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := m.Stop(); err == nil {
		t.Error("second Stop must fail")
	}
}

// AllPackagesSnapshot reads the package index without error plumbing,
// test-side convenience only.
func (s *memStore) AllPackagesSnapshot() []string {
	names, _ := s.AllPackageNames(context.Background())
	return names
}

func TestChunkQueries(t *testing.T) {
	queries := make([]models.AppQuery, 2500)
	for i := range queries {
		queries[i] = models.ByPkgName(fmt.Sprintf("com.example.app%04d", i))
	}

	waves := chunkQueries(queries, 1000)
	if len(waves) != 3 {
		t.Fatalf("2500 apps at 1000 per wave = %d waves, want 3", len(waves))
	}
	if len(waves[0]) != 1000 || len(waves[1]) != 1000 || len(waves[2]) != 500 {
		t.Errorf("wave sizes = %d/%d/%d, want 1000/1000/500", len(waves[0]), len(waves[1]), len(waves[2]))
	}

	if got := chunkQueries(queries[:0], 1000); len(got) != 0 {
		t.Errorf("empty input must produce no waves, got %d", len(got))
	}
	if got := chunkQueries(queries[:5], 0); len(got) != 5 {
		t.Errorf("zero batch size must fall back to singleton waves, got %d", len(got))
	}
}
