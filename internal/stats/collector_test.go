// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package stats

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tianxiu2b2t/dashboard/internal/config"
	"github.com/tianxiu2b2t/dashboard/internal/models"
)

func testConfig() config.StatsConfig {
	return config.StatsConfig{
		Enabled:       true,
		FlushInterval: 10 * time.Millisecond,
		MaxEntries:    100,
	}
}

func TestRecordCounts(t *testing.T) {
	c := NewCollector(testConfig())

	c.Record("/api/apps", "curl/8.0", "203.0.113.9")
	c.Record("/api/apps", "curl/8.0", "203.0.113.10")
	c.Record("/api/collections", "", "203.0.113.9")

	snap := c.Snapshot()
	if snap[models.TrafficKindPath]["/api/apps"] != 2 {
		t.Errorf("path counter = %d, want 2", snap[models.TrafficKindPath]["/api/apps"])
	}
	if snap[models.TrafficKindUserAgent]["curl/8.0"] != 2 {
		t.Errorf("user agent counter = %d, want 2", snap[models.TrafficKindUserAgent]["curl/8.0"])
	}
	if snap[models.TrafficKindIP]["203.0.113.9"] != 2 {
		t.Errorf("ip counter = %d, want 2", snap[models.TrafficKindIP]["203.0.113.9"])
	}
	// Empty values never become keys.
	if _, ok := snap[models.TrafficKindUserAgent][""]; ok {
		t.Error("empty user agent must not be tracked")
	}
}

func TestRecordDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := NewCollector(cfg)

	c.Record("/api/apps", "curl/8.0", "203.0.113.9")
	if snap := c.Snapshot(); len(snap) != 0 {
		t.Errorf("disabled collector must stay empty, got %v", snap)
	}
}

func TestBoundedEntriesOverflow(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 3
	c := NewCollector(cfg)

	for i := 0; i < 10; i++ {
		c.Record(fmt.Sprintf("/api/path-%d", i), "ua", "203.0.113.9")
	}

	paths := c.Snapshot()[models.TrafficKindPath]
	if len(paths) != 4 {
		t.Fatalf("expected 3 tracked keys plus overflow, got %d: %v", len(paths), paths)
	}
	if paths[overflowKey] != 7 {
		t.Errorf("overflow bucket = %d, want 7", paths[overflowKey])
	}
	// Known keys keep counting past the cap.
	c.Record("/api/path-0", "ua", "203.0.113.9")
	if got := c.Snapshot()[models.TrafficKindPath]["/api/path-0"]; got != 2 {
		t.Errorf("tracked key must keep counting, got %d", got)
	}
}

func TestDrainResets(t *testing.T) {
	c := NewCollector(testConfig())
	c.Record("/api/apps", "ua", "203.0.113.9")

	first := c.Drain()
	if first[models.TrafficKindPath]["/api/apps"] != 1 {
		t.Fatalf("drained counts = %v", first)
	}
	if second := c.Drain(); len(second) != 0 {
		t.Errorf("second drain must be empty, got %v", second)
	}
}

type captureFlusher struct {
	mu      sync.Mutex
	flushes []map[string]map[string]int64
}

func (f *captureFlusher) FlushTrafficCounts(_ context.Context, counts map[string]map[string]int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes = append(f.flushes, counts)
	return nil
}

func (f *captureFlusher) total(kind, key string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, counts := range f.flushes {
		sum += counts[kind][key]
	}
	return sum
}

func TestRunFlushesAndDrainsOnShutdown(t *testing.T) {
	c := NewCollector(testConfig())
	target := &captureFlusher{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, target)
		close(done)
	}()

	c.Record("/api/apps", "ua", "203.0.113.9")
	time.Sleep(50 * time.Millisecond)
	c.Record("/api/apps", "ua", "203.0.113.9")
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if got := target.total(models.TrafficKindPath, "/api/apps"); got != 2 {
		t.Errorf("flushed total = %d, want 2 (periodic + shutdown flush)", got)
	}
	if len(c.Drain()) != 0 {
		t.Error("collector must be drained after shutdown")
	}
}

func TestConcurrentRecord(t *testing.T) {
	c := NewCollector(testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Record("/api/apps", "ua", "203.0.113.9")
			}
		}()
	}
	wg.Wait()

	if got := c.Snapshot()[models.TrafficKindPath]["/api/apps"]; got != 800 {
		t.Errorf("concurrent count = %d, want 800", got)
	}
}
