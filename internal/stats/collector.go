// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

// Package stats aggregates caller traffic (request path, user agent,
// client IP) in bounded in-memory counters and flushes them to the
// database on an interval. Bounding each counter map keeps a scanning
// client from growing memory without limit; keys beyond the cap are
// counted in an overflow bucket instead of being tracked individually.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/tianxiu2b2t/dashboard/internal/config"
	"github.com/tianxiu2b2t/dashboard/internal/logging"
	"github.com/tianxiu2b2t/dashboard/internal/models"
)

// overflowKey absorbs hits whose key did not fit the bounded map.
const overflowKey = "(other)"

// Flusher persists drained counters. Implemented by the DuckDB layer.
type Flusher interface {
	FlushTrafficCounts(ctx context.Context, counts map[string]map[string]int64) error
}

// Collector accumulates traffic counters. Safe for concurrent use.
type Collector struct {
	cfg    config.StatsConfig
	mu     sync.Mutex
	counts map[string]map[string]int64
}

// NewCollector creates an empty collector.
func NewCollector(cfg config.StatsConfig) *Collector {
	return &Collector{
		cfg:    cfg,
		counts: make(map[string]map[string]int64),
	}
}

// Record counts one request. Empty values are skipped.
func (c *Collector) Record(path, userAgent, ip string) {
	if !c.cfg.Enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bump(models.TrafficKindPath, path)
	c.bump(models.TrafficKindUserAgent, userAgent)
	c.bump(models.TrafficKindIP, ip)
}

// bump increments one counter, diverting new keys past the cap into the
// overflow bucket. Caller holds the lock.
func (c *Collector) bump(kind, key string) {
	if key == "" {
		return
	}
	m := c.counts[kind]
	if m == nil {
		m = make(map[string]int64)
		c.counts[kind] = m
	}
	if _, tracked := m[key]; !tracked && len(m) >= c.cfg.MaxEntries {
		key = overflowKey
	}
	m[key]++
}

// Drain returns the accumulated counters and resets the collector.
func (c *Collector) Drain() map[string]map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.counts
	c.counts = make(map[string]map[string]int64)
	return out
}

// Snapshot returns a copy of the counters without resetting them.
func (c *Collector) Snapshot() map[string]map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]map[string]int64, len(c.counts))
	for kind, entries := range c.counts {
		cp := make(map[string]int64, len(entries))
		for k, v := range entries {
			cp[k] = v
		}
		out[kind] = cp
	}
	return out
}

// Run flushes drained counters to the target on the configured interval
// until the context is canceled, then performs one final flush so counts
// survive shutdown.
func (c *Collector) Run(ctx context.Context, target Flusher) {
	if !c.cfg.Enabled {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush(ctx, target)
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			c.flush(flushCtx, target)
			cancel()
			return
		}
	}
}

func (c *Collector) flush(ctx context.Context, target Flusher) {
	counts := c.Drain()
	if len(counts) == 0 {
		return
	}
	if err := target.FlushTrafficCounts(ctx, counts); err != nil {
		logging.Warn().Err(err).Msg("Traffic counter flush failed, counts dropped")
	}
}
