// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tianxiu2b2t/dashboard/internal/models"
)

// FlushTrafficCounts merges in-memory counter deltas into traffic_stats.
// Counts are keyed by kind then entry; existing rows accumulate.
func (db *DB) FlushTrafficCounts(ctx context.Context, counts map[string]map[string]int64) error {
	start := time.Now()
	now := time.Now()

	var err error
	for kind, entries := range counts {
		for entry, hits := range entries {
			if hits == 0 {
				continue
			}
			_, err = db.conn.ExecContext(ctx,
				`INSERT INTO traffic_stats (kind, entry, hits, updated_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (kind, entry) DO UPDATE SET
					hits = traffic_stats.hits + excluded.hits,
					updated_at = excluded.updated_at`,
				kind, entry, hits, now)
			if err != nil {
				break
			}
		}
		if err != nil {
			break
		}
	}
	observe("upsert", "traffic_stats", start, err)
	if err != nil {
		return fmt.Errorf("failed to flush traffic counts: %w", err)
	}
	return nil
}

// TopTraffic returns the highest-hit counters for one kind.
func (db *DB) TopTraffic(ctx context.Context, kind string, limit int) ([]models.TrafficStat, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT kind, entry, hits, updated_at FROM traffic_stats
		WHERE kind = ? ORDER BY hits DESC, entry LIMIT ?`, kind, limit)
	observe("select", "traffic_stats", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to read traffic stats: %w", err)
	}
	defer rows.Close()

	out := make([]models.TrafficStat, 0, limit)
	for rows.Next() {
		var s models.TrafficStat
		if err := rows.Scan(&s.Kind, &s.Entry, &s.Hits, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan traffic stat: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating traffic stats: %w", err)
	}
	return out, nil
}
