// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tianxiu2b2t/dashboard/internal/models"
)

// CollectionExists reports whether the collection has been persisted.
func (db *DB) CollectionExists(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM substance_info WHERE substance_id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		observe("select", "substance_info", start, nil)
		return false, nil
	}
	observe("select", "substance_info", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", id, err)
	}
	return true, nil
}

// LastCollectionRaw returns the most recent collection history payload,
// or nil when none exists.
func (db *DB) LastCollectionRaw(ctx context.Context, id string) (json.RawMessage, error) {
	start := time.Now()
	var raw string
	err := db.conn.QueryRowContext(ctx,
		`SELECT raw_json_data FROM substance_history WHERE substance_id = ? ORDER BY id DESC LIMIT 1`,
		id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		observe("select", "substance_history", start, nil)
		return nil, nil
	}
	observe("select", "substance_history", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to read last collection payload: %w", err)
	}
	return json.RawMessage(raw), nil
}

// UpsertCollection writes the collection row. The comment is only applied
// when the collection is new; existing comments survive re-discovery.
func (db *DB) UpsertCollection(ctx context.Context, snap *models.CollectionSnapshot, comment json.RawMessage, isNew bool) error {
	start := time.Now()

	var err error
	if isNew {
		_, err = db.conn.ExecContext(ctx,
			`INSERT INTO substance_info (substance_id, title, subtitle, name, comment, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (substance_id) DO UPDATE SET
				title = excluded.title,
				subtitle = excluded.subtitle,
				name = excluded.name,
				comment = excluded.comment`,
			snap.ID, snap.Title, snap.Subtitle, snap.Name, rawToNullString(comment), time.Now())
	} else {
		_, err = db.conn.ExecContext(ctx,
			`UPDATE substance_info SET title = ?, subtitle = ?, name = ? WHERE substance_id = ?`,
			snap.Title, snap.Subtitle, snap.Name, snap.ID)
	}
	observe("upsert", "substance_info", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert collection %s: %w", snap.ID, err)
	}
	return nil
}

// AppendCollectionHistory appends one raw landing payload.
func (db *DB) AppendCollectionHistory(ctx context.Context, id string, raw json.RawMessage) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO substance_history (substance_id, raw_json_data, created_at) VALUES (?, ?, ?)`,
		id, string(raw), time.Now())
	observe("insert", "substance_history", start, err)
	if err != nil {
		return fmt.Errorf("failed to append collection history: %w", err)
	}
	return nil
}

// MapCollectionMember links a member app to the collection. Re-linking an
// existing member is a no-op.
func (db *DB) MapCollectionMember(ctx context.Context, collectionID, appID string) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO substance_app_map (substance_id, app_id) VALUES (?, ?)
		ON CONFLICT (substance_id, app_id) DO NOTHING`,
		collectionID, appID)
	observe("upsert", "substance_app_map", start, err)
	if err != nil {
		return fmt.Errorf("failed to map collection member: %w", err)
	}
	return nil
}

// AllCollectionIDs lists every collection id ever persisted.
func (db *DB) AllCollectionIDs(ctx context.Context) ([]string, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT substance_id FROM substance_info ORDER BY substance_id`)
	observe("select", "substance_info", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan collection id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection ids: %w", err)
	}
	return ids, nil
}

// ListCollections returns one page of stored collections plus the total
// count for pagination.
func (db *DB) ListCollections(ctx context.Context, limit, offset int) ([]models.ShortCollectionInfo, int, error) {
	start := time.Now()

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM substance_info`).Scan(&total); err != nil {
		observe("select", "substance_info", start, err)
		return nil, 0, fmt.Errorf("failed to count collections: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT substance_id, title, subtitle, created_at FROM substance_info
		ORDER BY created_at DESC, substance_id LIMIT ? OFFSET ?`, limit, offset)
	observe("select", "substance_info", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	out := make([]models.ShortCollectionInfo, 0, limit)
	for rows.Next() {
		var c models.ShortCollectionInfo
		var subtitle sql.NullString
		if err := rows.Scan(&c.ID, &c.Title, &subtitle, &c.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan collection: %w", err)
		}
		if subtitle.Valid {
			c.Subtitle = &subtitle.String
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating collections: %w", err)
	}
	return out, total, nil
}

// FullCollectionInfo joins a stored collection with its member apps.
// Returns nil when the collection is unknown.
func (db *DB) FullCollectionInfo(ctx context.Context, id string) (*models.FullCollectionInfo, error) {
	start := time.Now()

	full := &models.FullCollectionInfo{ID: id}
	var subtitle, name, comment sql.NullString
	err := db.conn.QueryRowContext(ctx,
		`SELECT title, subtitle, name, comment, created_at FROM substance_info WHERE substance_id = ?`,
		id).Scan(&full.Title, &subtitle, &name, &comment, &full.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		observe("select", "substance_info", start, nil)
		return nil, nil
	}
	observe("select", "substance_info", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", id, err)
	}
	if subtitle.Valid {
		full.Subtitle = &subtitle.String
	}
	if name.Valid {
		full.Name = &name.String
	}
	if comment.Valid {
		full.Comment = json.RawMessage(comment.String)
	}

	start = time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT a.app_id, a.name, a.pkg_name, a.icon_url, a.created_at
		FROM substance_app_map m
		JOIN app_info a ON a.app_id = m.app_id
		WHERE m.substance_id = ?
		ORDER BY a.name, a.app_id`, id)
	observe("select", "substance_app_map", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection members: %w", err)
	}
	defer rows.Close()

	full.Apps = make([]models.ShortAppInfo, 0)
	for rows.Next() {
		var a models.ShortAppInfo
		if err := rows.Scan(&a.AppID, &a.Name, &a.PkgName, &a.IconURL, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection member: %w", err)
		}
		full.Apps = append(full.Apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection members: %w", err)
	}
	return full, nil
}
