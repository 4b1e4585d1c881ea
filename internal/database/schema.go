// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createSchema creates sequences, tables and indexes.
func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range schemaQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func schemaQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS seq_app_metrics START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_app_rating START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_app_record START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_app_history START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_substance_history START 1`,

		// Identity row per app. Audit columns (created_at, listed_at,
		// comment) are store-owned and carried forward on update.
		`CREATE TABLE IF NOT EXISTS app_info (
			app_id TEXT PRIMARY KEY,
			alliance_app_id TEXT NOT NULL,
			name TEXT NOT NULL,
			pkg_name TEXT NOT NULL,
			dev_id TEXT NOT NULL,
			developer_name TEXT NOT NULL,
			dev_en_name TEXT NOT NULL,
			supplier TEXT NOT NULL,
			kind_id INTEGER NOT NULL,
			kind_name TEXT NOT NULL,
			tag_name TEXT,
			kind_type_id INTEGER NOT NULL,
			kind_type_name TEXT NOT NULL,
			icon_url TEXT NOT NULL,
			brief_desc TEXT NOT NULL,
			description TEXT NOT NULL,
			privacy_url TEXT NOT NULL,
			ctype INTEGER NOT NULL,
			detail_id TEXT NOT NULL,
			app_level INTEGER NOT NULL,
			jocat_id INTEGER NOT NULL,
			iap BOOLEAN NOT NULL,
			hms BOOLEAN NOT NULL,
			tariff_type TEXT NOT NULL,
			packing_type INTEGER NOT NULL,
			order_app BOOLEAN NOT NULL,
			depend_gms BOOLEAN NOT NULL,
			depend_hms BOOLEAN NOT NULL,
			force_update BOOLEAN NOT NULL,
			img_tag TEXT NOT NULL,
			is_pay BOOLEAN NOT NULL,
			is_disciplined BOOLEAN NOT NULL,
			is_shelves BOOLEAN NOT NULL,
			submit_type INTEGER NOT NULL,
			delete_archive BOOLEAN NOT NULL,
			charging BOOLEAN NOT NULL,
			button_grey BOOLEAN NOT NULL,
			app_gift BOOLEAN NOT NULL,
			free_days INTEGER NOT NULL,
			pay_install_type INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			listed_at TIMESTAMP NOT NULL,
			comment TEXT,
			release_countries TEXT NOT NULL,
			main_device_codes TEXT NOT NULL
		)`,

		// Append-only measurement rows.
		`CREATE TABLE IF NOT EXISTS app_metrics (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_app_metrics'),
			app_id TEXT NOT NULL,
			version TEXT NOT NULL,
			version_code BIGINT NOT NULL,
			size_bytes BIGINT NOT NULL,
			sha256 TEXT NOT NULL,
			info_score DOUBLE NOT NULL,
			info_rate_count BIGINT NOT NULL,
			download_count BIGINT NOT NULL,
			price DOUBLE NOT NULL,
			release_date BIGINT NOT NULL,
			new_features TEXT NOT NULL,
			upgrade_msg TEXT NOT NULL,
			target_sdk INTEGER NOT NULL,
			minsdk INTEGER NOT NULL,
			compile_sdk_version INTEGER NOT NULL,
			min_hmos_api_level INTEGER NOT NULL,
			api_release_type TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		// Append-only star-distribution rows.
		`CREATE TABLE IF NOT EXISTS app_rating (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_app_rating'),
			app_id TEXT NOT NULL,
			pkg_name TEXT NOT NULL,
			average_rating DOUBLE NOT NULL,
			star_1_rating_count INTEGER NOT NULL,
			star_2_rating_count INTEGER NOT NULL,
			star_3_rating_count INTEGER NOT NULL,
			star_4_rating_count INTEGER NOT NULL,
			star_5_rating_count INTEGER NOT NULL,
			my_star_rating INTEGER NOT NULL,
			total_star_rating_count INTEGER NOT NULL,
			only_star_count INTEGER NOT NULL,
			full_average_rating DOUBLE NOT NULL,
			source_type TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		// Filing information, one row per app.
		`CREATE TABLE IF NOT EXISTS app_record (
			id BIGINT DEFAULT nextval('seq_app_record'),
			app_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			app_recordal_info TEXT NOT NULL,
			recordal_entity_title TEXT NOT NULL,
			recordal_entity_name TEXT NOT NULL
		)`,

		// Raw payload history, appended on identity or metrics change.
		`CREATE TABLE IF NOT EXISTS app_data_history (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_app_history'),
			app_id TEXT NOT NULL,
			pkg_name TEXT NOT NULL,
			raw_json_data TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		// Curated collection (substance) metadata.
		`CREATE TABLE IF NOT EXISTS substance_info (
			substance_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			subtitle TEXT,
			name TEXT,
			comment TEXT,
			created_at TIMESTAMP NOT NULL
		)`,

		// Raw landing payloads, appended when a discovery pass differs
		// from the previous one after trace masking.
		`CREATE TABLE IF NOT EXISTS substance_history (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_substance_history'),
			substance_id TEXT NOT NULL,
			raw_json_data TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS substance_app_map (
			substance_id TEXT NOT NULL,
			app_id TEXT NOT NULL,
			PRIMARY KEY (substance_id, app_id)
		)`,

		// Aggregated caller counters, flushed by internal/stats.
		`CREATE TABLE IF NOT EXISTS traffic_stats (
			kind TEXT NOT NULL,
			entry TEXT NOT NULL,
			hits BIGINT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (kind, entry)
		)`,

		`CREATE UNIQUE INDEX IF NOT EXISTS idx_app_info_pkg_name ON app_info (pkg_name)`,
		`CREATE INDEX IF NOT EXISTS idx_app_metrics_app_id ON app_metrics (app_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_app_rating_app_id ON app_rating (app_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_app_history_app_id ON app_data_history (app_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_substance_history_id ON substance_history (substance_id, id)`,
	}
}
