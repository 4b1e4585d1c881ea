// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package sync

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/tianxiu2b2t/dashboard/internal/models"
)

// Store is the persistence surface the sync engine writes through.
// Implemented by the DuckDB layer in internal/database and by in-memory
// fakes in tests. Missing-row reads return nil, not an error.
//
// Thread Safety: implementations must be safe for concurrent use, syncs
// run many apps in parallel.
type Store interface {
	// AppExists reports whether the app identified by the query has ever
	// been persisted.
	AppExists(ctx context.Context, q models.AppQuery) (bool, error)

	// ResolveAppID maps a query to the stored app id, or "" when unknown.
	ResolveAppID(ctx context.Context, q models.AppQuery) (string, error)

	// LastRawPayload returns the most recent history payload for the app,
	// or nil when none exists.
	LastRawPayload(ctx context.Context, q models.AppQuery) (json.RawMessage, error)

	// LastAppInfo returns the current identity row, or nil.
	LastAppInfo(ctx context.Context, q models.AppQuery) (*models.AppInfo, error)

	// LastMetrics returns the most recent metrics row, or nil.
	LastMetrics(ctx context.Context, q models.AppQuery) (*models.AppMetrics, error)

	// LastRating returns the most recent rating row, or nil.
	LastRating(ctx context.Context, q models.AppQuery) (*models.AppRating, error)

	UpsertAppInfo(ctx context.Context, info *models.AppInfo) error
	InsertMetrics(ctx context.Context, m *models.AppMetrics) error
	InsertRating(ctx context.Context, r *models.AppRating) error
	UpsertRecord(ctx context.Context, r *models.AppRecord) error
	AppendHistory(ctx context.Context, h *models.AppHistory) error

	// FullAppInfo joins the current identity row with its latest metrics,
	// rating and filing rows. Returns nil when the app is unknown.
	FullAppInfo(ctx context.Context, q models.AppQuery) (*models.FullAppInfo, error)

	// AllPackageNames lists every package name ever persisted.
	AllPackageNames(ctx context.Context) ([]string, error)

	// CollectionExists reports whether the collection has been persisted.
	CollectionExists(ctx context.Context, id string) (bool, error)

	// LastCollectionRaw returns the most recent collection history payload,
	// or nil when none exists.
	LastCollectionRaw(ctx context.Context, id string) (json.RawMessage, error)

	// UpsertCollection writes the collection row. The comment is only
	// applied when the collection is new.
	UpsertCollection(ctx context.Context, snap *models.CollectionSnapshot, comment json.RawMessage, isNew bool) error

	AppendCollectionHistory(ctx context.Context, id string, raw json.RawMessage) error

	// MapCollectionMember links a member app to the collection.
	MapCollectionMember(ctx context.Context, collectionID, appID string) error

	// AllCollectionIDs lists every collection id ever persisted.
	AllCollectionIDs(ctx context.Context) ([]string, error)
}
