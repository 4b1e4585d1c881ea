// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package sync

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tianxiu2b2t/dashboard/internal/models"
)

// SaveOutcome reports which of the per-app rows a save actually touched.
// An app whose upstream payload did not move at all produces all-false.
type SaveOutcome struct {
	InfoChanged    bool                `json:"info_changed"`
	MetricsChanged bool                `json:"metrics_changed"`
	RatingChanged  bool                `json:"rating_changed"`
	Full           *models.FullAppInfo `json:"full"`
}

// Changed reports whether anything besides the always-upserted filing row
// moved.
func (o SaveOutcome) Changed() bool {
	return o.InfoChanged || o.MetricsChanged || o.RatingChanged
}

// SaveAppData applies one fetched record to the store. The decision flow:
//
//  1. If the app exists and the new payload is byte-for-byte identical to
//     the latest history entry, identity and metrics are untouched.
//  2. Otherwise the identity row is compared field-wise against the stored
//     row with store-owned audit fields carried forward, and upserted only
//     on difference. The metrics row gets the same treatment as an
//     append-only insert.
//  3. A rating row is inserted when the detail page carried one and it
//     differs from the latest stored rating, or none was stored yet.
//  4. The filing row is upserted whenever the detail page carried one.
//  5. A history entry is appended iff identity or metrics changed.
//
// listedAt and comment override the store-owned audit fields on the
// identity row; both are optional and used by the manual sync endpoint.
func SaveAppData(ctx context.Context, store Store, rec *models.RawRecord, listedAt *time.Time, comment json.RawMessage) (SaveOutcome, error) {
	var out SaveOutcome

	query := rec.IDQuery()
	newDoc, err := json.Marshal(rec.Payload)
	if err != nil {
		return out, &PersistenceError{Op: "encode payload", Err: err}
	}

	exists, err := store.AppExists(ctx, query)
	if err != nil {
		return out, &PersistenceError{Op: "app lookup", Err: err}
	}

	unchanged := false
	if exists {
		last, err := store.LastRawPayload(ctx, query)
		if err != nil {
			return out, &PersistenceError{Op: "history lookup", Err: err}
		}
		unchanged = last != nil && models.JSONEqual(last, newDoc)
	}

	if !unchanged {
		out.InfoChanged, err = saveAppInfo(ctx, store, rec, query, listedAt, comment)
		if err != nil {
			return out, err
		}
		out.MetricsChanged, err = saveMetrics(ctx, store, rec, query)
		if err != nil {
			return out, err
		}
	}

	if rec.HasRating() {
		out.RatingChanged, err = saveRating(ctx, store, rec, query)
		if err != nil {
			return out, err
		}
	}

	if rec.HasRecordal() {
		record := models.AppRecordFromRaw(rec.App.AppID, rec.Recordal)
		if err := store.UpsertRecord(ctx, &record); err != nil {
			return out, &PersistenceError{Op: "record upsert", Err: err}
		}
	}

	if out.InfoChanged || out.MetricsChanged {
		hist, err := models.NewAppHistory(rec.App.AppID, rec.App.PkgName, rec.Payload)
		if err != nil {
			return out, &PersistenceError{Op: "history encode", Err: err}
		}
		if err := store.AppendHistory(ctx, &hist); err != nil {
			return out, &PersistenceError{Op: "history append", Err: err}
		}
	}

	out.Full, err = store.FullAppInfo(ctx, query)
	if err != nil {
		return out, &PersistenceError{Op: "full info lookup", Err: err}
	}
	return out, nil
}

func saveAppInfo(ctx context.Context, store Store, rec *models.RawRecord, query models.AppQuery, listedAt *time.Time, comment json.RawMessage) (bool, error) {
	info := models.AppInfoFromRaw(&rec.App)

	prev, err := store.LastAppInfo(ctx, query)
	if err != nil {
		return false, &PersistenceError{Op: "info lookup", Err: err}
	}
	if prev != nil {
		info.CarryForward(prev)
	}
	// Explicit overrides win over carried audit fields.
	if comment != nil {
		info.Comment = comment
	}
	if listedAt != nil {
		info.ListedAt = *listedAt
	}

	if prev != nil && info.Equal(prev) {
		return false, nil
	}
	if err := store.UpsertAppInfo(ctx, &info); err != nil {
		return false, &PersistenceError{Op: "info upsert", Err: err}
	}
	return true, nil
}

func saveMetrics(ctx context.Context, store Store, rec *models.RawRecord, query models.AppQuery) (bool, error) {
	m := models.AppMetricsFromRaw(&rec.App)

	prev, err := store.LastMetrics(ctx, query)
	if err != nil {
		return false, &PersistenceError{Op: "metrics lookup", Err: err}
	}
	if prev != nil {
		// Compare a carried copy so only measurement fields decide, then
		// insert the fresh row with its own identity.
		cmp := m
		cmp.CarryForward(prev)
		if cmp.Equal(prev) {
			return false, nil
		}
	}
	if err := store.InsertMetrics(ctx, &m); err != nil {
		return false, &PersistenceError{Op: "metrics insert", Err: err}
	}
	return true, nil
}

func saveRating(ctx context.Context, store Store, rec *models.RawRecord, query models.AppQuery) (bool, error) {
	r := models.AppRatingFromRaw(&rec.App, rec.Rating)

	prev, err := store.LastRating(ctx, query)
	if err != nil {
		return false, &PersistenceError{Op: "rating lookup", Err: err}
	}
	if prev != nil {
		cmp := r
		cmp.CarryForward(prev)
		if cmp.Equal(prev) {
			return false, nil
		}
	}
	if err := store.InsertRating(ctx, &r); err != nil {
		return false, &PersistenceError{Op: "rating insert", Err: err}
	}
	return true, nil
}
