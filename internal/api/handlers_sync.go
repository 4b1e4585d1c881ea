// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tianxiu2b2t/dashboard/internal/logging"
	"github.com/tianxiu2b2t/dashboard/internal/metrics"
	"github.com/tianxiu2b2t/dashboard/internal/models"
	appsync "github.com/tianxiu2b2t/dashboard/internal/sync"
)

// syncStatus is the body of the sync status endpoint.
type syncStatus struct {
	Progress     appsync.ProgressSnapshot `json:"progress"`
	LastSyncTime *time.Time               `json:"last_sync_time,omitempty"`
}

// SyncStatus reports the current batch sync progress and the completion
// time of the last full run.
//
// Method: GET
// Path: /api/sync/status
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) || !h.requireSync(w) {
		return
	}

	status := syncStatus{Progress: h.sync.Progress().Snapshot()}
	if last := h.sync.LastSyncTime(); !last.IsZero() {
		status.LastSyncTime = &last
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     &status,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// SyncStream streams batch sync progress snapshots as server-sent
// events. The subscriber channel is buffered and never blocked on, so a
// slow client misses intermediate snapshots instead of stalling the
// sync. A comment line is sent every 15 seconds as a keepalive.
//
// Method: GET
// Path: /api/sync/stream
func (h *Handler) SyncStream(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) || !h.requireSync(w) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "STREAM_UNSUPPORTED", "Streaming not supported by this connection", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.SSEClientsConnected.Inc()
	defer metrics.SSEClientsConnected.Dec()

	progress := h.sync.Progress()
	ch := progress.Subscribe()
	defer progress.Unsubscribe(ch)

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap := <-ch:
			data, err := json.Marshal(snap)
			if err != nil {
				logging.Error().Err(err).Msg("Failed to encode progress snapshot")
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// TriggerSync starts one full-catalog sync in the background. Answers
// 409 when a run is already in flight.
//
// Method: POST
// Path: /api/sync
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) || !h.requireSync(w) {
		return
	}

	if h.sync.Progress().Running() {
		respondError(w, http.StatusConflict, "SYNC_IN_PROGRESS", "A catalog sync is already running", nil)
		return
	}

	// Detached from the request context so the run survives the client
	// disconnecting after the 202.
	go func() {
		if err := h.sync.TriggerSync(context.Background()); err != nil {
			if errors.Is(err, appsync.ErrSyncInProgress) {
				return
			}
			logging.Error().Err(err).Msg("Manually triggered catalog sync failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"message": "Catalog sync started"},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// SyncApp fetches and persists one app on demand, with optional
// listed_at and comment overrides on the identity row.
//
// Method: POST
// Path: /api/sync/app
func (h *Handler) SyncApp(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) || !h.requireSync(w) {
		return
	}

	var req SyncAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	query := models.ParseQuery(req.Query)
	if query.IsZero() {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "query must not be blank", nil)
		return
	}

	start := time.Now()
	out, err := h.sync.SyncOne(r.Context(), query, req.ListedAt, req.Comment)
	if err != nil {
		respondSyncError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   &out,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// collectionSyncResult is the body of the manual collection walk
// endpoint.
type collectionSyncResult struct {
	Collection *models.CollectionSnapshot `json:"collection"`
	IsNew      bool                       `json:"is_new"`
}

// SyncCollection walks one curated collection on demand, syncing its
// member apps and persisting the snapshot.
//
// Method: POST
// Path: /api/sync/collection
func (h *Handler) SyncCollection(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) || !h.requireSync(w) {
		return
	}

	var req SyncCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	start := time.Now()
	snap, isNew, err := h.sync.DiscoverAndSync(r.Context(), req.ID)
	if err != nil {
		respondSyncError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   &collectionSyncResult{Collection: snap, IsNew: isNew},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// respondSyncError maps the sync error taxonomy onto HTTP statuses:
// upstream and credential failures are gateway errors, payload sanity
// rejections are unprocessable, store failures are internal.
func respondSyncError(w http.ResponseWriter, err error) {
	var upstreamErr *appsync.UpstreamError
	var validationErr *appsync.ValidationError
	var credentialErr *appsync.CredentialError

	switch {
	case errors.As(err, &validationErr):
		respondError(w, http.StatusUnprocessableEntity, "UPSTREAM_PAYLOAD_INVALID", validationErr.Error(), err)
	case errors.As(err, &upstreamErr):
		respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Upstream AppGallery request failed", err)
	case errors.As(err, &credentialErr):
		respondError(w, http.StatusBadGateway, "CREDENTIAL_ERROR", "Upstream credential refresh failed", err)
	default:
		respondError(w, http.StatusInternalServerError, "SYNC_ERROR", "Sync failed", err)
	}
}
