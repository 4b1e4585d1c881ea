// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tianxiu2b2t/dashboard/internal/models"
)

// Collections lists tracked curated collections with offset pagination.
//
// Method: GET
// Path: /api/collections
func (h *Handler) Collections(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	req, err := h.parseListRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), err)
		return
	}

	if !h.requireDB(w) {
		return
	}

	start := time.Now()
	collections, total, err := h.db.ListCollections(r.Context(), req.Limit, req.Offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list collections", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: &models.CollectionListResponse{
			Collections: collections,
			Page:        models.PageInfo{Limit: req.Limit, Offset: req.Offset, Total: total},
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// Collection serves one stored collection with its member apps.
//
// Method: GET
// Path: /api/collections/{id}
func (h *Handler) Collection(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) || !h.requireDB(w) {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Collection id must not be empty", nil)
		return
	}

	start := time.Now()
	full, err := h.db.FullCollectionInfo(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load collection", err)
		return
	}
	if full == nil {
		respondError(w, http.StatusNotFound, "COLLECTION_NOT_FOUND", fmt.Sprintf("No tracked collection matches %q", sanitizeLogValue(id)), nil)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   full,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
