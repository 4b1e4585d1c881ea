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

// parseListRequest extracts and validates pagination parameters shared
// by the list endpoints.
func (h *Handler) parseListRequest(r *http.Request) (*ListRequest, error) {
	defaultPageSize, maxPageSize := h.pageSizeConfig()

	req := ListRequest{
		Limit:  getIntParam(r, "limit", defaultPageSize),
		Offset: getIntParam(r, "offset", 0),
		Search: r.URL.Query().Get("search"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		return nil, fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	if req.Limit > maxPageSize {
		return nil, fmt.Errorf("limit must be between 1 and %d", maxPageSize)
	}
	return &req, nil
}

// Apps lists tracked apps with offset pagination and an optional
// case-insensitive name or package search.
//
// Method: GET
// Path: /api/apps
func (h *Handler) Apps(w http.ResponseWriter, r *http.Request) {
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
	apps, total, err := h.db.ListApps(r.Context(), req.Search, req.Limit, req.Offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list apps", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: &models.AppListResponse{
			Apps: apps,
			Page: models.PageInfo{Limit: req.Limit, Offset: req.Offset, Total: total},
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// appDetail is the body of the app detail endpoint. History is present
// only when requested.
type appDetail struct {
	*models.FullAppInfo
	History []models.AppHistory `json:"history,omitempty"`
}

// App serves the latest joined snapshot of one app, looked up by
// package name or store app id. The optional history parameter attaches
// up to that many raw payload snapshots, newest first.
//
// Method: GET
// Path: /api/apps/{query}
func (h *Handler) App(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) || !h.requireDB(w) {
		return
	}

	raw := chi.URLParam(r, "query")
	query := models.ParseQuery(raw)
	if query.IsZero() {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "App query must not be empty", nil)
		return
	}

	historyLimit := getIntParam(r, "history", 0)
	if historyLimit < 0 || historyLimit > 100 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "history must be between 0 and 100", nil)
		return
	}

	start := time.Now()
	full, err := h.db.FullAppInfo(r.Context(), query)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load app", err)
		return
	}
	if full == nil {
		respondError(w, http.StatusNotFound, "APP_NOT_FOUND", fmt.Sprintf("No tracked app matches %q", sanitizeLogValue(raw)), nil)
		return
	}

	detail := &appDetail{FullAppInfo: full}
	if historyLimit > 0 {
		history, err := h.db.AppHistoryPayloads(r.Context(), query, historyLimit)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load app history", err)
			return
		}
		detail.History = history
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   detail,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
