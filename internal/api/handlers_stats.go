// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package api

import (
	"net/http"
	"time"

	"github.com/tianxiu2b2t/dashboard/internal/models"
)

// trafficStatsResponse is the body of the traffic statistics endpoint.
type trafficStatsResponse struct {
	Kind    string               `json:"kind"`
	Entries []models.TrafficStat `json:"entries"`
}

// TrafficStats serves the top accumulated caller traffic counters of
// one kind: path, user_agent or ip.
//
// Method: GET
// Path: /api/stats/traffic
func (h *Handler) TrafficStats(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	req := TrafficStatsRequest{
		Kind:  r.URL.Query().Get("kind"),
		Limit: getIntParam(r, "limit", 25),
	}
	if req.Kind == "" {
		req.Kind = models.TrafficKindPath
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if !h.requireDB(w) {
		return
	}

	start := time.Now()
	entries, err := h.db.TopTraffic(r.Context(), req.Kind, req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load traffic statistics", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   &trafficStatsResponse{Kind: req.Kind, Entries: entries},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
