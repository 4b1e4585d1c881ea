// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tianxiu2b2t/dashboard/internal/models"
)

// healthStatus is the body of the health endpoint.
type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Healthz reports process liveness and database reachability. The
// database check uses a short deadline so a wedged store cannot hang
// the probe.
//
// Method: GET
// Path: /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	status := healthStatus{Status: "ok", Database: "ok"}
	code := http.StatusOK

	if h.db == nil {
		status.Status = "degraded"
		status.Database = "unavailable"
		code = http.StatusServiceUnavailable
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Database = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}

	respondJSON(w, code, &models.APIResponse{
		Status:   "success",
		Data:     &status,
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}
