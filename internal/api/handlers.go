// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tianxiu2b2t/dashboard/internal/config"
	"github.com/tianxiu2b2t/dashboard/internal/models"
	appsync "github.com/tianxiu2b2t/dashboard/internal/sync"
)

// Store is the read surface the handlers need from the database.
// *database.DB implements it.
type Store interface {
	Ping(ctx context.Context) error
	ListApps(ctx context.Context, search string, limit, offset int) ([]models.ShortAppInfo, int, error)
	FullAppInfo(ctx context.Context, q models.AppQuery) (*models.FullAppInfo, error)
	AppHistoryPayloads(ctx context.Context, q models.AppQuery, limit int) ([]models.AppHistory, error)
	ListCollections(ctx context.Context, limit, offset int) ([]models.ShortCollectionInfo, int, error)
	FullCollectionInfo(ctx context.Context, id string) (*models.FullCollectionInfo, error)
	TopTraffic(ctx context.Context, kind string, limit int) ([]models.TrafficStat, error)
}

// SyncManager is the sync control surface the handlers need.
// *sync.Manager implements it.
type SyncManager interface {
	TriggerSync(ctx context.Context) error
	SyncOne(ctx context.Context, query models.AppQuery, listedAt *time.Time, comment json.RawMessage) (appsync.SaveOutcome, error)
	DiscoverAndSync(ctx context.Context, id string) (*models.CollectionSnapshot, bool, error)
	Progress() *appsync.Progress
	LastSyncTime() time.Time
}

// Handler implements the HTTP endpoints of the catalog API.
type Handler struct {
	db     Store
	sync   SyncManager
	config *config.Config
}

// NewHandler creates the API handler set.
func NewHandler(db Store, sync SyncManager, cfg *config.Config) *Handler {
	return &Handler{
		db:     db,
		sync:   sync,
		config: cfg,
	}
}

// requireDB checks store availability, answering 503 when absent.
func (h *Handler) requireDB(w http.ResponseWriter) bool {
	if h.db == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "Database not available", nil)
		return false
	}
	return true
}

// requireSync checks sync manager availability, answering 503 when absent.
func (h *Handler) requireSync(w http.ResponseWriter) bool {
	if h.sync == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "Sync manager not available", nil)
		return false
	}
	return true
}

// pageSizeConfig returns pagination limits with safe fallbacks.
func (h *Handler) pageSizeConfig() (defaultPageSize, maxPageSize int) {
	defaultPageSize, maxPageSize = 50, 500
	if h.config != nil {
		defaultPageSize = h.config.API.DefaultPageSize
		maxPageSize = h.config.API.MaxPageSize
	}
	return defaultPageSize, maxPageSize
}
