// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

// Package api provides the HTTP surface of the catalog tracker: app and
// collection browsing, sync control and status streaming, traffic
// statistics, health and Prometheus metrics, routed with Chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tianxiu2b2t/dashboard/internal/config"
	"github.com/tianxiu2b2t/dashboard/internal/middleware"
)

// Router wires handlers and middleware into the served HTTP tree.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	traffic       middleware.TrafficRecorder
}

// NewRouter builds the API router. traffic may be nil when caller
// statistics are disabled.
func NewRouter(db Store, sync SyncManager, cfg *config.Config, traffic middleware.TrafficRecorder) *Router {
	mwConfig := DefaultChiMiddlewareConfig()
	if cfg != nil {
		mwConfig.CORSAllowedOrigins = cfg.API.CORSOrigins
		mwConfig.RateLimitRequests = cfg.API.RateLimitReqs
		mwConfig.RateLimitWindow = cfg.API.RateLimitWindow
		mwConfig.RateLimitDisabled = cfg.API.RateLimitReqs == 0
	}

	return &Router{
		handler:       NewHandler(db, sync, cfg),
		chiMiddleware: NewChiMiddleware(mwConfig),
		traffic:       traffic,
	}
}

// Handler exposes the handler set, mainly for tests.
func (router *Router) Handler() *Handler {
	return router.handler
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is handled
	if router.traffic != nil {
		r.Use(middleware.TrafficStats(router.traffic))
	}

	// Health probes get a permissive limit so monitoring can poll often.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/healthz", router.handler.Healthz)
	})

	// Catalog read endpoints.
	r.Route("/api", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/apps", router.handler.Apps)
		r.Get("/apps/{query}", router.handler.App)
		r.Get("/collections", router.handler.Collections)
		r.Get("/collections/{id}", router.handler.Collection)
		r.Get("/stats/traffic", router.handler.TrafficStats)

		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", router.handler.SyncStatus)
			r.Get("/stream", router.handler.SyncStream)

			// Triggers start real upstream traffic, so they carry a
			// stricter limit.
			r.Group(func(r chi.Router) {
				r.Use(router.chiMiddleware.RateLimitSync())
				r.Post("/", router.handler.TriggerSync)
				r.Post("/app", router.handler.SyncApp)
				r.Post("/collection", router.handler.SyncCollection)
			})
		})
	})

	// Observability.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
