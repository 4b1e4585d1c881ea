// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

// Package metrics exposes Prometheus instrumentation for the catalog
// tracker: upstream AppGallery calls, credential rotation, sync batches,
// change detection outcomes, database queries and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream AppGallery client metrics
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "appgallery_request_duration_seconds",
			Help:    "Duration of upstream AppGallery requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	UpstreamRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appgallery_request_errors_total",
			Help: "Total number of failed upstream AppGallery requests",
		},
		[]string{"endpoint", "error_type"},
	)

	UpstreamCircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "appgallery_circuit_breaker_state",
			Help: "Circuit breaker state for the upstream client (0=closed, 1=half-open, 2=open)",
		},
	)

	// Credential rotation metrics
	CredentialRefreshTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credential_refresh_total",
			Help: "Total number of credential refresh attempts",
		},
	)

	CredentialRefreshFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credential_refresh_failures_total",
			Help: "Total number of failed credential refreshes",
		},
	)

	// Sync metrics
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of full sync operations in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		},
	)

	SyncWaveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_wave_duration_seconds",
			Help:    "Duration of a single concurrent sync wave in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SyncAppsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_apps_processed_total",
			Help: "Total number of apps processed by sync, by outcome",
		},
		[]string{"outcome"}, // "inserted", "skipped", "failed"
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of sync errors by type",
		},
		[]string{"error_type"},
	)

	SyncInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_in_progress",
			Help: "Whether a sync operation is currently running (0 or 1)",
		},
	)

	LastSyncTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_completed_timestamp_seconds",
			Help: "Unix timestamp of the last completed sync",
		},
	)

	// Collection discovery metrics
	CollectionWalkDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collection_walk_duration_seconds",
			Help:    "Duration of collection discovery walks in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CollectionMembersFound = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collection_members_found",
			Help:    "Number of member apps found per collection walk",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500},
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// HTTP API metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	SSEClientsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_clients_connected",
			Help: "Current number of connected progress stream clients",
		},
	)
)

// RecordUpstreamRequest records one upstream call.
func RecordUpstreamRequest(endpoint string, duration time.Duration, err error) {
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	if err != nil {
		UpstreamRequestErrors.WithLabelValues(endpoint, "request").Inc()
	}
}

// RecordSyncOutcome bumps the per-outcome app counter.
func RecordSyncOutcome(outcome string) {
	SyncAppsProcessed.WithLabelValues(outcome).Inc()
}

// RecordAPIRequest records one handled HTTP request.
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}

// RecordDBQuery records one database query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}
