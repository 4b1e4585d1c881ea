// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// ChiMiddlewareConfig holds the knobs for the CORS and rate-limiting
// middleware factories.
type ChiMiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSMaxAge         int // seconds

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// DefaultChiMiddlewareConfig returns a secure default configuration.
// CORS origins default to empty, requiring explicit configuration.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{},
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Accept"},
		CORSMaxAge:         86400,

		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
}

// ChiMiddleware provides Chi-compatible middleware built on the
// production-hardened go-chi/cors and go-chi/httprate packages.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates a middleware factory from the given
// configuration, falling back to defaults when nil.
func NewChiMiddleware(config *ChiMiddlewareConfig) *ChiMiddleware {
	if config == nil {
		config = DefaultChiMiddlewareConfig()
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: config.CORSAllowedOrigins,
		AllowedMethods: config.CORSAllowedMethods,
		AllowedHeaders: config.CORSAllowedHeaders,
		MaxAge:         config.CORSMaxAge,
	})

	return &ChiMiddleware{
		config: config,
		cors:   corsHandler,
	}
}

// CORS returns the configured CORS middleware.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the default per-IP rate limiter.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.rateLimitCustom(m.config.RateLimitRequests, m.config.RateLimitWindow)
}

// RateLimitSync returns a stricter limiter for the sync trigger
// endpoints, which each start real upstream traffic.
func (m *ChiMiddleware) RateLimitSync() func(http.Handler) http.Handler {
	return m.rateLimitCustom(10, time.Minute)
}

// RateLimitHealth returns a permissive limiter for health probes so
// monitoring can poll frequently without being cut off.
func (m *ChiMiddleware) RateLimitHealth() func(http.Handler) http.Handler {
	return m.rateLimitCustom(1000, time.Minute)
}

func (m *ChiMiddleware) rateLimitCustom(requests int, window time.Duration) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled || requests <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return httprate.LimitByIP(requests, window)
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler shape so it works with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}
