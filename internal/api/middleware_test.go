// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitCutsOff(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	})
	handler := m.RateLimit()(okHandler())

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/apps", nil)
		req.RemoteAddr = "192.0.2.1:1000"
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/apps", nil)
	req.RemoteAddr = "192.0.2.1:1000"
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", rr.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{
		RateLimitRequests: 1,
		RateLimitWindow:   time.Minute,
		RateLimitDisabled: true,
	})
	handler := m.RateLimit()(okHandler())

	for i := 0; i < 10; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/apps", nil)
		req.RemoteAddr = "192.0.2.1:1000"
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d with limiting disabled", i+1, rr.Code)
		}
	}
}

func TestCORSPreflightAllowsConfiguredOrigin(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"https://dash.example"},
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type"},
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
	})
	handler := m.CORS()(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/apps", nil)
	req.Header.Set("Origin", "https://dash.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	m := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"https://dash.example"},
		CORSAllowedMethods: []string{"GET"},
	})
	handler := m.CORS()(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/apps", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unknown origin should get no allow header, got %q", got)
	}
}
