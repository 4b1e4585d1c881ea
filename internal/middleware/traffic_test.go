// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordedCall struct {
	path      string
	userAgent string
	ip        string
}

type fakeRecorder struct {
	calls []recordedCall
}

func (f *fakeRecorder) Record(path, userAgent, ip string) {
	f.calls = append(f.calls, recordedCall{path, userAgent, ip})
}

func TestTrafficStats(t *testing.T) {
	rec := &fakeRecorder{}
	handler := TrafficStats(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/apps?search=maps", nil)
	req.RemoteAddr = "192.0.2.7:54321"
	req.Header.Set("User-Agent", "agdash-test/1.0")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rr.Code)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("got %d recorded calls, want 1", len(rec.calls))
	}

	call := rec.calls[0]
	if call.path != "/api/apps" {
		t.Errorf("path = %q, want /api/apps without query", call.path)
	}
	if call.userAgent != "agdash-test/1.0" {
		t.Errorf("user agent = %q", call.userAgent)
	}
	if call.ip != "192.0.2.7" {
		t.Errorf("ip = %q, want port stripped", call.ip)
	}
}

func TestCallerIPWithoutPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.9"

	if got := callerIP(req); got != "198.51.100.9" {
		t.Errorf("callerIP = %q, want the bare address back", got)
	}
}
