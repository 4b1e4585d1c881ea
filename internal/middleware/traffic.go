// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package middleware

import (
	"net"
	"net/http"
)

// TrafficRecorder receives one observation per handled request. The
// stats collector implements it.
type TrafficRecorder interface {
	Record(path, userAgent, ip string)
}

// TrafficStats counts per-path, per-user-agent and per-caller-IP
// traffic. The recorder is expected to be cheap and non-blocking, so
// the middleware stays on the request hot path.
func TrafficStats(recorder TrafficRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder.Record(r.URL.Path, r.UserAgent(), callerIP(r))
			next.ServeHTTP(w, r)
		})
	}
}

// callerIP strips the port from RemoteAddr. chi's RealIP middleware has
// already rewritten RemoteAddr from forwarding headers when present.
func callerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
