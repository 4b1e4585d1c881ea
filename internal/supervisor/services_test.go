// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package supervisor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/tianxiu2b2t/dashboard/internal/config"
	"github.com/tianxiu2b2t/dashboard/internal/stats"
)

type captureFlusher struct {
	mu     sync.Mutex
	counts []map[string]map[string]int64
	err    error
}

func (f *captureFlusher) FlushTrafficCounts(_ context.Context, counts map[string]map[string]int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = append(f.counts, counts)
	return f.err
}

func (f *captureFlusher) flushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.counts)
}

func TestHTTPService(t *testing.T) {
	t.Run("shuts down on context cancel", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to reserve port: %v", err)
		}
		addr := listener.Addr().String()
		listener.Close()

		server := &http.Server{
			Addr:              addr,
			Handler:           http.NewServeMux(),
			ReadHeaderTimeout: time.Second,
		}
		svc := NewHTTPService(server, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- svc.Serve(ctx)
		}()

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(3 * time.Second):
			t.Error("HTTP service did not shut down in time")
		}
	})

	t.Run("returns listen failure", func(t *testing.T) {
		server := &http.Server{
			Addr:              "127.0.0.1:-1",
			Handler:           http.NewServeMux(),
			ReadHeaderTimeout: time.Second,
		}
		svc := NewHTTPService(server, time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := svc.Serve(ctx); err == nil {
			t.Error("expected error from invalid listen address")
		}
	})

	t.Run("defaults shutdown timeout", func(t *testing.T) {
		svc := NewHTTPService(&http.Server{}, 0)
		if svc.shutdownTimeout != 10*time.Second {
			t.Errorf("expected default shutdown timeout 10s, got %v", svc.shutdownTimeout)
		}
	})
}

func TestStatsService(t *testing.T) {
	t.Run("flushes pending counts on shutdown", func(t *testing.T) {
		collector := stats.NewCollector(config.StatsConfig{
			Enabled:       true,
			FlushInterval: time.Hour,
			MaxEntries:    100,
		})
		collector.Record("/api/apps", "probe/1.0", "203.0.113.9")

		target := &captureFlusher{}
		svc := NewStatsService(collector, target)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- svc.Serve(ctx)
		}()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("stats service did not stop in time")
		}

		if target.flushCount() != 1 {
			t.Fatalf("expected 1 final flush, got %d", target.flushCount())
		}
	})

	t.Run("blocks until cancel when disabled", func(t *testing.T) {
		collector := stats.NewCollector(config.StatsConfig{Enabled: false})
		svc := NewStatsService(collector, &captureFlusher{})

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}
