// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	appsync "github.com/tianxiu2b2t/dashboard/internal/sync"
)

// readEvent scans the stream until one data: line arrives.
func readEvent(t *testing.T, scanner *bufio.Scanner) appsync.ProgressSnapshot {
	t.Helper()
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var snap appsync.ProgressSnapshot
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap); err != nil {
			t.Fatalf("failed to decode event %q: %v", line, err)
		}
		return snap
	}
	t.Fatalf("stream ended without a data event: %v", scanner.Err())
	return appsync.ProgressSnapshot{}
}

func TestSyncStream(t *testing.T) {
	sync := newTestSync()
	srv := httptest.NewServer(newTestRouter(newTestStore(), sync))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/sync/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Errorf("close body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)

	// Subscribe delivers the current snapshot immediately.
	first := readEvent(t, scanner)
	if first.Running {
		t.Error("initial snapshot should be idle")
	}

	// Begin and WaveDone each publish a snapshot to the stream.
	sync.progress.Begin(4, 2)
	sync.progress.ItemDone(appsync.OutcomeInserted)
	sync.progress.WaveDone()

	var running appsync.ProgressSnapshot
	for i := 0; i < 4; i++ {
		running = readEvent(t, scanner)
		if running.Running && running.Processed == 1 {
			break
		}
	}
	if !running.Running {
		t.Errorf("expected a running snapshot, got %+v", running)
	}
	if running.Total != 4 || running.Processed != 1 || running.Inserted != 1 || running.CurrentWave != 1 {
		t.Errorf("snapshot = %+v", running)
	}
}
