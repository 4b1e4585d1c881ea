// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package sync

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tianxiu2b2t/dashboard/internal/config"
	"github.com/tianxiu2b2t/dashboard/internal/credential"
)

// deadCredentialFake is an upstream whose credential endpoint always
// fails, for exercising exhaustion paths.
type deadCredentialFake struct {
	srv          *httptest.Server
	credCalls    int64
	appinfoCalls int64
}

func newDeadCredentialFake(t *testing.T) *deadCredentialFake {
	t.Helper()
	f := &deadCredentialFake{}

	mux := http.NewServeMux()
	mux.HandleFunc("/webedge/getInterfaceCode", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.credCalls, 1)
		http.Error(w, "issuing service down", http.StatusInternalServerError)
	})
	mux.HandleFunc("/webedge/appinfo", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.appinfoCalls, 1)
		writeJSON(w, map[string]interface{}{"appId": "C100000000000001"})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *deadCredentialFake) newClient(retryAttempts, maxRetries int) *Client {
	cfg := config.UpstreamConfig{
		BaseURL:        f.srv.URL,
		UserAgent:      "agdash-test",
		Timeout:        5 * time.Second,
		MaxRetries:     maxRetries,
		RetryDelay:     time.Millisecond,
		Locale:         "zh_CN",
		CountryCode:    "CN",
		MinAppIDLength: 15,
	}
	creds := credential.NewManager(config.CredentialConfig{
		Endpoint:      f.srv.URL + "/webedge/getInterfaceCode",
		Validity:      time.Minute,
		RetryAttempts: retryAttempts,
		RetryDelay:    time.Millisecond,
	}, cfg.UserAgent, f.srv.Client())
	return NewClient(cfg, creds, f.srv.Client())
}

func TestCredentialExhaustionIsNotRetried(t *testing.T) {
	fake := newDeadCredentialFake(t)
	client := fake.newClient(3, 2)

	_, err := client.AppInfo(context.Background(), "com.example.app", "pkgName")
	if err == nil {
		t.Fatal("expected error from dead credential endpoint")
	}

	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected CredentialError, got %T: %v", err, err)
	}

	// The credential manager owns the whole refresh retry budget; the
	// request loop must not re-drive it per attempt.
	if got := atomic.LoadInt64(&fake.credCalls); got != 3 {
		t.Errorf("expected 3 credential endpoint calls (refresh budget), got %d", got)
	}
	if got := atomic.LoadInt64(&fake.appinfoCalls); got != 0 {
		t.Errorf("expected no appinfo calls without a credential, got %d", got)
	}
}

func TestCredentialExhaustionAbortsCatalogSync(t *testing.T) {
	fake := newDeadCredentialFake(t)
	cfg := config.UpstreamConfig{
		BaseURL:        fake.srv.URL,
		UserAgent:      "agdash-test",
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
		Locale:         "zh_CN",
		CountryCode:    "CN",
		MinAppIDLength: 15,
	}
	creds := credential.NewManager(config.CredentialConfig{
		Endpoint:      fake.srv.URL + "/webedge/getInterfaceCode",
		Validity:      time.Minute,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}, cfg.UserAgent, fake.srv.Client())
	fetcher := NewFetcher(NewClient(cfg, creds, fake.srv.Client()), cfg)

	m := NewManager(newMemStore(), fetcher, &config.Config{
		Upstream: cfg,
		Sync: config.SyncConfig{
			BatchSize: 1,
			Packages: []string{
				"com.example.one",
				"com.example.two",
				"com.example.three",
			},
		},
	})

	err := m.TriggerSync(context.Background())
	if err == nil {
		t.Fatal("expected catalog sync to fail without credentials")
	}
	var credErr *CredentialError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected CredentialError, got %T: %v", err, err)
	}

	// One item exhausts the refresh budget; the remaining waves must not
	// each burn it again.
	if got := atomic.LoadInt64(&fake.credCalls); got != 3 {
		t.Errorf("expected 3 credential endpoint calls before abort, got %d", got)
	}

	snap := m.Progress().Snapshot()
	if snap.Processed != 1 || snap.Failed != 1 {
		t.Errorf("expected run aborted after first item, got processed=%d failed=%d", snap.Processed, snap.Failed)
	}
}

func TestRequestsCarryTimestampedInterfaceCode(t *testing.T) {
	codePattern := regexp.MustCompile(`^issued-code_\d+$`)
	var header atomic.Value

	mux := http.NewServeMux()
	mux.HandleFunc("/webedge/getInterfaceCode", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"issued-code"`))
	})
	mux.HandleFunc("/webedge/appinfo", func(w http.ResponseWriter, r *http.Request) {
		header.Store(r.Header.Get("Interface-Code"))
		writeJSON(w, map[string]interface{}{"appId": "C100000000000001"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.UpstreamConfig{
		BaseURL:        srv.URL,
		UserAgent:      "agdash-test",
		Timeout:        5 * time.Second,
		RetryDelay:     time.Millisecond,
		Locale:         "zh_CN",
		CountryCode:    "CN",
		MinAppIDLength: 15,
	}
	creds := credential.NewManager(config.CredentialConfig{
		Endpoint:      srv.URL + "/webedge/getInterfaceCode",
		Validity:      time.Minute,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	}, cfg.UserAgent, srv.Client())
	client := NewClient(cfg, creds, srv.Client())

	if _, err := client.AppInfo(context.Background(), "com.example.app", "pkgName"); err != nil {
		t.Fatalf("AppInfo failed: %v", err)
	}

	got, _ := header.Load().(string)
	if !codePattern.MatchString(got) {
		t.Errorf("expected Interface-Code of the form issued-code_<millis>, got %q", got)
	}
}
