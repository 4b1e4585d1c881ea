// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package sync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetryWithBackoffSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoffExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := retryWithBackoff(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("final error must wrap the last failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "max retry attempts reached") {
		t.Errorf("error = %q", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoffStopsOnCredentialError(t *testing.T) {
	credErr := &CredentialError{Err: errors.New("refresh exhausted")}
	calls := 0
	err := retryWithBackoff(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return credErr
	})
	var ce *CredentialError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CredentialError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("credential failure must not be retried, got %d calls", calls)
	}
}

func TestRetryWithBackoffHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryWithBackoff(ctx, 5, time.Hour, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("cancel during backoff must stop retries, got %d calls", calls)
	}
}

func TestStringToPtr(t *testing.T) {
	if stringToPtr("") != nil {
		t.Error("empty string must map to nil")
	}
	if p := stringToPtr("x"); p == nil || *p != "x" {
		t.Errorf("got %v", p)
	}
}
