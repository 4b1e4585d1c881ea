// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tianxiu2b2t/dashboard/internal/logging"
)

// retryWithBackoff executes a function with exponential backoff on failure.
// The context is used for cancellation during backoff waits.
// If the context is canceled during a wait, the function returns immediately with the context error.
// Credential failures are fatal, not transient: the credential manager has
// already exhausted its own retry budget by the time one surfaces, so the
// error is returned without further attempts.
func retryWithBackoff(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		// Check context before attempting operation
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil {
			return nil
		}

		var credErr *CredentialError
		if errors.As(err, &credErr) {
			return err
		}

		if attempt < attempts-1 {
			logging.Warn().Err(err).Int("attempt", attempt+1).Int("max_attempts", attempts).Dur("delay", delay).Msg("Retry attempt")
			// Use cancellable wait instead of time.Sleep
			select {
			case <-time.After(delay):
				// Continue to next attempt
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	return fmt.Errorf("max retry attempts reached: %w", err)
}

// stringToPtr converts a non-empty string to a pointer, returns nil for empty strings
func stringToPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// chunkQueries splits the query slice into waves of at most size entries.
// The last wave may be short.
func chunkQueries[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
