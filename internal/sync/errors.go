// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package sync

import (
	"errors"
	"fmt"
)

// Error classes for sync failures. Each wraps the underlying cause so
// callers can pick the class with errors.As and still unwrap the root
// error. The class name doubles as the error_type metric label.

// UpstreamError is an AppGallery request that failed: transport error,
// non-2xx status, or an undecodable body.
type UpstreamError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s returned status %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("upstream %s: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ValidationError is an upstream response that arrived intact but does not
// describe a usable app, such as a missing or truncated app id.
type ValidationError struct {
	Query  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid upstream payload for %q: %s", e.Query, e.Reason)
}

// CredentialError is a failure to obtain or refresh the interface code.
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string { return fmt.Sprintf("credential: %v", e.Err) }

func (e *CredentialError) Unwrap() error { return e.Err }

// PersistenceError is a store write or read that failed while applying a
// fetched record.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("persist %s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

// errorType maps an error to its metric label.
func errorType(err error) string {
	var (
		ue *UpstreamError
		ve *ValidationError
		ce *CredentialError
		pe *PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &ce):
		return "credential"
	case errors.As(err, &pe):
		return "persistence"
	case errors.As(err, &ue):
		return "upstream"
	default:
		return "other"
	}
}
