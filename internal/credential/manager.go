// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

// Package credential manages the rotating identity/interface-code pair
// required by the AppGallery edge API. Every upstream request must carry
// an identity id (a dashless UUID chosen by the client) and the interface
// code the edge issued for it. Codes expire server-side, so the manager
// refreshes the pair after a configured validity window.
package credential

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tianxiu2b2t/dashboard/internal/config"
	"github.com/tianxiu2b2t/dashboard/internal/logging"
	"github.com/tianxiu2b2t/dashboard/internal/metrics"
)

// maxErrorBodySize limits how much of an error response body is read.
const maxErrorBodySize = 64 * 1024

// Token is one identity/interface-code pair. The two values are only
// valid together: a code issued for one identity id is useless with
// another.
type Token struct {
	IdentityID    string
	InterfaceCode string
}

// WithRequestSuffix returns the per-request form of the code: the edge
// expects the caller's unix-millisecond timestamp appended.
func (t Token) WithRequestSuffix(now time.Time) Token {
	t.InterfaceCode = fmt.Sprintf("%s_%d", t.InterfaceCode, now.UnixMilli())
	return t
}

// Manager owns the current credential pair and refreshes it on demand.
// Token is safe for concurrent use; at most one refresh is in flight at
// any time and callers arriving during a refresh wait for its result.
type Manager struct {
	cfg       config.CredentialConfig
	userAgent string
	client    *http.Client

	// mu guards the pair and its refresh instant. Both halves of the
	// pair are always read and written under the same critical section
	// so callers can never observe a torn pair.
	mu          sync.RWMutex
	identityID  string
	code        string
	refreshedAt time.Time

	// refreshMu serializes refreshes.
	refreshMu sync.Mutex
}

// NewManager builds a credential manager. The HTTP client may be shared
// with the upstream catalog client; a nil client falls back to a default
// with the configured retry delay as a floor on sanity.
func NewManager(cfg config.CredentialConfig, userAgent string, client *http.Client) *Manager {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Manager{
		cfg:       cfg,
		userAgent: userAgent,
		client:    client,
	}
}

// Token returns a valid credential pair, refreshing it first when the
// validity window has lapsed or no code has been fetched yet.
func (m *Manager) Token(ctx context.Context) (Token, error) {
	m.mu.RLock()
	if m.code != "" && time.Since(m.refreshedAt) < m.cfg.Validity {
		tok := Token{IdentityID: m.identityID, InterfaceCode: m.code}
		m.mu.RUnlock()
		return tok, nil
	}
	m.mu.RUnlock()

	return m.refresh(ctx, false)
}

// RequestToken returns a pair ready to go on the wire, with the
// unix-millisecond request suffix appended to the code.
func (m *Manager) RequestToken(ctx context.Context) (Token, error) {
	tok, err := m.Token(ctx)
	if err != nil {
		return Token{}, err
	}
	return tok.WithRequestSuffix(time.Now()), nil
}

// ForceRefresh discards the current pair and fetches a new one, for
// callers that just saw the edge reject the code early.
func (m *Manager) ForceRefresh(ctx context.Context) (Token, error) {
	return m.refresh(ctx, true)
}

// refresh serializes concurrent refreshers: the first caller performs
// the fetch, the rest block on refreshMu and then see the fresh pair.
func (m *Manager) refresh(ctx context.Context, force bool) (Token, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	// Someone else may have refreshed while we waited for the lock.
	m.mu.RLock()
	if !force && m.code != "" && time.Since(m.refreshedAt) < m.cfg.Validity {
		tok := Token{IdentityID: m.identityID, InterfaceCode: m.code}
		m.mu.RUnlock()
		return tok, nil
	}
	m.mu.RUnlock()

	identityID := strings.ReplaceAll(uuid.New().String(), "-", "")

	logging.Info().Str("identity_id", identityID).Msg("Refreshing interface code")

	code, err := m.fetchInterfaceCode(ctx, identityID)
	if err != nil {
		metrics.CredentialRefreshFailures.Inc()
		return Token{}, err
	}

	m.mu.Lock()
	m.identityID = identityID
	m.code = code
	m.refreshedAt = time.Now()
	m.mu.Unlock()

	logging.Info().Str("identity_id", identityID).Msg("Interface code refreshed")

	return Token{IdentityID: identityID, InterfaceCode: code}, nil
}

// fetchInterfaceCode asks the edge for a code bound to identityID,
// retrying transient failures with a fixed pause between attempts.
func (m *Manager) fetchInterfaceCode(ctx context.Context, identityID string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= m.cfg.RetryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("interface code fetch canceled: %w", err)
		}

		metrics.CredentialRefreshTotal.Inc()

		code, err := m.requestCode(ctx, identityID)
		if err == nil {
			return code, nil
		}
		lastErr = err

		logging.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", m.cfg.RetryAttempts).
			Msg("Interface code fetch failed, retrying")

		if attempt < m.cfg.RetryAttempts {
			select {
			case <-time.After(m.cfg.RetryDelay):
			case <-ctx.Done():
				return "", fmt.Errorf("interface code fetch canceled: %w", ctx.Err())
			}
		}
	}

	return "", fmt.Errorf("interface code fetch exhausted %d attempts: %w",
		m.cfg.RetryAttempts, lastErr)
}

// requestCode performs one issuing request. The edge is bootstrapped
// with a literal "null" code plus the usual timestamp suffix; the
// response body is the new code as a bare JSON string.
func (m *Manager) requestCode(ctx context.Context, identityID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Interface-Code", fmt.Sprintf("null_%d", time.Now().UnixMilli()))
	req.Header.Set("identity-id", identityID)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("interface code request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return "", fmt.Errorf("interface code endpoint returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read interface code response: %w", err)
	}

	code := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if code == "" {
		return "", fmt.Errorf("interface code endpoint returned an empty code")
	}
	return code, nil
}
