// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

/*
client.go - Core AppGallery Edge API Client

This file provides the Client struct and HTTP communication layer for the
three upstream endpoints the tracker depends on:

  - POST /webedge/appinfo      base app payload by pkgName or appId
  - POST /harmony/page-detail  detail and collection landing pages
  - POST /harmony/card-list    collection member pagination

Resilience Mechanisms:
  - Circuit Breaker: opens after 60% failure rate (min 10 requests)
  - Outbound rate limiting via golang.org/x/time/rate
  - Retries: exponential backoff for transient request failures
  - Context: all methods accept context for cancellation

Every request carries the rotating interface code from the credential
manager; the code is suffixed with the request timestamp the way the
store's own web client does it.
*/
package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tianxiu2b2t/dashboard/internal/config"
	"github.com/tianxiu2b2t/dashboard/internal/credential"
	"github.com/tianxiu2b2t/dashboard/internal/metrics"
)

// maxErrorBodySize limits the maximum amount of response body read for error reporting
// This prevents unbounded memory allocation when reading large error responses
const maxErrorBodySize = 64 * 1024 // 64KB

// Endpoint paths relative to the configured base URL.
const (
	pathAppInfo    = "/webedge/appinfo"
	pathPageDetail = "/harmony/page-detail"
	pathCardList   = "/harmony/card-list"
)

// traceIDKey is injected by the edge gateway into every response payload
// and changes per request, so it is stripped before payloads are compared
// or persisted.
const traceIDKey = "AG-TraceId"

// Client talks to the AppGallery edge API. All methods are safe for
// concurrent use.
type Client struct {
	cfg     config.UpstreamConfig
	creds   *credential.Manager
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates an edge API client. A nil httpClient gets a default
// client bounded by the configured timeout.
func NewClient(cfg config.UpstreamConfig, creds *credential.Manager, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}
	return &Client{
		cfg:     cfg,
		creds:   creds,
		http:    httpClient,
		limiter: limiter,
		breaker: newUpstreamBreaker(),
	}
}

// AppInfo fetches the base payload for one app and returns the normalized
// payload document. Normalization removes the per-request trace id and
// strips NUL bytes from top-level string values so that payload comparison
// against history is stable.
func (c *Client) AppInfo(ctx context.Context, query string, lookupField string) (map[string]interface{}, error) {
	body := map[string]interface{}{
		lookupField:   query,
		"locale":      c.cfg.Locale,
		"countryCode": c.cfg.CountryCode,
		"orderApp":    1,
	}

	raw, err := c.postJSON(ctx, "appinfo", pathAppInfo, body)
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &UpstreamError{Endpoint: "appinfo", Err: fmt.Errorf("decode payload: %w", err)}
	}

	delete(payload, traceIDKey)
	for k, v := range payload {
		if s, ok := v.(string); ok && strings.ContainsRune(s, 0) {
			payload[k] = strings.ReplaceAll(s, "\x00", "")
		}
	}

	appID, ok := payload["appId"].(string)
	if !ok {
		return nil, &ValidationError{Query: query, Reason: "payload has no appId"}
	}
	if len(appID) < c.cfg.MinAppIDLength {
		return nil, &ValidationError{Query: query, Reason: fmt.Sprintf("appId %q shorter than %d chars", appID, c.cfg.MinAppIDLength)}
	}

	return payload, nil
}

// PageDetail fetches one harmony page document. withBusinessParam matches
// the collection landing request shape, which carries an extra animation
// flag the detail request does not.
func (c *Client) PageDetail(ctx context.Context, pageID string, withBusinessParam bool) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"pageId":   pageID,
		"pageNum":  1,
		"pageSize": 100,
		"zone":     "",
	}
	if withBusinessParam {
		body["businessParam"] = map[string]interface{}{"animation": 0}
	}

	raw, err := c.postJSON(ctx, "page-detail", pathPageDetail, body)
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &UpstreamError{Endpoint: "page-detail", Err: fmt.Errorf("decode payload: %w", err)}
	}
	return payload, nil
}

// CardList fetches one continuation page of a collection member list.
// dataId is whatever the landing page's cardlist carried, passed back
// verbatim.
func (c *Client) CardList(ctx context.Context, dataID interface{}, pageNum int) (map[string]interface{}, error) {
	body := map[string]interface{}{
		"dataId":   dataID,
		"locale":   "zh",
		"pageNum":  pageNum,
		"pageSize": 25,
	}

	raw, err := c.postJSON(ctx, "card-list", pathCardList, body)
	if err != nil {
		return nil, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &UpstreamError{Endpoint: "card-list", Err: fmt.Errorf("decode payload: %w", err)}
	}
	return payload, nil
}

// postJSON issues one edge API POST with pacing, credential headers,
// circuit breaker protection and retries, returning the raw response body.
func (c *Client) postJSON(ctx context.Context, endpoint, path string, body interface{}) ([]byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	var result []byte
	err = retryWithBackoff(ctx, c.cfg.MaxRetries+1, c.cfg.RetryDelay, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		token, err := c.creds.RequestToken(ctx)
		if err != nil {
			return &CredentialError{Err: err}
		}

		start := time.Now()
		result, err = c.breaker.Execute(func() ([]byte, error) {
			return c.doRequest(ctx, endpoint, path, encoded, token)
		})
		metrics.RecordUpstreamRequest(endpoint, time.Since(start), err)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// doRequest executes a single HTTP round trip.
func (c *Client) doRequest(ctx context.Context, endpoint, path string, body []byte, token credential.Token) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Interface-Code", token.InterfaceCode)
	req.Header.Set("identity-id", token.IdentityID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := readBodyForError(resp.Body)
		return nil, &UpstreamError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("%s", snippet),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Err: fmt.Errorf("read response body: %w", err)}
	}
	return raw, nil
}

// readBodyForError reads the response body for error reporting (max 64KB)
// Returns the body content or a placeholder message if reading fails
// Uses io.LimitReader to prevent unbounded memory allocation
func readBodyForError(r io.Reader) []byte {
	limitedReader := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}
