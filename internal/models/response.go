// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package models

import "time"

// APIResponse is the envelope every HTTP endpoint returns.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response observability fields.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the structured error body for failed requests.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PageInfo describes offset pagination of a list endpoint.
type PageInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// AppListResponse is the body of the app list endpoint.
type AppListResponse struct {
	Apps []ShortAppInfo `json:"apps"`
	Page PageInfo       `json:"page"`
}

// CollectionListResponse is the body of the collection list endpoint.
type CollectionListResponse struct {
	Collections []ShortCollectionInfo `json:"collections"`
	Page        PageInfo              `json:"page"`
}
