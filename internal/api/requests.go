// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package api

import (
	"time"

	"github.com/goccy/go-json"
)

// ListRequest carries the validated parameters of the list endpoints.
type ListRequest struct {
	Limit  int    `validate:"min=1"`
	Offset int    `validate:"min=0"`
	Search string `validate:"omitempty,max=200"`
}

// SyncAppRequest is the body of the manual app sync endpoint. ListedAt
// and Comment override the store-owned audit fields on the identity row.
type SyncAppRequest struct {
	Query    string          `json:"query" validate:"required,min=1,max=256"`
	ListedAt *time.Time      `json:"listed_at"`
	Comment  json.RawMessage `json:"comment"`
}

// SyncCollectionRequest is the body of the manual collection walk
// endpoint.
type SyncCollectionRequest struct {
	ID string `json:"id" validate:"required,min=1,max=64"`
}

// TrafficStatsRequest carries the validated parameters of the traffic
// statistics endpoint.
type TrafficStatsRequest struct {
	Kind  string `validate:"oneof=path user_agent ip"`
	Limit int    `validate:"min=1,max=1000"`
}
