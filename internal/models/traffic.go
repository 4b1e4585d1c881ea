// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package models

import "time"

// Traffic counter kinds.
const (
	TrafficKindPath      = "path"
	TrafficKindUserAgent = "user_agent"
	TrafficKindIP        = "ip"
)

// TrafficStat is one aggregated caller counter row.
type TrafficStat struct {
	Kind      string    `json:"kind"`
	Entry     string    `json:"entry"`
	Hits      int64     `json:"hits"`
	UpdatedAt time.Time `json:"updated_at"`
}
