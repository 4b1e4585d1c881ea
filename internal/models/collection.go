// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package models

import (
	"time"

	json "github.com/goccy/go-json"
)

// CollectionSnapshot is one discovery pass over a curated collection
// (substance) page: its display metadata, the full member list and the raw
// landing payload the walk started from.
type CollectionSnapshot struct {
	ID       string          `json:"substance_id"`
	Title    string          `json:"title"`
	Subtitle *string         `json:"subtitle"`
	Name     *string         `json:"name"`
	Members  []AppQuery      `json:"-"`
	Raw      json.RawMessage `json:"-"`
}

// MemberPkgNames returns the package names of all members resolved by
// package name, in order.
func (c *CollectionSnapshot) MemberPkgNames() []string {
	out := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		if m.Kind() == QueryPkgName {
			out = append(out, m.Value())
		}
	}
	return out
}

// ShortCollectionInfo is the list-view projection of a stored collection.
type ShortCollectionInfo struct {
	ID        string    `json:"substance_id"`
	Title     string    `json:"title"`
	Subtitle  *string   `json:"subtitle"`
	CreatedAt time.Time `json:"created_at"`
}

// FullCollectionInfo joins a stored collection with its member apps, the
// shape the HTTP API serves.
type FullCollectionInfo struct {
	ID        string          `json:"substance_id"`
	Title     string          `json:"title"`
	Subtitle  *string         `json:"subtitle"`
	Name      *string         `json:"name"`
	Comment   json.RawMessage `json:"comment"`
	CreatedAt time.Time       `json:"created_at"`
	Apps      []ShortAppInfo  `json:"apps"`
}
