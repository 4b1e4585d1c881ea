// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

// Package models defines the catalog domain model: entity queries, raw
// upstream payload types, derived table rows and collection snapshots.
package models

import (
	"fmt"
	"sort"
	"strings"
)

// QueryKind selects which upstream lookup field an AppQuery targets.
type QueryKind int

const (
	// QueryPkgName looks an app up by its package name.
	QueryPkgName QueryKind = iota
	// QueryAppID looks an app up by its store identifier.
	QueryAppID
)

// AppQuery identifies one app for fetching and storage, either by package
// name or by store app id. It is an immutable value type with a total
// ordering, so slices of queries can be sorted and deduplicated.
type AppQuery struct {
	kind  QueryKind
	value string
}

// ByPkgName builds a package-name query.
func ByPkgName(pkgName string) AppQuery {
	return AppQuery{kind: QueryPkgName, value: pkgName}
}

// ByAppID builds an app-id query.
func ByAppID(appID string) AppQuery {
	return AppQuery{kind: QueryAppID, value: appID}
}

// Kind returns the query kind.
func (q AppQuery) Kind() QueryKind { return q.kind }

// Value returns the bare lookup value.
func (q AppQuery) Value() string { return q.value }

// LookupField returns the upstream request field name for this query.
func (q AppQuery) LookupField() string {
	if q.kind == QueryAppID {
		return "appId"
	}
	return "pkgName"
}

// DBField returns the storage column this query resolves against.
func (q AppQuery) DBField() string {
	if q.kind == QueryAppID {
		return "app_id"
	}
	return "pkg_name"
}

// IsZero reports whether the query carries no value.
func (q AppQuery) IsZero() bool { return q.value == "" }

func (q AppQuery) String() string {
	return fmt.Sprintf("%s=%s", q.LookupField(), q.value)
}

// Less orders queries by (kind, value).
func (q AppQuery) Less(other AppQuery) bool {
	if q.kind != other.kind {
		return q.kind < other.kind
	}
	return q.value < other.value
}

// ParseQuery interprets a user-supplied lookup string. Values that look
// like store ids (all digits, or a C-prefixed digit run) resolve by app
// id, everything else by package name.
func ParseQuery(s string) AppQuery {
	s = strings.TrimSpace(s)
	if isAppID(s) {
		return ByAppID(s)
	}
	return ByPkgName(s)
}

func isAppID(s string) bool {
	if s == "" {
		return false
	}
	digits := s
	if s[0] == 'C' {
		digits = s[1:]
	}
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// DedupQueries returns a sorted copy of qs with duplicates removed.
func DedupQueries(qs []AppQuery) []AppQuery {
	out := make([]AppQuery, len(qs))
	copy(out, qs)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })

	n := 0
	for i, q := range out {
		if i == 0 || out[n-1] != q {
			out[n] = q
			n++
		}
	}
	return out[:n]
}
