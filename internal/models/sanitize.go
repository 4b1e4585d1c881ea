// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package models

import "strings"

// Sanitize makes an upstream string safe for storage: NUL bytes are
// removed outright and other control characters except \n, \r and \t are
// replaced with a space. Clean inputs are returned unchanged without
// allocating.
func Sanitize(s string) string {
	clean := true
	for _, r := range s {
		if isDirtyRune(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == 0:
			// dropped entirely
		case isDirtyRune(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDirtyRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return false
	}
	return r < 0x20 || r == 0x7f
}
