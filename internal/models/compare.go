// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package models

import (
	"reflect"
	"strings"

	json "github.com/goccy/go-json"
)

// MaskTraceValues recursively rewrites a decoded JSON document, replacing
// every string that contains "trace" (case-insensitive) with "TRACE_MASKED".
// Collection landing payloads embed per-request trace ids at arbitrary
// depths, so equality checks must run on the masked form.
func MaskTraceValues(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = MaskTraceValues(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = MaskTraceValues(val)
		}
		return out
	case string:
		if strings.Contains(strings.ToLower(t), "trace") {
			return "TRACE_MASKED"
		}
		return t
	default:
		return v
	}
}

// JSONEqual reports whether two raw JSON documents decode to the same
// value. Key order and whitespace do not matter.
func JSONEqual(a, b []byte) bool {
	var va, vb interface{}
	if err := json.Unmarshal(a, &va); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}

// MaskedJSONEqual compares two raw JSON documents after trace masking.
func MaskedJSONEqual(a, b []byte) bool {
	var va, vb interface{}
	if err := json.Unmarshal(a, &va); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false
	}
	return reflect.DeepEqual(MaskTraceValues(va), MaskTraceValues(vb))
}
