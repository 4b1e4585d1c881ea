// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package models

import (
	"reflect"
	"testing"
)

func TestMaskTraceValues(t *testing.T) {
	in := map[string]interface{}{
		"name":    "Example",
		"traceId": "abc-TRACE-123",
		"nested": map[string]interface{}{
			"detail": "some Trace value",
			"count":  float64(3),
		},
		"list": []interface{}{"clean", "has trace inside", float64(1)},
	}

	got := MaskTraceValues(in).(map[string]interface{})

	if got["traceId"] != "TRACE_MASKED" {
		t.Errorf("traceId value = %v, want TRACE_MASKED", got["traceId"])
	}
	if got["name"] != "Example" {
		t.Errorf("clean string changed: %v", got["name"])
	}
	nested := got["nested"].(map[string]interface{})
	if nested["detail"] != "TRACE_MASKED" {
		t.Errorf("nested trace string not masked: %v", nested["detail"])
	}
	if nested["count"] != float64(3) {
		t.Errorf("number changed: %v", nested["count"])
	}
	list := got["list"].([]interface{})
	if list[1] != "TRACE_MASKED" {
		t.Errorf("list trace string not masked: %v", list[1])
	}
	if list[0] != "clean" || list[2] != float64(1) {
		t.Errorf("clean list entries changed: %v", list)
	}

	// input untouched
	if in["traceId"] != "abc-TRACE-123" {
		t.Error("MaskTraceValues mutated its input")
	}
}

func TestMaskTraceValuesKeyNotMasked(t *testing.T) {
	in := map[string]interface{}{"traceInfo": "clean value"}
	got := MaskTraceValues(in).(map[string]interface{})
	// only string values are masked, keys stay as-is
	if !reflect.DeepEqual(got, in) {
		t.Errorf("value without trace content was changed: %v", got)
	}
}

func TestJSONEqual(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"identical", `{"a":1}`, `{"a":1}`, true},
		{"key order", `{"a":1,"b":2}`, `{"b":2,"a":1}`, true},
		{"whitespace", `{"a": 1}`, `{"a":1}`, true},
		{"different value", `{"a":1}`, `{"a":2}`, false},
		{"invalid a", `{`, `{}`, false},
		{"invalid b", `{}`, `{`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JSONEqual([]byte(tt.a), []byte(tt.b)); got != tt.want {
				t.Errorf("JSONEqual(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMaskedJSONEqual(t *testing.T) {
	a := `{"name":"App","traceId":"trace-aaa"}`
	b := `{"name":"App","traceId":"TRACE-bbb"}`
	if !MaskedJSONEqual([]byte(a), []byte(b)) {
		t.Error("documents differing only in trace strings should compare equal")
	}

	c := `{"name":"Other","traceId":"trace-aaa"}`
	if MaskedJSONEqual([]byte(a), []byte(c)) {
		t.Error("documents with real differences should not compare equal")
	}
}
