// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package models

import (
	"testing"
	"time"
)

func sampleRawApp() RawApp {
	return RawApp{
		AppID:            "C5765880207852123456",
		AllianceAppID:    "5765880207852123456",
		Name:             "Example App",
		PkgName:          "com.example.app",
		DevID:            "260086000000068459",
		DeveloperName:    "Example Co.",
		KindID:           "10000000",
		KindTypeID:       "13",
		Ctype:            17,
		IAP:              1,
		HMS:              0,
		IsPay:            "0",
		Version:          "1.2.3",
		VersionCode:      1002003,
		SizeBytes:        52428800,
		SHA256:           "deadbeef",
		HotScore:         "8.5",
		RateNum:          "1024",
		DownloadCount:    "5000000",
		Price:            "0",
		ReleaseDate:      1700000000000,
		TargetSDK:        "12",
		MinSDK:           "10",
		MainDeviceCodes:  []string{"0"},
		ReleaseCountries: []string{"CN"},
	}
}

func TestApplyDefaults(t *testing.T) {
	raw := RawApp{}
	raw.ApplyDefaults()

	if raw.HotScore != "0.0" {
		t.Errorf("HotScore default = %q, want 0.0", raw.HotScore)
	}
	if raw.RateNum != "0" {
		t.Errorf("RateNum default = %q, want 0", raw.RateNum)
	}
	if raw.APIReleaseType != "Release" {
		t.Errorf("APIReleaseType default = %q, want Release", raw.APIReleaseType)
	}
	if len(raw.MainDeviceCodes) != 1 || raw.MainDeviceCodes[0] != "0" {
		t.Errorf("MainDeviceCodes default = %v, want [0]", raw.MainDeviceCodes)
	}

	// set values are not overwritten
	raw2 := sampleRawApp()
	raw2.ApplyDefaults()
	if raw2.HotScore != "8.5" {
		t.Errorf("ApplyDefaults overwrote HotScore: %q", raw2.HotScore)
	}
}

func TestAppInfoFromRaw(t *testing.T) {
	raw := sampleRawApp()
	info := AppInfoFromRaw(&raw)

	if info.AppID != raw.AppID || info.PkgName != raw.PkgName {
		t.Errorf("identity fields not copied: %+v", info)
	}
	if info.KindID != 10000000 {
		t.Errorf("KindID = %d, want 10000000", info.KindID)
	}
	if info.KindTypeID != 13 {
		t.Errorf("KindTypeID = %d, want 13", info.KindTypeID)
	}
	if !info.IAP || info.HMS {
		t.Errorf("flag conversion wrong: iap=%v hms=%v", info.IAP, info.HMS)
	}
	if info.IsPay {
		t.Error("IsPay should be false for \"0\"")
	}
	if info.CreatedAt.IsZero() || info.ListedAt.IsZero() {
		t.Error("audit timestamps not set")
	}
}

func TestAppInfoFromRawSanitizes(t *testing.T) {
	raw := sampleRawApp()
	raw.Name = "Bad\x00Name\x07!"
	info := AppInfoFromRaw(&raw)
	if info.Name != "BadName !" {
		t.Errorf("Name = %q, want sanitized form", info.Name)
	}
}

func TestAppInfoCarryForwardAndEqual(t *testing.T) {
	raw := sampleRawApp()
	prev := AppInfoFromRaw(&raw)
	prev.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev.ListedAt = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	prev.Comment = []byte(`{"note":"kept"}`)

	fresh := AppInfoFromRaw(&raw)
	if fresh.Equal(&prev) {
		t.Fatal("rows with different audit fields must not compare equal")
	}

	fresh.CarryForward(&prev)
	if !fresh.Equal(&prev) {
		t.Error("identical upstream data must compare equal after carry-forward")
	}

	fresh.Description = "changed"
	if fresh.Equal(&prev) {
		t.Error("changed upstream field must break equality")
	}
}

func TestAppMetricsFromRaw(t *testing.T) {
	raw := sampleRawApp()
	m := AppMetricsFromRaw(&raw)

	if m.InfoScore != 8.5 {
		t.Errorf("InfoScore = %v, want 8.5", m.InfoScore)
	}
	if m.InfoRateCount != 1024 {
		t.Errorf("InfoRateCount = %v, want 1024", m.InfoRateCount)
	}
	if m.DownloadCount != 5000000 {
		t.Errorf("DownloadCount = %v, want 5000000", m.DownloadCount)
	}
	if m.TargetSDK != 12 || m.MinSDK != 10 {
		t.Errorf("sdk fields = %d/%d, want 12/10", m.TargetSDK, m.MinSDK)
	}
}

func TestAppMetricsUnparsableNumbersDefaultToZero(t *testing.T) {
	raw := sampleRawApp()
	raw.DownloadCount = "a lot"
	raw.Price = ""
	m := AppMetricsFromRaw(&raw)
	if m.DownloadCount != 0 || m.Price != 0 {
		t.Errorf("unparsable numerics should default to zero: %v %v", m.DownloadCount, m.Price)
	}
}

func TestAppMetricsCarryForwardAndEqual(t *testing.T) {
	raw := sampleRawApp()
	prev := AppMetricsFromRaw(&raw)
	prev.ID = 42
	prev.CreatedAt = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	fresh := AppMetricsFromRaw(&raw)
	fresh.CarryForward(&prev)
	if fresh.ID != 42 {
		t.Errorf("ID not carried forward: %d", fresh.ID)
	}
	if !fresh.Equal(&prev) {
		t.Error("identical metrics must compare equal after carry-forward")
	}

	fresh.DownloadCount++
	if fresh.Equal(&prev) {
		t.Error("changed metric must break equality")
	}
}

func TestAppRatingFromRaw(t *testing.T) {
	raw := sampleRawApp()
	star := RawRating{
		AverageRating:        "4.5",
		Star5RatingCount:     900,
		TotalStarRatingCount: 1000,
		FullAverageRating:    "4.4",
		SourceType:           "HarmonyOS",
	}
	r := AppRatingFromRaw(&raw, &star)

	if r.AppID != raw.AppID || r.PkgName != raw.PkgName {
		t.Errorf("rating identity wrong: %+v", r)
	}
	if r.AverageRating != 4.5 || r.FullAverageRating != 4.4 {
		t.Errorf("rating values wrong: %v %v", r.AverageRating, r.FullAverageRating)
	}

	prev := r
	prev.ID = 7
	fresh := AppRatingFromRaw(&raw, &star)
	fresh.CarryForward(&prev)
	if !fresh.Equal(&prev) {
		t.Error("identical ratings must compare equal after carry-forward")
	}
}

func TestNewAppHistory(t *testing.T) {
	payload := map[string]interface{}{"appId": "C1", "pkgName": "com.a"}
	h, err := NewAppHistory("C1", "com.a", payload)
	if err != nil {
		t.Fatalf("NewAppHistory: %v", err)
	}
	if h.AppID != "C1" || h.PkgName != "com.a" {
		t.Errorf("history identity wrong: %+v", h)
	}
	if !JSONEqual(h.RawJSON, []byte(`{"appId":"C1","pkgName":"com.a"}`)) {
		t.Errorf("history payload wrong: %s", h.RawJSON)
	}
}
