// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

// Package config loads and validates the tracker configuration from
// defaults, an optional YAML file and environment variables, in that
// order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the tracker.
type Config struct {
	Upstream   UpstreamConfig   `koanf:"upstream"`
	Credential CredentialConfig `koanf:"credential"`
	Sync       SyncConfig       `koanf:"sync"`
	Database   DatabaseConfig   `koanf:"database"`
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Stats      StatsConfig      `koanf:"stats"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// UpstreamConfig configures the AppGallery client.
type UpstreamConfig struct {
	// BaseURL is the edge API root, without a trailing slash.
	BaseURL string `koanf:"base_url" validate:"required,url"`
	// UserAgent is sent on every upstream request.
	UserAgent string `koanf:"user_agent" validate:"required"`
	// Timeout bounds a single upstream HTTP request.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	// RateLimit is the sustained outbound request rate per second.
	// Zero disables pacing.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
	// RateBurst is the pacing burst size.
	RateBurst int `koanf:"rate_burst" validate:"gte=0"`
	// MaxRetries is the per-request retry budget for transient failures.
	MaxRetries int `koanf:"max_retries" validate:"gte=0,lte=10"`
	// RetryDelay is the initial backoff delay, doubled per attempt.
	RetryDelay time.Duration `koanf:"retry_delay" validate:"gt=0"`
	// Locale and CountryCode parameterize catalog requests.
	Locale      string `koanf:"locale" validate:"required"`
	CountryCode string `koanf:"country_code" validate:"required"`
	// MinAppIDLength rejects obviously bogus upstream responses: a
	// resolved app id shorter than this fails validation.
	MinAppIDLength int `koanf:"min_app_id_length" validate:"gte=0"`
	// LightweightPrefix marks package names whose detail page carries
	// nothing useful, so the detail fetch is skipped.
	LightweightPrefix string `koanf:"lightweight_prefix"`
}

// CredentialConfig configures interface-code rotation.
type CredentialConfig struct {
	// Endpoint is the interface-code issuing URL.
	Endpoint string `koanf:"endpoint" validate:"required,url"`
	// Validity is how long an issued code is trusted before a refresh.
	Validity time.Duration `koanf:"validity" validate:"gt=0"`
	// RetryAttempts bounds refresh attempts before giving up.
	RetryAttempts int `koanf:"retry_attempts" validate:"gte=1,lte=20"`
	// RetryDelay is the fixed pause between refresh attempts.
	RetryDelay time.Duration `koanf:"retry_delay" validate:"gt=0"`
}

// SyncConfig configures the periodic sync loops.
type SyncConfig struct {
	// Interval between full catalog sync runs. Zero disables the loop.
	Interval time.Duration `koanf:"interval" validate:"gte=0"`
	// CollectionInterval between collection discovery runs. Zero disables.
	CollectionInterval time.Duration `koanf:"collection_interval" validate:"gte=0"`
	// BatchSize is the concurrent wave size for batch syncs.
	BatchSize int `koanf:"batch_size" validate:"gte=1"`
	// WaveDelay is the pause between waves.
	WaveDelay time.Duration `koanf:"wave_delay" validate:"gte=0"`
	// Shuffle randomizes full-catalog ordering so retries spread load.
	Shuffle bool `koanf:"shuffle"`
	// Packages seeds the tracked set beyond what the store already knows.
	Packages []string `koanf:"packages"`
	// Collections lists curated collection ids to walk.
	Collections []string `koanf:"collections"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	Path      string `koanf:"path" validate:"required"`
	MaxMemory string `koanf:"max_memory"`
	// Threads for DuckDB; 0 means runtime.NumCPU().
	Threads int `koanf:"threads" validate:"gte=0"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host    string        `koanf:"host" validate:"required"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// APIConfig configures API behavior.
type APIConfig struct {
	DefaultPageSize int           `koanf:"default_page_size" validate:"gte=1"`
	MaxPageSize     int           `koanf:"max_page_size" validate:"gte=1"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// StatsConfig configures caller traffic statistics.
type StatsConfig struct {
	Enabled bool `koanf:"enabled"`
	// FlushInterval between in-memory counter flushes to the database.
	FlushInterval time.Duration `koanf:"flush_interval" validate:"gt=0"`
	// MaxEntries bounds each counter map; new keys beyond it are dropped.
	MaxEntries int `koanf:"max_entries" validate:"gte=1"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for structural and cross-field errors.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size (%d) exceeds api.max_page_size (%d)",
			c.API.DefaultPageSize, c.API.MaxPageSize)
	}
	if c.Upstream.RateLimit > 0 && c.Upstream.RateBurst == 0 {
		return fmt.Errorf("upstream.rate_burst must be set when upstream.rate_limit is enabled")
	}
	return nil
}
