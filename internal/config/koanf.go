// AGDash - AppGallery Catalog Tracker and Dashboard
// Copyright 2026 tianxiu2b2t
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tianxiu2b2t/dashboard

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/agdash/config.yaml",
	"/etc/agdash/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. Defaults load
// first, then the config file, then environment variables.
func defaultConfig() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:           "https://web-drcn.hispace.dbankcloud.com/edge",
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			Timeout:           30 * time.Second,
			RateLimit:         20,
			RateBurst:         40,
			MaxRetries:        3,
			RetryDelay:        1 * time.Second,
			Locale:            "zh_CN",
			CountryCode:       "CN",
			MinAppIDLength:    15,
			LightweightPrefix: "com.atomicservice",
		},
		Credential: CredentialConfig{
			Endpoint:      "https://web-drcn.hispace.dbankcloud.com/edge/webedge/getInterfaceCode",
			Validity:      10 * time.Minute,
			RetryAttempts: 5,
			RetryDelay:    1 * time.Second,
		},
		Sync: SyncConfig{
			Interval:           6 * time.Hour,
			CollectionInterval: 12 * time.Hour,
			BatchSize:          1000,
			WaveDelay:          25 * time.Millisecond,
			Shuffle:            true,
			Packages:           nil,
			Collections:        nil,
		},
		Database: DatabaseConfig{
			Path:      "/data/agdash.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8670,
			Timeout: 30 * time.Second,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
			RateLimitReqs:   100,
			RateLimitWindow: 1 * time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Stats: StatsConfig{
			Enabled:       true,
			FlushInterval: 1 * time.Minute,
			MaxEntries:    10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if it exists)
//  3. Environment variables: override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// SYNC_PACKAGES -> sync.packages etc.
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, env override first.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as
// comma-separated slices when they arrive from the environment.
var sliceConfigPaths = []string{
	"sync.packages",
	"sync.collections",
	"api.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are dropped so random environment noise never
// pollutes the config.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Upstream mappings
		"upstream_base_url":           "upstream.base_url",
		"upstream_user_agent":         "upstream.user_agent",
		"upstream_timeout":            "upstream.timeout",
		"upstream_rate_limit":         "upstream.rate_limit",
		"upstream_rate_burst":         "upstream.rate_burst",
		"upstream_max_retries":        "upstream.max_retries",
		"upstream_retry_delay":        "upstream.retry_delay",
		"upstream_locale":             "upstream.locale",
		"upstream_country_code":       "upstream.country_code",
		"upstream_min_app_id_length":  "upstream.min_app_id_length",
		"upstream_lightweight_prefix": "upstream.lightweight_prefix",

		// Credential mappings
		"credential_endpoint":       "credential.endpoint",
		"credential_validity":       "credential.validity",
		"credential_retry_attempts": "credential.retry_attempts",
		"credential_retry_delay":    "credential.retry_delay",

		// Sync mappings
		"sync_interval":            "sync.interval",
		"collection_sync_interval": "sync.collection_interval",
		"sync_batch_size":          "sync.batch_size",
		"sync_wave_delay":          "sync.wave_delay",
		"sync_shuffle":             "sync.shuffle",
		"sync_packages":            "sync.packages",
		"sync_collections":         "sync.collections",

		// Database mappings
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Server mappings
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// API mappings
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",
		"rate_limit_requests":   "api.rate_limit_reqs",
		"rate_limit_window":     "api.rate_limit_window",
		"cors_origins":          "api.cors_origins",

		// Stats mappings
		"stats_enabled":        "stats.enabled",
		"stats_flush_interval": "stats.flush_interval",
		"stats_max_entries":    "stats.max_entries",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return ""
}

// WatchConfigFile sets up a file watcher for hot-reload. The caller is
// responsible for mutex protection when swapping configuration.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
