// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

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

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/saveearthride/config.yaml",
	"/etc/saveearthride/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			BulkRateLimit:   10,
			BulkRateWindow:  time.Minute,
		},
		Sheets: SheetsConfig{
			RequestsPerMinute: 60,
			MaxRetries:        3,
		},
		Storage: StorageConfig{
			Backend:    BackendSheets,
			BadgerPath: "./data/badger",
			SyncWrites: true,
		},
		RateLimit: RateLimitConfig{
			MaxRequests:   50,
			Window:        60 * time.Second,
			SweepInterval: 5 * time.Minute,
			Store:         LimitStoreMemory,
		},
		Cache: CacheConfig{
			TTL:           30 * time.Second,
			MaxEntries:    100,
			SweepInterval: time.Minute,
		},
		Image: ImageConfig{
			TargetBytes:     35_000,
			MaxEncodedBytes: 50_000,
			MaxDimension:    800,
		},
		Events: EventsConfig{
			BufferSize: 256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration using Koanf with layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: override any mapped setting
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
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

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
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

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"bulk_rate_limit":       "server.bulk_rate_limit",
	"bulk_rate_window":      "server.bulk_rate_window",

	"google_sheet_id":                "sheets.spreadsheet_id",
	"google_application_credentials": "sheets.credentials_file",
	"sheets_endpoint":                "sheets.endpoint",
	"sheets_rpm":                     "sheets.requests_per_minute",
	"sheets_max_retries":             "sheets.max_retries",

	"storage_backend":     "storage.backend",
	"badger_path":         "storage.badger_path",
	"badger_sync_writes":  "storage.sync_writes",
	"rate_limit_max":      "ratelimit.max_requests",
	"rate_limit_window":   "ratelimit.window",
	"rate_limit_sweep":    "ratelimit.sweep_interval",
	"rate_limit_store":    "ratelimit.store",
	"redis_url":           "ratelimit.redis_url",
	"cache_ttl":           "cache.ttl",
	"cache_max_entries":   "cache.max_entries",
	"cache_sweep":         "cache.sweep_interval",
	"image_target_bytes":  "image.target_bytes",
	"image_max_bytes":     "image.max_encoded_bytes",
	"image_max_dimension": "image.max_dimension",

	"nats_url":      "events.nats_url",
	"events_buffer": "events.buffer_size",
	"log_level":     "logging.level",
	"log_format":    "logging.format",
	"log_caller":    "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped so unrelated environment
// never pollutes the config.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - GOOGLE_SHEET_ID -> sheets.spreadsheet_id
//   - RATE_LIMIT_MAX -> ratelimit.max_requests
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
