// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.validateRateLimit(); err != nil {
		return err
	}

	if err := c.validateCache(); err != nil {
		return err
	}

	if err := c.validateImage(); err != nil {
		return err
	}

	if err := c.validateEvents(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	if len(c.Server.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must list at least one origin")
	}
	if c.Server.BulkRateLimit < 0 {
		return fmt.Errorf("BULK_RATE_LIMIT must not be negative")
	}
	if c.Server.BulkRateLimit > 0 && c.Server.BulkRateWindow <= 0 {
		return fmt.Errorf("BULK_RATE_WINDOW must be positive when BULK_RATE_LIMIT is set")
	}
	return nil
}

// validateStorage validates the backend selection. The Sheets backend needs a
// spreadsheet; credentials fall back to Application Default Credentials.
func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendSheets:
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("GOOGLE_SHEET_ID is required when STORAGE_BACKEND=sheets")
		}
		if c.Sheets.Endpoint != "" {
			if err := validateHTTPURL(c.Sheets.Endpoint); err != nil {
				return fmt.Errorf("SHEETS_ENDPOINT is invalid: %w", err)
			}
		}
	case BackendBadger:
		if strings.TrimSpace(c.Storage.BadgerPath) == "" {
			return fmt.Errorf("BADGER_PATH is required when STORAGE_BACKEND=badger")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of: sheets, badger, memory")
	}

	if c.Sheets.RequestsPerMinute <= 0 {
		return fmt.Errorf("SHEETS_RPM must be positive")
	}
	if c.Sheets.MaxRetries < 0 {
		return fmt.Errorf("SHEETS_MAX_RETRIES must not be negative")
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	rl := c.RateLimit
	if rl.MaxRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive")
	}
	if rl.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if rl.SweepInterval <= 0 {
		return fmt.Errorf("RATE_LIMIT_SWEEP must be positive")
	}

	switch rl.Store {
	case LimitStoreMemory:
	case LimitStoreRedis:
		if rl.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_STORE=redis")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_STORE must be one of: memory, redis")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive")
	}
	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("CACHE_SWEEP must be positive")
	}
	return nil
}

func (c *Config) validateImage() error {
	img := c.Image
	if img.TargetBytes <= 0 || img.MaxEncodedBytes <= 0 || img.MaxDimension <= 0 {
		return fmt.Errorf("IMAGE_TARGET_BYTES, IMAGE_MAX_BYTES and IMAGE_MAX_DIMENSION must be positive")
	}
	if img.TargetBytes > img.MaxEncodedBytes {
		return fmt.Errorf("IMAGE_TARGET_BYTES (%d) must not exceed IMAGE_MAX_BYTES (%d)", img.TargetBytes, img.MaxEncodedBytes)
	}
	return nil
}

func (c *Config) validateEvents() error {
	if c.Events.BufferSize <= 0 {
		return fmt.Errorf("EVENTS_BUFFER must be positive")
	}
	if c.Events.NATSURL != "" && !strings.HasPrefix(c.Events.NATSURL, "nats://") &&
		!strings.HasPrefix(c.Events.NATSURL, "tls://") {
		return fmt.Errorf("NATS_URL must use the nats:// or tls:// scheme")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
