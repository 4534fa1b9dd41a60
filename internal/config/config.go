// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package config

import (
	"net"
	"strconv"
	"time"
)

// Storage backends.
const (
	BackendSheets = "sheets"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Rate limit stores.
const (
	LimitStoreMemory = "memory"
	LimitStoreRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Sheets    SheetsConfig    `koanf:"sheets"`
	Storage   StorageConfig   `koanf:"storage"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Cache     CacheConfig     `koanf:"cache"`
	Image     ImageConfig     `koanf:"image"`
	Events    EventsConfig    `koanf:"events"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`

	// BulkRateLimit is the per-client budget for PATCH bulk operations
	// per BulkRateWindow.
	BulkRateLimit  int           `koanf:"bulk_rate_limit"`
	BulkRateWindow time.Duration `koanf:"bulk_rate_window"`
}

// SheetsConfig holds Google Sheets settings.
type SheetsConfig struct {
	SpreadsheetID     string `koanf:"spreadsheet_id"`
	CredentialsFile   string `koanf:"credentials_file"`
	Endpoint          string `koanf:"endpoint"` // override for emulators
	RequestsPerMinute int    `koanf:"requests_per_minute"`
	MaxRetries        int    `koanf:"max_retries"`
}

// StorageConfig selects the drive storage backend.
type StorageConfig struct {
	Backend    string `koanf:"backend"`
	BadgerPath string `koanf:"badger_path"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// RateLimitConfig holds sliding window limiter settings.
type RateLimitConfig struct {
	MaxRequests   int           `koanf:"max_requests"`
	Window        time.Duration `koanf:"window"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
	Store         string        `koanf:"store"`
	RedisURL      string        `koanf:"redis_url"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	MaxEntries    int           `koanf:"max_entries"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// ImageConfig holds logo pipeline limits, in bytes and pixels.
type ImageConfig struct {
	TargetBytes     int `koanf:"target_bytes"`
	MaxEncodedBytes int `koanf:"max_encoded_bytes"`
	MaxDimension    int `koanf:"max_dimension"`
}

// EventsConfig holds change event settings. An empty NATSURL keeps events
// in process.
type EventsConfig struct {
	NATSURL    string `koanf:"nats_url"`
	BufferSize int    `koanf:"buffer_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
