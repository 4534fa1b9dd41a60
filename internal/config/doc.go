// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

/*
Package config provides centralized configuration management for the drives
service.

Configuration is layered with Koanf, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file (CONFIG_PATH, then ./config.yaml, then /etc/saveearthride/)
 3. Environment variables

# Environment Variables

HTTP Server (ServerConfig):
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_PORT: Listen port (default: 3000)
  - HTTP_READ_TIMEOUT / HTTP_WRITE_TIMEOUT: (default: 15s / 30s)
  - HTTP_SHUTDOWN_TIMEOUT: Graceful shutdown budget (default: 10s)
  - CORS_ORIGINS: Comma-separated allowed origins (default: *)
  - BULK_RATE_LIMIT / BULK_RATE_WINDOW: PATCH budget per client (default: 10 per 1m)

Storage (StorageConfig, SheetsConfig):
  - STORAGE_BACKEND: sheets, badger or memory (default: sheets)
  - GOOGLE_SHEET_ID: Spreadsheet holding the Drives sheet
  - GOOGLE_APPLICATION_CREDENTIALS: Service account JSON (optional, ADC otherwise)
  - SHEETS_ENDPOINT: API base URL override for emulators
  - SHEETS_RPM / SHEETS_MAX_RETRIES: Client-side throttle and retry budget
  - BADGER_PATH / BADGER_SYNC_WRITES: Embedded store location and durability

Rate Limiting (RateLimitConfig):
  - RATE_LIMIT_MAX / RATE_LIMIT_WINDOW: Sliding window budget (default: 50 per 60s)
  - RATE_LIMIT_SWEEP: Stale client sweep interval (default: 5m)
  - RATE_LIMIT_STORE: memory or redis; REDIS_URL for the latter

Response Cache (CacheConfig):
  - CACHE_TTL: Entry lifetime (default: 30s)
  - CACHE_MAX_ENTRIES: Capacity before oldest-first eviction (default: 100)
  - CACHE_SWEEP: Expired entry sweep interval (default: 1m)

Logo Images (ImageConfig):
  - IMAGE_TARGET_BYTES / IMAGE_MAX_BYTES / IMAGE_MAX_DIMENSION

Events (EventsConfig):
  - NATS_URL: Publish change events to NATS; empty keeps them in process
  - EVENTS_BUFFER: In-process channel buffer

Logging (LoggingConfig):
  - LOG_LEVEL, LOG_FORMAT (json or console), LOG_CALLER
*/
package config
