// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

/*
Package main is the entry point for the Save Earth Ride drives API.

The server exposes /api/drives over a spreadsheet-backed store with a
response cache, a per-client sliding window rate limiter and a logo image
pipeline.

# Application Architecture

	RootSupervisor ("saveearthride")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   ├── cache-sweeper
	│   └── ratelimit-sweeper
	├── MessagingSupervisor ("messaging-layer")
	│   └── event-bus (Watermill, optional NATS forwarding)
	└── APISupervisor ("api-layer")
	    └── http-server

Initialization order:

 1. Configuration: Koanf v2 with defaults, config.yaml and environment
 2. Logging: zerolog, bridged to slog for suture
 3. Storage: Google Sheets, BadgerDB or memory, wrapped in rate limiting,
    a circuit breaker and retries
 4. Rate limit store: memory or Redis
 5. Event bus: in-process GoChannel, forwarded to NATS when NATS_URL is set
 6. HTTP server: Chi router with the drives API, health and metrics

# Example Usage

Google Sheets with a service account:

	export GOOGLE_SHEET_ID=1AbC...
	export GOOGLE_APPLICATION_CREDENTIALS=/secrets/sheets.json
	./saveearthride

Local development without Google:

	export STORAGE_BACKEND=badger
	export BADGER_PATH=./data/badger
	export LOG_FORMAT=console
	./saveearthride

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains for
HTTP_SHUTDOWN_TIMEOUT, then the event bus and storage are closed.
*/
package main
