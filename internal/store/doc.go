// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

/*
Package store provides the spreadsheet persistence backends.

Every backend exposes the same row-oriented Backend interface: a sheet is a
list of string rows whose first row is the header. Row indexes passed to
UpdateRows and DeleteRows are positions in the slice returned by ReadRows,
so index 0 is always the header.

# Backends

  - SheetsBackend: Google Sheets via google.golang.org/api/sheets/v4,
    authenticated with a service-account credentials file
  - BadgerBackend: an embedded BadgerDB file, for offline development
  - MemoryBackend: process memory, for tests and demos

# Resilience

ResilientBackend decorates any backend with:
  - a token-bucket limiter (golang.org/x/time/rate) that keeps calls under
    the Sheets per-minute quota
  - a circuit breaker (sony/gobreaker) that fails fast while the backend is down
  - bounded exponential retry (cenkalti/backoff) for idempotent calls only;
    appends and deletes are never retried because a lost response would
    duplicate or over-delete rows
  - Prometheus latency and error metrics per operation
*/
package store
