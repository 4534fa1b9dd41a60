// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

// Package logging provides the zerolog-based structured logger used by every
// other package in the drives API.
//
// # Overview
//
// The package provides:
//   - A process-wide zerolog logger configured once from main
//   - JSON output for production, console output for local development
//   - Request-scoped logging with request ID and client IP propagation
//   - An slog.Handler adapter so suture's event hook logs through zerolog
//   - A watermill.LoggerAdapter so the change-event bus logs through zerolog
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("backend", "sheets").Msg("Storage ready")
//	logging.Err(err).Str("drive_id", id).Msg("Update failed")
//
//	// Inside handlers
//	logging.Ctx(r.Context()).Warn().Msg("Image rejected")
//
// # Configuration
//
// Environment Variables (read by internal/config):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
//
// Always terminate log chains with .Msg() or .Send(); an event that is never
// sent is never written.
package logging
