// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

/*
Package metrics provides Prometheus instrumentation for the drives API.

# Overview

The package provides metrics for:
  - HTTP request latency and throughput
  - Sliding-window rate limiter decisions
  - Response cache hits, misses, evictions and invalidations
  - Image pipeline outcomes and compression ratios
  - Spreadsheet backend latency, errors and circuit breaker state
  - Drive mutations and change events

# Metrics Endpoint

Metrics are exposed at /metrics in Prometheus text format:

	curl http://localhost:3000/metrics

All collectors are registered on the default registry through promauto, so
importing the package is enough to expose them. Record* helpers keep label
sets consistent across call sites.
*/
package metrics
