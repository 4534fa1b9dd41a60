// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

/*
Package middleware provides HTTP middleware components for the application.

Key Components:

  - Compression: gzip (klauspost/compress) for responses of 1KB or more
  - Performance Monitor: request count, running average, slow requests and
    latency percentiles over the last 1000 requests
  - Request ID: X-Request-ID propagation into the logging context
  - Access Log: one zerolog line per request
  - Prometheus Metrics: HTTP request/response instrumentation keyed by
    chi route pattern

Middleware Stack:

The api package installs these in order (outer to inner):

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chiMiddleware(middleware.AccessLog))
	r.Use(recoverer)
	r.Use(cors)
	r.Use(perfMon.Middleware)
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
	r.Use(limiter.Middleware)
	r.Use(chiMiddleware(middleware.Compression))

Performance Monitor:

	perfMon := middleware.NewPerformanceMonitor(middleware.DefaultMaxSamples)
	snap := perfMon.Snapshot()
	w.Header().Set("X-Performance", snap.HeaderValue())

Requests whose response carries "X-Cache: HIT" are counted as cache hits.

Compression Details:

  - Bodies under 1KB are sent as-is
  - 1xx, 204 and 304 responses and HEAD requests are never compressed
  - Vary: Accept-Encoding is always set so shared caches key on encoding

Thread Safety:

All middleware components are safe for concurrent use. The performance
monitor guards its ring buffer with a sync.RWMutex.
*/
package middleware
