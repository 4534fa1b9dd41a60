// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/saveearthride/internal/metrics"
)

// PrometheusMetrics records request count, latency and in-flight gauge for
// every request. Routes are labelled by their chi pattern, so drive ids
// never become label values. 304 answers also bump the not-modified counter.
func PrometheusMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		began := time.Now()
		next(sw, r)

		metrics.RecordAPIRequest(r.Method, routePattern(r), sw.status, time.Since(began))
		if sw.status == http.StatusNotModified {
			metrics.ResponseNotModified.Inc()
		}
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return "unmatched"
	}
	return rctx.RoutePattern()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
