// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APISlowRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_slow_requests_total",
			Help: "Requests that took longer than the slow request threshold",
		},
	)

	// Rate Limiter Metrics
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_decisions_total",
			Help: "Sliding window rate limiter decisions",
		},
		[]string{"decision"}, // "allowed", "rejected", "error"
	)

	RateLimitTrackedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ratelimit_tracked_clients",
			Help: "Clients currently tracked by the in-memory rate limiter",
		},
	)

	RateLimitSweptClients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ratelimit_swept_clients_total",
			Help: "Stale client entries removed by the rate limit sweeper",
		},
	)

	// Response Cache Metrics
	ResponseCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	ResponseCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	ResponseCacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_evictions_total",
			Help: "Response cache entries removed",
		},
		[]string{"reason"}, // "expired", "capacity", "invalidated"
	)

	ResponseCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "response_cache_entries",
			Help: "Current number of cached responses",
		},
	)

	ResponseNotModified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_not_modified_total",
			Help: "Conditional GETs answered with 304 Not Modified",
		},
	)

	// Image Pipeline Metrics
	ImageUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_uploads_total",
			Help: "Image uploads processed by the compression pipeline",
		},
		[]string{"result"}, // "ok", "rejected"
	)

	ImageCompressionRatio = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_compression_ratio_percent",
			Help:    "Compression ratio achieved for accepted uploads",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	ImageEncodePasses = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_encode_passes",
			Help:    "Quality steps needed to fit an image into the byte budget",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8},
		},
	)

	// Storage Backend Metrics
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Spreadsheet backend call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	BackendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_errors_total",
			Help: "Spreadsheet backend call failures",
		},
		[]string{"backend", "operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests passed through a circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	// Domain Metrics
	DriveMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drive_mutations_total",
			Help: "Successful drive mutations by operation",
		},
		[]string{"operation"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_events_published_total",
			Help: "Change events published on the event bus",
		},
		[]string{"type"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "change_events_consumed_total",
			Help: "Change events handled by in-process subscribers",
		},
		[]string{"type"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitDecision records the outcome of a limiter check.
func RecordRateLimitDecision(allowed bool, err error) {
	switch {
	case err != nil:
		RateLimitDecisions.WithLabelValues("error").Inc()
	case allowed:
		RateLimitDecisions.WithLabelValues("allowed").Inc()
	default:
		RateLimitDecisions.WithLabelValues("rejected").Inc()
	}
}

// RecordImageUpload records a processed upload. ratio and passes are ignored for rejected uploads.
func RecordImageUpload(valid bool, ratio float64, passes int) {
	if !valid {
		ImageUploadsTotal.WithLabelValues("rejected").Inc()
		return
	}
	ImageUploadsTotal.WithLabelValues("ok").Inc()
	ImageCompressionRatio.Observe(ratio)
	ImageEncodePasses.Observe(float64(passes))
}

// RecordBackendCall records the latency and outcome of a storage backend call.
func RecordBackendCall(backend, operation string, duration time.Duration, err error) {
	BackendRequestDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		BackendErrors.WithLabelValues(backend, operation).Inc()
	}
}
