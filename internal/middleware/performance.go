// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package middleware

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/saveearthride/internal/logging"
	"github.com/tomtom215/saveearthride/internal/metrics"
)

const (
	// DefaultMaxSamples is the size of the latency ring buffer.
	DefaultMaxSamples = 1000

	// DefaultSlowThreshold marks a request as slow.
	DefaultSlowThreshold = time.Second
)

// Snapshot is a read-only view of the process-wide counters.
type Snapshot struct {
	TotalRequests         int64   `json:"totalRequests"`
	CacheHits             int64   `json:"cacheHits"`
	AverageResponseTimeMs float64 `json:"averageResponseTimeMs"`
	SlowRequests          int64   `json:"slowRequests"`
	SlowThresholdMs       int64   `json:"slowThresholdMs"`
	P50Ms                 int64   `json:"p50Ms"`
	P95Ms                 int64   `json:"p95Ms"`
	P99Ms                 int64   `json:"p99Ms"`
	UptimeSeconds         float64 `json:"uptimeSeconds"`
}

// PerformanceMonitor tracks request latency. Totals and the running average
// cover the whole process lifetime; percentiles cover the last maxSamples
// requests. Cache hits are reported by the handler that served them.
type PerformanceMonitor struct {
	mu            sync.RWMutex
	samples       []int64
	next          int
	maxSamples    int
	slowThreshold time.Duration

	totalRequests int64
	cacheHits     int64
	avgMS         float64
	slowRequests  int64
	started       time.Time
}

// NewPerformanceMonitor creates a monitor keeping the last maxSamples requests.
func NewPerformanceMonitor(maxSamples int) *PerformanceMonitor {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &PerformanceMonitor{
		samples:       make([]int64, 0, maxSamples),
		maxSamples:    maxSamples,
		slowThreshold: DefaultSlowThreshold,
		started:       time.Now(),
	}
}

// Record adds one request duration and reports whether it was slow.
func (pm *PerformanceMonitor) Record(d time.Duration) bool {
	ms := d.Milliseconds()

	pm.mu.Lock()
	defer pm.mu.Unlock()

	if len(pm.samples) < pm.maxSamples {
		pm.samples = append(pm.samples, ms)
	} else {
		pm.samples[pm.next] = ms
	}
	pm.next = (pm.next + 1) % pm.maxSamples

	// avg' = (avg*(n-1) + d) / n
	pm.totalRequests++
	n := float64(pm.totalRequests)
	pm.avgMS = (pm.avgMS*(n-1) + float64(ms)) / n

	slow := d > pm.slowThreshold
	if slow {
		pm.slowRequests++
	}
	return slow
}

// RecordCacheHit increments the cache hit counter.
func (pm *PerformanceMonitor) RecordCacheHit() {
	pm.mu.Lock()
	pm.cacheHits++
	pm.mu.Unlock()
}

// Snapshot returns the current counters and percentiles.
func (pm *PerformanceMonitor) Snapshot() Snapshot {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	sorted := append([]int64(nil), pm.samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return Snapshot{
		TotalRequests:         pm.totalRequests,
		CacheHits:             pm.cacheHits,
		AverageResponseTimeMs: pm.avgMS,
		SlowRequests:          pm.slowRequests,
		SlowThresholdMs:       pm.slowThreshold.Milliseconds(),
		P50Ms:                 percentile(sorted, 0.50),
		P95Ms:                 percentile(sorted, 0.95),
		P99Ms:                 percentile(sorted, 0.99),
		UptimeSeconds:         time.Since(pm.started).Seconds(),
	}
}

// HeaderValue renders the snapshot for the X-Performance response header.
func (s Snapshot) HeaderValue() string {
	return fmt.Sprintf("requests=%d; avg=%.2fms; slow=%d; cacheHits=%d",
		s.TotalRequests, s.AverageResponseTimeMs, s.SlowRequests, s.CacheHits)
}

// Middleware records every request regardless of outcome, panics included.
func (pm *PerformanceMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		defer func() {
			elapsed := time.Since(start)
			if pm.Record(elapsed) {
				metrics.APISlowRequests.Inc()
				logging.Ctx(r.Context()).Warn().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", wrapper.statusCode).
					Int64("duration_ms", elapsed.Milliseconds()).
					Msg("Slow request detected")
			}
		}()

		next.ServeHTTP(wrapper, r)
	})
}

// percentile calculates the percentile value from a sorted slice
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(float64(len(sorted)-1) * p)
	return sorted[index]
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
