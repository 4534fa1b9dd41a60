// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package api

import (
	"context"
	"net/http"
	"time"
)

// readyTimeout bounds the backend ping of the readiness probe.
const readyTimeout = 5 * time.Second

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status        string    `json:"status"`
	Version       string    `json:"version"`
	UptimeSeconds float64   `json:"uptimeSeconds"`
	BackendState  string    `json:"backendState,omitempty"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Health handles liveness probe requests.
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthStatus{
		Status:        "healthy",
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Timestamp:     time.Now().UTC(),
	})
}

// HealthReady handles readiness probe requests.
// Returns 503 while the spreadsheet backend is unreachable or its circuit
// breaker is open.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := HealthStatus{
		Status:        "ready",
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
		Timestamp:     time.Now().UTC(),
	}
	if h.backend != nil {
		status.BackendState = h.backend.State()
	}

	code := http.StatusOK
	if err := h.drives.Ready(ctx); err != nil {
		status.Status = "not_ready"
		status.Error = err.Error()
		code = http.StatusServiceUnavailable
	} else if status.BackendState == "open" {
		status.Status = "not_ready"
		status.Error = "backend circuit breaker is open"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, status)
}
