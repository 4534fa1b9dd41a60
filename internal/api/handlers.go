// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package api

import (
	"context"
	"time"

	"github.com/tomtom215/saveearthride/internal/cache"
	"github.com/tomtom215/saveearthride/internal/drives"
	"github.com/tomtom215/saveearthride/internal/events"
	"github.com/tomtom215/saveearthride/internal/imaging"
	"github.com/tomtom215/saveearthride/internal/logging"
	"github.com/tomtom215/saveearthride/internal/middleware"
	"github.com/tomtom215/saveearthride/internal/ratelimit"
)

// EventPublisher publishes drive change events.
type EventPublisher interface {
	Publish(ctx context.Context, c events.Change) error
}

// BackendStater reports the circuit breaker state of the storage backend.
type BackendStater interface {
	State() string
}

// Deps are the collaborators of Handler. Drives, Cache, Limiter, Images and
// PerfMon are required; Events and Backend may be nil.
type Deps struct {
	Drives  *drives.Service
	Cache   *cache.ResponseCache
	Limiter *ratelimit.Limiter
	Images  *imaging.Processor
	PerfMon *middleware.PerformanceMonitor
	Events  EventPublisher
	Backend BackendStater
	Version string
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_drives.go: /api/drives GET, POST, PUT, DELETE, OPTIONS
//   - handlers_bulk.go: /api/drives PATCH operations
//   - handlers_health.go: health and readiness probes
type Handler struct {
	drives    *drives.Service
	cache     *cache.ResponseCache
	limiter   *ratelimit.Limiter
	images    *imaging.Processor
	perfMon   *middleware.PerformanceMonitor
	events    EventPublisher
	backend   BackendStater
	version   string
	startTime time.Time
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	if d.Version == "" {
		d.Version = "dev"
	}
	return &Handler{
		drives:    d.Drives,
		cache:     d.Cache,
		limiter:   d.Limiter,
		images:    d.Images,
		perfMon:   d.PerfMon,
		events:    d.Events,
		backend:   d.Backend,
		version:   d.Version,
		startTime: time.Now(),
	}
}

// afterMutation drops every cached response and publishes the change. It
// runs before the response is written so the next read is always fresh.
func (h *Handler) afterMutation(ctx context.Context, c events.Change) {
	dropped := h.cache.InvalidateAll()
	logging.Ctx(ctx).Debug().
		Str("event", string(c.Type)).
		Int("dropped", dropped).
		Msg("Response cache invalidated")
	h.publish(ctx, c)
}

// publish sends c to the event bus. Failures are logged; the write itself
// already succeeded.
func (h *Handler) publish(ctx context.Context, c events.Change) {
	if h.events == nil {
		return
	}
	if err := h.events.Publish(ctx, c); err != nil {
		logging.CtxErr(ctx, err).Str("event", string(c.Type)).Msg("Failed to publish change event")
	}
}
