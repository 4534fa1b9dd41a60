// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/saveearthride/internal/middleware"
)

// Router sets up HTTP routes using Chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil chiMW selects DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, chiMW *ChiMiddleware) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: chiMW}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(chiMiddleware(middleware.RequestID)) // X-Request-ID and client IP in the logging context
	r.Use(chiMiddleware(middleware.AccessLog))
	r.Use(Recoverer)
	r.Use(chimiddleware.StripSlashes)
	r.Use(APISecurityHeaders())
	r.Use(router.chiMiddleware.CORS()) // must be global to see preflights
	r.Use(chiMiddleware(middleware.PrometheusMetrics))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	// ========================
	// Health and Metrics
	// ========================
	r.Get("/health", router.handler.Health)
	r.Get("/health/ready", router.handler.HealthReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// ========================
	// Drives API
	// ========================
	// Performance is recorded before the limiter so rejected requests count too.
	r.Route("/api/drives", func(r chi.Router) {
		r.Use(router.handler.perfMon.Middleware)
		r.Use(router.handler.limiter.Middleware)
		r.Use(chiMiddleware(middleware.Compression))

		r.NotFound(notFound)
		r.MethodNotAllowed(methodNotAllowed)

		r.Get("/", router.handler.GetDrives)
		r.Post("/", router.handler.CreateDrive)
		r.Put("/", router.handler.UpdateDrive)
		r.Delete("/", router.handler.DeleteDrive)
		r.With(router.chiMiddleware.RateLimitBulk()).Patch("/", router.handler.BulkDrives)
		r.Options("/", router.drivesOptions)
	})

	return r
}

// drivesOptions answers OPTIONS /api/drives. CORS preflights arrive here
// after go-chi/cors has validated the origin; the full method list and max
// age are always advertised.
func (router *Router) drivesOptions(w http.ResponseWriter, _ *http.Request) {
	hdr := w.Header()
	hdr.Set("Access-Control-Allow-Methods", strings.Join(AllowedMethods, ","))
	hdr.Set("Access-Control-Max-Age", strconv.Itoa(PreflightMaxAge))
	if hdr.Get("Access-Control-Allow-Headers") == "" {
		hdr.Set("Access-Control-Allow-Headers", strings.Join(router.chiMiddleware.config.CORSAllowedHeaders, ", "))
	}
	if hdr.Get("Access-Control-Allow-Origin") == "" && router.chiMiddleware.AllowsAnyOrigin() {
		hdr.Set("Access-Control-Allow-Origin", "*")
	}
	hdr.Set("Allow", strings.Join(AllowedMethods, ", "))
	w.WriteHeader(http.StatusOK)
}
