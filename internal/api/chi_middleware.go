// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/saveearthride/internal/logging"
	"github.com/tomtom215/saveearthride/internal/ratelimit"
)

// AllowedMethods is the method list advertised to CORS preflights.
var AllowedMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut,
	http.MethodDelete, http.MethodPatch, http.MethodOptions,
}

// PreflightMaxAge is how long browsers may cache a preflight, in seconds.
const PreflightMaxAge = 86400

// ChiMiddlewareConfig holds configuration for Chi middleware factories.
type ChiMiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSAllowedHeaders []string
	CORSExposedHeaders []string
	CORSMaxAge         int // seconds

	// Bulk operations get a separate, stricter per-client budget.
	BulkRateLimitRequests int
	BulkRateLimitWindow   time.Duration
	BulkRateLimitDisabled bool
}

// DefaultChiMiddlewareConfig returns the production defaults. The drives
// API is public, so any origin is accepted.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization", "If-None-Match", "X-Request-ID"},
		CORSExposedHeaders: []string{
			"ETag", "X-Cache", "X-Performance", "X-Request-ID",
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After",
		},
		CORSMaxAge: PreflightMaxAge,

		BulkRateLimitRequests: 10,
		BulkRateLimitWindow:   time.Minute,
	}
}

// ChiMiddleware provides Chi-compatible middleware factories.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates a new Chi middleware factory with the given configuration.
func NewChiMiddleware(config *ChiMiddlewareConfig) *ChiMiddleware {
	if config == nil {
		config = DefaultChiMiddlewareConfig()
	}

	// OptionsPassthrough lets the drives OPTIONS handler write the final
	// preflight answer, including the full method list.
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:     config.CORSAllowedOrigins,
		AllowedMethods:     AllowedMethods,
		AllowedHeaders:     config.CORSAllowedHeaders,
		ExposedHeaders:     config.CORSExposedHeaders,
		AllowCredentials:   false,
		MaxAge:             config.CORSMaxAge,
		OptionsPassthrough: true,
	})

	return &ChiMiddleware{
		config: config,
		cors:   corsHandler,
	}
}

// CORS returns the go-chi/cors middleware.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// AllowsAnyOrigin reports whether the wildcard origin is configured.
func (m *ChiMiddleware) AllowsAnyOrigin() bool {
	for _, o := range m.config.CORSAllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

// RateLimitBulk limits bulk PATCH operations per client using go-chi/httprate.
// Clients are keyed the same way as the global sliding window limiter.
func (m *ChiMiddleware) RateLimitBulk() func(http.Handler) http.Handler {
	if m.config.BulkRateLimitDisabled || m.config.BulkRateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	window := m.config.BulkRateLimitWindow
	return httprate.Limit(
		m.config.BulkRateLimitRequests,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return ratelimit.ClientIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			respondError(w, r, http.StatusTooManyRequests, ErrCodeRateLimited,
				"Too many bulk operations. Please try again later.", nil)
		}),
	)
}

// Recoverer turns panics into a 500 JSON response and logs the stack.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
				panic(rec)
			}

			logging.Ctx(r.Context()).Error().
				Str("panic", fmt.Sprint(rec)).
				Str("stack", string(debug.Stack())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("Recovered from panic")

			if ww.Status() == 0 {
				respondError(ww, r, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", nil)
			}
		}()
		next.ServeHTTP(ww, r)
	})
}

// APISecurityHeaders adds standard security headers to API responses.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// Behind a TLS-terminating proxy
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// methodNotAllowed answers 405 with the JSON envelope.
func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "Method not allowed", nil)
}

// notFound answers unknown routes with the JSON envelope.
func notFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
}
