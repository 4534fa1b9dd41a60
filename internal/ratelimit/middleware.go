// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/saveearthride/internal/logging"
)

type rejection struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retryAfter"`
}

// Middleware enforces the limit for every request except CORS preflights.
// The resolved client identity is stored in the request context for logging.
// Store failures are logged and the request is let through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := ClientIP(r)
		ctx := logging.ContextWithClientIP(r.Context(), client)
		r = r.WithContext(ctx)

		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		res, err := l.Allow(ctx, client)
		if err != nil {
			logging.CtxErr(ctx, err).Msg("Rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			logging.Ctx(ctx).Warn().
				Str("path", r.URL.Path).
				Int("retry_after", retryAfter).
				Msg("Rate limit exceeded")

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(rejection{
				Error:      "Too many requests. Please try again later.",
				Code:       "RATE_LIMIT_EXCEEDED",
				RetryAfter: retryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
