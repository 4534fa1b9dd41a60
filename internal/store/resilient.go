// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/saveearthride/internal/logging"
	"github.com/tomtom215/saveearthride/internal/metrics"
)

// ResilienceConfig configures ResilientBackend.
type ResilienceConfig struct {
	// RequestsPerMinute caps backend calls. Zero disables the limiter.
	RequestsPerMinute int
	Burst             int

	// MaxRetries bounds retries of idempotent calls.
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultResilienceConfig matches the default Sheets per-user quota of 60 requests per minute.
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		RequestsPerMinute: 60,
		Burst:             10,
		MaxRetries:        3,
		InitialInterval:   200 * time.Millisecond,
		MaxInterval:       2 * time.Second,
	}
}

// ResilientBackend wraps a Backend with rate limiting, a circuit breaker and retries.
//
// The circuit breaker uses real time (via sony/gobreaker) for its interval and
// timeout calculations. Tests exercise the breaker through request counts only.
type ResilientBackend struct {
	next    Backend
	cfg     ResilienceConfig
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[interface{}]
	name    string
}

// NewResilientBackend wraps next.
// Circuit breaker configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewResilientBackend(next Backend, cfg ResilienceConfig) *ResilientBackend {
	cbName := next.Name() + "-backend"

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultResilienceConfig().InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultResilienceConfig().MaxInterval
	}

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Str("breaker", cbName).Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		// Missing sheets and bad row indexes are caller errors, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrSheetNotFound) || errors.Is(err, ErrRowOutOfRange) || errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &ResilientBackend{
		next:    next,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		cb:      cb,
		name:    cbName,
	}
}

// Name implements Backend.
func (r *ResilientBackend) Name() string { return r.next.Name() }

// State returns the circuit breaker state as a string.
func (r *ResilientBackend) State() string { return stateToString(r.cb.State()) }

// execute runs one backend call under the limiter and breaker.
func (r *ResilientBackend) execute(ctx context.Context, op string, fn func() error) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: rate limiter: %w", r.next.Name(), op, err)
	}

	start := time.Now()
	_, err := r.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	metrics.RecordBackendCall(r.next.Name(), op, time.Since(start), err)

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(r.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(r.name, "rejected").Inc()
		logging.Warn().Err(err).Str("operation", op).Msg("[CIRCUIT BREAKER] Request rejected")
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(r.name, "failure").Inc()
	}
	return err
}

// retry runs an idempotent call with exponential backoff. Errors that cannot
// succeed on retry stop the loop immediately.
func (r *ResilientBackend) retry(ctx context.Context, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := r.execute(ctx, op, fn)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		logging.Debug().Err(err).Str("operation", op).Int("attempt", attempt).Msg("Retrying backend call")
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, r.cfg.MaxRetries), ctx))
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrSheetNotFound),
		errors.Is(err, ErrRowOutOfRange),
		errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// EnsureSheet implements Backend.
func (r *ResilientBackend) EnsureSheet(ctx context.Context, sheet string, header []string) error {
	return r.retry(ctx, "ensure_sheet", func() error {
		return r.next.EnsureSheet(ctx, sheet, header)
	})
}

// ReadRows implements Backend.
func (r *ResilientBackend) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	var rows [][]string
	err := r.retry(ctx, "read_rows", func() error {
		var err error
		rows, err = r.next.ReadRows(ctx, sheet)
		return err
	})
	return rows, err
}

// AppendRows implements Backend. Appends are not retried.
func (r *ResilientBackend) AppendRows(ctx context.Context, sheet string, rows [][]string) error {
	return r.execute(ctx, "append_rows", func() error {
		return r.next.AppendRows(ctx, sheet, rows)
	})
}

// UpdateRows implements Backend.
func (r *ResilientBackend) UpdateRows(ctx context.Context, sheet string, rows map[int][]string) error {
	return r.retry(ctx, "update_rows", func() error {
		return r.next.UpdateRows(ctx, sheet, rows)
	})
}

// DeleteRows implements Backend. Deletes shift rows, so they are not retried.
func (r *ResilientBackend) DeleteRows(ctx context.Context, sheet string, start, end int) error {
	return r.execute(ctx, "delete_rows", func() error {
		return r.next.DeleteRows(ctx, sheet, start, end)
	})
}

// Ping implements Backend. Pings bypass the breaker so readiness reflects the real backend.
func (r *ResilientBackend) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

// Close implements Backend.
func (r *ResilientBackend) Close() error {
	return r.next.Close()
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
