// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/saveearthride/internal/logging"
	"github.com/tomtom215/saveearthride/internal/metrics"
)

const (
	// DefaultMaxRequests is the request budget per client per window.
	DefaultMaxRequests = 50

	// DefaultWindow is the sliding window length.
	DefaultWindow = 60 * time.Second

	// DefaultSweepInterval is how often stale clients are evicted.
	DefaultSweepInterval = 5 * time.Minute
)

// Config holds limiter settings.
type Config struct {
	MaxRequests   int
	Window        time.Duration
	SweepInterval time.Duration
}

// DefaultConfig returns the production limiter settings.
func DefaultConfig() Config {
	return Config{
		MaxRequests:   DefaultMaxRequests,
		Window:        DefaultWindow,
		SweepInterval: DefaultSweepInterval,
	}
}

// Result is the outcome of a single Allow call.
type Result struct {
	Allowed    bool
	Remaining  int
	Limit      int
	RetryAfter time.Duration
}

// Store records request timestamps per client.
type Store interface {
	// Take discards timestamps at or before now-window, and if fewer than
	// limit remain appends now. It returns whether the request was admitted
	// and the number of timestamps in the window before the append.
	Take(ctx context.Context, client string, now time.Time, window time.Duration, limit int) (allowed bool, count int, err error)

	// Sweep removes clients whose newest timestamp is at or before cutoff.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)

	// Clients returns the number of tracked clients.
	Clients(ctx context.Context) (int, error)
}

// Limiter applies the sliding-window policy on top of a Store.
type Limiter struct {
	cfg   Config
	store Store
	now   func() time.Time
}

// New creates a limiter. A nil store selects a MemoryStore.
func New(cfg Config, store Store) *Limiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Limiter{cfg: cfg, store: store, now: time.Now}
}

// Config returns the effective limiter settings.
func (l *Limiter) Config() Config {
	return l.cfg
}

// Allow records a request for client and reports whether it is admitted.
func (l *Limiter) Allow(ctx context.Context, client string) (Result, error) {
	allowed, count, err := l.store.Take(ctx, client, l.now(), l.cfg.Window, l.cfg.MaxRequests)
	metrics.RecordRateLimitDecision(allowed, err)
	if err != nil {
		return Result{}, fmt.Errorf("rate limit store: %w", err)
	}

	if !allowed {
		return Result{
			Allowed:    false,
			Remaining:  0,
			Limit:      l.cfg.MaxRequests,
			RetryAfter: l.cfg.Window,
		}, nil
	}

	return Result{
		Allowed:   true,
		Remaining: l.cfg.MaxRequests - count,
		Limit:     l.cfg.MaxRequests,
	}, nil
}

// Sweep evicts clients idle for more than twice the window.
func (l *Limiter) Sweep(ctx context.Context) (int, error) {
	removed, err := l.store.Sweep(ctx, l.now().Add(-2*l.cfg.Window))
	if err != nil {
		return 0, fmt.Errorf("sweep rate limit store: %w", err)
	}

	metrics.RateLimitSweptClients.Add(float64(removed))
	if clients, err := l.store.Clients(ctx); err == nil {
		metrics.RateLimitTrackedClients.Set(float64(clients))
	}
	if removed > 0 {
		logging.Debug().Int("removed", removed).Msg("Swept idle rate limit clients")
	}
	return removed, nil
}

// Stats describes the limiter for diagnostics.
type Stats struct {
	ActiveClients int     `json:"activeClients"`
	MaxRequests   int     `json:"maxRequests"`
	WindowMs      int64   `json:"windowMs"`
	SweepInterval float64 `json:"sweepIntervalSeconds"`
}

// Stats returns the limiter configuration and the tracked client count.
// ActiveClients is -1 when the store cannot report it.
func (l *Limiter) Stats(ctx context.Context) Stats {
	clients, err := l.store.Clients(ctx)
	if err != nil {
		clients = -1
	}
	return Stats{
		ActiveClients: clients,
		MaxRequests:   l.cfg.MaxRequests,
		WindowMs:      l.cfg.Window.Milliseconds(),
		SweepInterval: l.cfg.SweepInterval.Seconds(),
	}
}
