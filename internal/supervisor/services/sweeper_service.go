// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package services

import (
	"context"
	"time"

	"github.com/tomtom215/saveearthride/internal/logging"
)

// SweepFunc removes expired state and reports how many items it dropped.
type SweepFunc func(ctx context.Context) (int, error)

// SweeperService runs a SweepFunc on a fixed interval. Sweep errors are
// logged and the ticker keeps going; a panic is left to the supervisor.
type SweeperService struct {
	name     string
	interval time.Duration
	sweep    SweepFunc
}

// NewSweeperService creates a sweeper. Non-positive interval selects 1m.
func NewSweeperService(name string, interval time.Duration, sweep SweepFunc) *SweeperService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweeperService{name: name, interval: interval, sweep: sweep}
}

// Serve implements suture.Service.
func (s *SweeperService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SweeperService) runOnce(ctx context.Context) {
	removed, err := s.sweep(ctx)
	if err != nil {
		logging.Warn().Err(err).Str("sweeper", s.name).Msg("Sweep failed")
		return
	}
	if removed > 0 {
		logging.Debug().Str("sweeper", s.name).Int("removed", removed).Msg("Sweep completed")
	}
}

// String implements fmt.Stringer.
func (s *SweeperService) String() string {
	return s.name
}
