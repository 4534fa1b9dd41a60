// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package services

import (
	"context"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/saveearthride/internal/logging"
)

// EventRouter is the lifecycle of events.Bus.
type EventRouter interface {
	Run(ctx context.Context) error
	Close() error
}

// EventBusService runs the change event router. A Watermill router cannot
// be started twice, so the service never asks suture for a restart.
type EventBusService struct {
	bus EventRouter
}

// NewEventBusService wraps bus.
func NewEventBusService(bus EventRouter) *EventBusService {
	return &EventBusService{bus: bus}
}

// Serve implements suture.Service.
func (s *EventBusService) Serve(ctx context.Context) error {
	err := s.bus.Run(ctx)
	if ctx.Err() != nil {
		if closeErr := s.bus.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Event bus close failed")
		}
		return ctx.Err()
	}
	if err != nil {
		logging.Error().Err(err).Msg("Event bus stopped, change events disabled")
	}
	return suture.ErrDoNotRestart
}

// String implements fmt.Stringer.
func (s *EventBusService) String() string {
	return "event-bus"
}
