// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

/*
Package supervisor provides process supervision for the drives service using
suture v4.

# Overview

Long-running components are organized into three layers:

	RootSupervisor ("saveearthride")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   ├── SweeperService "cache-sweeper"
	│   └── SweeperService "ratelimit-sweeper"
	├── MessagingSupervisor ("messaging-layer")
	│   └── EventBusService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A failing sweeper is restarted inside the maintenance layer without
touching the HTTP server. The event bus is started once; if its router
stops it is not restarted and change events stop flowing.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewComponentSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMaintenanceService(services.NewSweeperService("cache-sweeper", time.Minute, sweepCache))
	tree.AddMessagingService(services.NewEventBusService(bus))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)

# Configuration

TreeConfig zero values fall back to suture's defaults:
  - FailureThreshold: 5 failures
  - FailureDecay: 30 seconds
  - FailureBackoff: 15 seconds
  - ShutdownTimeout: 10 seconds

# Logging

Supervisor events are logged through sutureslog with a slog.Logger backed by
the zerolog adapter in the logging package.
*/
package supervisor
