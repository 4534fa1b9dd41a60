// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

/*
Package services provides suture.Service wrappers for the drives service.

  - HTTPServerService: ListenAndServe with graceful Shutdown on cancellation
  - SweeperService: runs a SweepFunc on a ticker (response cache, rate limiter)
  - EventBusService: runs the Watermill router behind events.Bus

Each wrapper implements fmt.Stringer so suture can name it in logs.
*/
package services
