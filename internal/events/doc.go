// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

/*
Package events publishes drive change notifications.

Every successful mutation produces a Change on the "drives.changes" topic of
an in-process Watermill GoChannel. A Watermill router consumes the topic
with two handlers:

  - audit: logs each change through zerolog and counts it in Prometheus
  - nats-forwarder: republishes changes to NATS when NATS_URL is configured,
    so other services (newsletters, dashboards) can react to new drives

Publishing never blocks a request on NATS: the HTTP handler only writes to
the in-process channel.

Example:

	bus, err := events.NewBus(events.Config{NATSURL: cfg.Events.NATSURL})
	if err != nil {
	    return err
	}
	go bus.Run(ctx)
	<-bus.Running()

	_ = bus.Publish(ctx, events.NewChange(events.TypeDriveCreated, drive.ID))
*/
package events
