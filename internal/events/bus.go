// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/saveearthride/internal/logging"
	"github.com/tomtom215/saveearthride/internal/metrics"
)

// Config configures the change bus.
type Config struct {
	// NATSURL enables forwarding to NATS when set.
	NATSURL string

	// BufferSize is the GoChannel output buffer per subscriber.
	BufferSize int64

	CloseTimeout time.Duration

	// Observers are called for every change the audit handler sees.
	Observers []func(Change)
}

// DefaultConfig returns in-process only settings.
func DefaultConfig() Config {
	return Config{
		BufferSize:   256,
		CloseTimeout: 10 * time.Second,
	}
}

// Bus publishes changes in-process and routes them to handlers.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	nats   message.Publisher
	logger watermill.LoggerAdapter
	mu     sync.RWMutex
	closed bool
}

// NewBus creates the GoChannel, the router and, when configured, the NATS publisher.
func NewBus(cfg Config) (*Bus, error) {
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = def.CloseTimeout
	}

	logger := logging.NewWatermillLogger()

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.BufferSize,
	}, logger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	// Recoverer: convert handler panics to errors
	router.AddMiddleware(middleware.Recoverer)

	// Retry: short backoff for transient forwarder failures
	retry := middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		Logger:          logger,
	}
	router.AddMiddleware(retry.Middleware)

	b := &Bus{
		pubsub: pubsub,
		router: router,
		logger: logger,
	}

	router.AddConsumerHandler("audit", Topic, pubsub, auditHandler(cfg.Observers))

	if cfg.NATSURL != "" {
		pub, err := newNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			return nil, err
		}
		b.nats = pub
		router.AddHandler("nats-forwarder", Topic, pubsub, Topic, pub, forward)
		logging.Info().Str("url", cfg.NATSURL).Msg("Forwarding drive changes to NATS")
	}

	return b, nil
}

// newNATSPublisher connects a core NATS publisher (JetStream disabled).
func newNATSPublisher(url string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	return pub, nil
}

// forward passes a copy of each message through to the NATS publisher.
func forward(msg *message.Message) ([]*message.Message, error) {
	out := msg.Copy()
	out.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	return []*message.Message{out}, nil
}

func auditHandler(observers []func(Change)) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		c, err := Unmarshal(msg.Payload)
		if err != nil {
			// Malformed payloads can never succeed; drop them.
			logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed change")
			return nil
		}

		metrics.EventsConsumed.WithLabelValues(string(c.Type)).Inc()
		logging.Info().
			Str("component", "audit").
			Str("event_id", c.EventID).
			Str("type", string(c.Type)).
			Strs("drive_ids", c.DriveIDs).
			Str("operation", c.Operation).
			Str("request_id", c.RequestID).
			Msg("Drive change")

		for _, observe := range observers {
			observe(c)
		}
		return nil
	}
}

// Publish writes a change to the in-process topic. The request id from ctx
// is attached when the change has none.
func (b *Bus) Publish(ctx context.Context, c Change) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	if c.RequestID == "" {
		c.RequestID = logging.RequestIDFromContext(ctx)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}

	msg := message.NewMessage(c.EventID, data)
	msg.Metadata.Set("type", string(c.Type))
	if c.RequestID != "" {
		msg.Metadata.Set("request_id", c.RequestID)
	}

	if err := b.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	metrics.EventsPublished.WithLabelValues(string(c.Type)).Inc()
	return nil
}

// Run starts the router and blocks until ctx is cancelled or Close is called.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running returns a channel that closes once handlers are subscribed.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

// Close stops the router and releases the channel and NATS connection.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var firstErr error
	if err := b.router.Close(); err != nil {
		firstErr = err
	}
	if err := b.pubsub.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if b.nats != nil {
		if err := b.nats.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
