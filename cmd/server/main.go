// Save Earth Ride - Drive Events API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/saveearthride

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/saveearthride/internal/api"
	"github.com/tomtom215/saveearthride/internal/cache"
	"github.com/tomtom215/saveearthride/internal/config"
	"github.com/tomtom215/saveearthride/internal/drives"
	"github.com/tomtom215/saveearthride/internal/events"
	"github.com/tomtom215/saveearthride/internal/imaging"
	"github.com/tomtom215/saveearthride/internal/logging"
	"github.com/tomtom215/saveearthride/internal/middleware"
	"github.com/tomtom215/saveearthride/internal/ratelimit"
	"github.com/tomtom215/saveearthride/internal/store"
	"github.com/tomtom215/saveearthride/internal/supervisor"
	"github.com/tomtom215/saveearthride/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Service:   "saveearthride",
		Version:   version,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logging.Info().
		Str("version", version).
		Str("backend", cfg.Storage.Backend).
		Str("ratelimit_store", cfg.RateLimit.Store).
		Bool("nats", cfg.Events.NATSURL != "").
		Msg("Starting Save Earth Ride drives API")

	// === STORAGE ===
	raw, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	backend := store.NewResilientBackend(raw, resilienceConfig(cfg))
	defer func() {
		if err := backend.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage backend")
		}
	}()

	driveService := drives.NewService(backend)
	initCtx, initCancel := context.WithTimeout(ctx, 15*time.Second)
	if err := driveService.Initialize(initCtx); err != nil {
		// First request retries the initialization.
		logging.Warn().Err(err).Msg("Drives sheet not initialized at startup")
	}
	initCancel()

	// === RATE LIMITING ===
	limitStore, closeLimitStore, err := openLimitStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLimitStore()

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequests:   cfg.RateLimit.MaxRequests,
		Window:        cfg.RateLimit.Window,
		SweepInterval: cfg.RateLimit.SweepInterval,
	}, limitStore)

	// === EVENTS ===
	bus, err := events.NewBus(events.Config{
		NATSURL:    cfg.Events.NATSURL,
		BufferSize: int64(cfg.Events.BufferSize),
	})
	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	// === HTTP ===
	responseCache := cache.New(cache.Config{
		TTL:        cfg.Cache.TTL,
		MaxEntries: cfg.Cache.MaxEntries,
	})

	imageOpts := imaging.DefaultOptions()
	imageOpts.TargetBytes = cfg.Image.TargetBytes
	imageOpts.MaxEncodedBytes = cfg.Image.MaxEncodedBytes
	imageOpts.MaxDimension = cfg.Image.MaxDimension

	handler := api.NewHandler(api.Deps{
		Drives:  driveService,
		Cache:   responseCache,
		Limiter: limiter,
		Images:  imaging.NewProcessor(imageOpts),
		PerfMon: middleware.NewPerformanceMonitor(0),
		Events:  bus,
		Backend: backend,
		Version: version,
	})

	chiMWConfig := api.DefaultChiMiddlewareConfig()
	chiMWConfig.CORSAllowedOrigins = cfg.Server.CORSOrigins
	chiMWConfig.BulkRateLimitRequests = cfg.Server.BulkRateLimit
	chiMWConfig.BulkRateLimitWindow = cfg.Server.BulkRateWindow
	chiMWConfig.BulkRateLimitDisabled = cfg.Server.BulkRateLimit == 0
	router := api.NewRouter(handler, api.NewChiMiddleware(chiMWConfig))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	// === SUPERVISOR TREE ===
	tree, err := supervisor.NewSupervisorTree(logging.NewComponentSlogLogger("supervisor"), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddMaintenanceService(services.NewSweeperService("cache-sweeper", cfg.Cache.SweepInterval,
		func(context.Context) (int, error) { return responseCache.Sweep(), nil }))
	tree.AddMaintenanceService(services.NewSweeperService("ratelimit-sweeper", cfg.RateLimit.SweepInterval, limiter.Sweep))
	tree.AddMessagingService(services.NewEventBusService(bus))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var treeErr error
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
			treeErr = err
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	return treeErr
}

// openBackend opens the configured drive store.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendSheets:
		b, err := store.NewSheetsBackend(ctx, store.SheetsConfig{
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			CredentialsFile: cfg.Sheets.CredentialsFile,
			Endpoint:        cfg.Sheets.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("open google sheets backend: %w", err)
		}
		logging.Info().Str("spreadsheet_id", cfg.Sheets.SpreadsheetID).Msg("Using Google Sheets storage")
		return b, nil

	case config.BackendBadger:
		b, err := store.OpenBadger(store.BadgerConfig{
			Path:       cfg.Storage.BadgerPath,
			SyncWrites: cfg.Storage.SyncWrites,
		})
		if err != nil {
			return nil, fmt.Errorf("open badger backend: %w", err)
		}
		logging.Info().Str("path", cfg.Storage.BadgerPath).Msg("Using BadgerDB storage")
		return b, nil

	case config.BackendMemory:
		logging.Warn().Msg("Using in-memory storage, drives are lost on restart")
		return store.NewMemoryBackend(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func resilienceConfig(cfg *config.Config) store.ResilienceConfig {
	rc := store.DefaultResilienceConfig()
	rc.RequestsPerMinute = cfg.Sheets.RequestsPerMinute
	rc.MaxRetries = uint64(cfg.Sheets.MaxRetries)
	if cfg.Storage.Backend != config.BackendSheets {
		// Local stores have no API quota.
		rc.RequestsPerMinute = 0
	}
	return rc
}

// openLimitStore returns the rate limit store and its cleanup function.
func openLimitStore(ctx context.Context, cfg *config.Config) (ratelimit.Store, func(), error) {
	if cfg.RateLimit.Store != config.LimitStoreRedis {
		return ratelimit.NewMemoryStore(), func() {}, nil
	}

	rs, err := ratelimit.NewRedisStoreFromURL(ctx, cfg.RateLimit.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect rate limit redis: %w", err)
	}
	logging.Info().Msg("Rate limit state shared through Redis")
	return rs, func() {
		if err := rs.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing rate limit redis")
		}
	}, nil
}
