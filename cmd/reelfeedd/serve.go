// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/reelfeed/internal/api"
	"github.com/ManuGH/reelfeed/internal/bus"
	"github.com/ManuGH/reelfeed/internal/config"
	"github.com/ManuGH/reelfeed/internal/health"
	xglog "github.com/ManuGH/reelfeed/internal/log"
	"github.com/ManuGH/reelfeed/internal/session"
	"github.com/ManuGH/reelfeed/internal/telemetry"
	"github.com/ManuGH/reelfeed/internal/version"
)

const shutdownTimeout = 10 * time.Second

func run(ctx context.Context, configPath string) error {
	logger := xglog.WithComponent("daemon")

	loader := config.NewLoader(configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: cfg.LogService, Version: cfg.Version})
	logger = xglog.WithComponent("daemon")
	source := "env+defaults"
	if configPath != "" {
		source = "file"
	}
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str("source", source).
		Str(xglog.FieldPath, configPath).
		Msg("configuration loaded")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		return fmt.Errorf("startup checks: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "telemetry.shutdown_failed").Msg("failed to flush spans")
		}
	}()

	hm := health.NewManager(cfg.Version)

	byteCache, cacheCheck, err := buildCache(ctx, cfg.Prefetch, xglog.WithComponent("cache"))
	if err != nil {
		return fmt.Errorf("prefetch cache: %w", err)
	}
	defer func() { _ = byteCache.Close() }()
	if cacheCheck != nil {
		hm.RegisterChecker(cacheCheck)
	}

	prefetcher, stopPrefetch := buildPrefetcher(cfg.Prefetch, byteCache, cfg.Telemetry.Enabled)
	defer stopPrefetch()

	client, err := buildBackend(cfg)
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}
	hm.RegisterChecker(health.BreakerChecker("backend", client))

	positions, db, err := buildPositions(ctx, cfg.Session.StorePath)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() { _ = db.Close() }()
		hm.RegisterChecker(health.SQLiteChecker("session_store", db))
	}

	events := bus.NewMemoryBus()
	sessions, err := session.NewManager(sessionConfig(cfg), session.Deps{
		Source:     client,
		Likes:      client,
		Prefetcher: prefetcher,
		Positions:  positions,
		Bus:        events,
	})
	if err != nil {
		return err
	}
	hm.RegisterChecker(health.CapacityChecker("sessions", cfg.Session.MaxSessions, sessions.Len))

	tracingService := ""
	if cfg.Telemetry.Enabled {
		tracingService = cfg.LogService + "-api"
	}
	apiServer := api.New(api.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
		TracingService: tracingService,
	}, sessions, events, hm)

	g, gctx := errgroup.WithContext(ctx)

	if configPath != "" {
		holder := config.NewConfigHolder(cfg, loader, configPath)
		if err := holder.StartWatcher(gctx); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watch_failed").Msg("config hot reload disabled")
		} else {
			defer holder.Stop()
			updates := make(chan config.AppConfig, 1)
			holder.RegisterListener(updates)
			g.Go(func() error {
				applyReloads(gctx, updates, sessions)
				return nil
			})
		}
	}

	g.Go(func() error { return sessions.Run(gctx) })

	servers := []*http.Server{newServer(cfg.ListenAddr, apiServer.Handler())}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, newServer(cfg.MetricsAddr, mux))
	}
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info().Str(xglog.FieldEvent, "server.listening").Str("addr", srv.Addr).Msg("server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Str(xglog.FieldEvent, "daemon.shutdown").Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// applyReloads pushes reloaded settings into the running daemon. Listen
// addresses and backends are only read at startup.
func applyReloads(ctx context.Context, updates <-chan config.AppConfig, sessions *session.Manager) {
	for {
		select {
		case <-ctx.Done():
			return
		case next := <-updates:
			xglog.Configure(xglog.Config{Level: next.LogLevel, Service: next.LogService, Version: next.Version})
			sessions.UpdateConfig(sessionConfig(next))
			l := xglog.WithComponent("daemon")
			l.Info().
				Str(xglog.FieldEvent, "config.applied").
				Str("level", zerolog.GlobalLevel().String()).
				Msg("reloaded configuration applied")
		}
	}
}
