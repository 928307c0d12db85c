// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/reelfeed/internal/backend"
	"github.com/ManuGH/reelfeed/internal/cache"
	"github.com/ManuGH/reelfeed/internal/config"
	"github.com/ManuGH/reelfeed/internal/feed"
	"github.com/ManuGH/reelfeed/internal/health"
	"github.com/ManuGH/reelfeed/internal/persistence/sqlite"
	"github.com/ManuGH/reelfeed/internal/platform/httpx"
	"github.com/ManuGH/reelfeed/internal/preload"
	"github.com/ManuGH/reelfeed/internal/session"
	"github.com/ManuGH/reelfeed/internal/telemetry"
)

const (
	cacheJanitorInterval = time.Minute
	prefetchTimeout      = 15 * time.Second
)

// sessionConfig maps the daemon configuration onto the session registry.
func sessionConfig(cfg config.AppConfig) session.Config {
	return session.Config{
		Feed: feed.Config{
			MountRadius:         cfg.Feed.MountRadius,
			VisibilityThreshold: cfg.Feed.VisibilityThreshold,
			SettleDelay:         cfg.Feed.SettleDelay,
			DoubleTapWindow:     cfg.Feed.DoubleTapWindow,
			ShareOrigin:         cfg.ShareOrigin,
		},
		PreloadAhead:   cfg.Feed.PreloadAhead,
		PlayTimeout:    cfg.Feed.PlayTimeout,
		LikeTimeout:    cfg.Likes.Timeout,
		LikeRollback:   cfg.Likes.Rollback,
		LikeStaleGuard: cfg.Likes.StaleGuard,
		IdleTTL:        cfg.Session.IdleTTL,
		MaxSessions:    cfg.Session.MaxSessions,
	}
}

func telemetryConfig(cfg config.AppConfig) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	}
}

// buildCache returns the prefetch byte cache and, for networked backends, a
// health checker for it.
func buildCache(ctx context.Context, cfg config.PrefetchConfig, logger zerolog.Logger) (cache.Cache, health.Checker, error) {
	switch cfg.Cache {
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return rc, health.PingChecker("prefetch_cache", rc), nil
	case config.CacheMemory:
		return cache.NewMemoryCache(cfg.CacheMaxBytes, cacheJanitorInterval), nil, nil
	case config.CacheNone, "":
		return cache.NewNoOpCache(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown prefetch cache %q", cfg.Cache)
	}
}

// buildPrefetcher returns preload.Nop when prefetching is disabled. The
// returned stop function is never nil.
func buildPrefetcher(cfg config.PrefetchConfig, c cache.Cache, tracing bool) (preload.Prefetcher, func()) {
	if !cfg.Enabled {
		return preload.Nop, func() {}
	}
	var opts []httpx.Option
	if tracing {
		opts = append(opts, httpx.WithTracing())
	}
	p := preload.NewHTTPPrefetcher(preload.HTTPConfig{
		Client: httpx.NewClient(prefetchTimeout, append(opts, httpx.WithUserAgent("reelfeed-prefetch"))...),
		Cache:  c,
		Bytes:  cfg.Bytes,
		TTL:    cfg.TTL,
		Rate:   cfg.Rate,
		Burst:  cfg.Burst,
	})
	return p, p.Close
}

func buildBackend(cfg config.AppConfig) (*backend.Client, error) {
	return backend.New(backend.Config{
		BaseURL:          cfg.Backend.BaseURL,
		Timeout:          cfg.Backend.Timeout,
		PageSize:         cfg.Backend.PageSize,
		BreakerThreshold: cfg.Backend.BreakerThreshold,
		BreakerReset:     cfg.Backend.BreakerReset,
	})
}

// buildPositions opens the sqlite resume store, or keeps positions in memory
// when no store path is configured. db is nil in the memory case.
func buildPositions(ctx context.Context, path string) (session.PositionStore, *sql.DB, error) {
	if path == "" {
		return session.NewMemoryPositions(), nil, nil
	}
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	store, err := session.NewSQLitePositions(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, db, nil
}
