// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

// Validate reports every problem in cfg at once.
func Validate(cfg AppConfig) error {
	var problems []string
	addf := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if cfg.ListenAddr == "" {
		addf("listenAddr is required")
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		addf("logLevel %q is not a level", cfg.LogLevel)
	}
	if !absoluteHTTP(cfg.Backend.BaseURL) {
		addf("backend.baseUrl %q must be an absolute http(s) URL", cfg.Backend.BaseURL)
	}
	if !absoluteHTTP(cfg.ShareOrigin) {
		addf("shareOrigin %q must be an absolute http(s) URL", cfg.ShareOrigin)
	}
	if cfg.Backend.Timeout <= 0 {
		addf("backend.timeout must be positive")
	}
	if cfg.Backend.PageSize < 1 || cfg.Backend.PageSize > 100 {
		addf("backend.pageSize must be within 1..100")
	}

	f := cfg.Feed
	if f.PreloadAhead < 0 {
		addf("feed.preloadAhead must not be negative")
	}
	if f.MountRadius < 1 {
		addf("feed.mountRadius must be at least 1")
	}
	if f.VisibilityThreshold <= 0 || f.VisibilityThreshold > 1 {
		addf("feed.visibilityThreshold must be within (0, 1]")
	}
	if f.SettleDelay <= 0 || f.DoubleTapWindow <= 0 || f.PlayTimeout <= 0 {
		addf("feed delays must be positive")
	}

	p := cfg.Prefetch
	switch p.Cache {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if p.RedisAddr == "" {
			addf("prefetch.redisAddr is required for the redis cache")
		}
	default:
		addf("prefetch.cache %q must be one of none, memory, redis", p.Cache)
	}
	if p.Enabled && p.Bytes <= 0 {
		addf("prefetch.bytes must be positive")
	}

	if cfg.Session.IdleTTL <= 0 {
		addf("session.idleTtl must be positive")
	}
	if cfg.Session.MaxSessions < 0 {
		addf("session.maxSessions must not be negative")
	}

	if t := cfg.Telemetry; t.Enabled {
		if t.Exporter != "grpc" && t.Exporter != "http" {
			addf("telemetry.exporter %q must be grpc or http", t.Exporter)
		}
		if t.SamplingRate < 0 || t.SamplingRate > 1 {
			addf("telemetry.samplingRate must be within [0, 1]")
		}
	}
	if r := cfg.RateLimit; r.Enabled && (r.Requests <= 0 || r.Window <= 0) {
		addf("rateLimit requests and window must be positive")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func absoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
