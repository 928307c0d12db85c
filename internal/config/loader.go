// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader resolves configuration with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
	// ConsumedEnvKeys records every variable the last Load looked at.
	ConsumedEnvKeys map[string]struct{}
}

func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version, ConsumedEnvKeys: make(map[string]struct{})}
}

// Load parses the file strictly, applies the environment and validates.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes path over cfg. Unknown keys and trailing documents are
// errors.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) env(name string) string {
	key := EnvPrefix + name
	l.ConsumedEnvKeys[key] = struct{}{}
	return key
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.ListenAddr = ParseString(l.env("LISTEN_ADDR"), cfg.ListenAddr)
	cfg.MetricsAddr = ParseString(l.env("METRICS_ADDR"), cfg.MetricsAddr)
	cfg.LogLevel = ParseString(l.env("LOG_LEVEL"), cfg.LogLevel)
	cfg.LogService = ParseString(l.env("LOG_SERVICE"), cfg.LogService)
	cfg.ShareOrigin = ParseString(l.env("SHARE_ORIGIN"), cfg.ShareOrigin)
	cfg.AllowedOrigins = ParseList(l.env("ALLOWED_ORIGINS"), cfg.AllowedOrigins)

	b := &cfg.Backend
	b.BaseURL = ParseString(l.env("BACKEND_URL"), b.BaseURL)
	b.Timeout = ParseDuration(l.env("BACKEND_TIMEOUT"), b.Timeout)
	b.PageSize = ParseInt(l.env("BACKEND_PAGE_SIZE"), b.PageSize)
	b.BreakerThreshold = ParseInt(l.env("BACKEND_BREAKER_THRESHOLD"), b.BreakerThreshold)
	b.BreakerReset = ParseDuration(l.env("BACKEND_BREAKER_RESET"), b.BreakerReset)

	f := &cfg.Feed
	f.PreloadAhead = ParseInt(l.env("FEED_PRELOAD_AHEAD"), f.PreloadAhead)
	f.MountRadius = ParseInt(l.env("FEED_MOUNT_RADIUS"), f.MountRadius)
	f.VisibilityThreshold = ParseFloat(l.env("FEED_VISIBILITY_THRESHOLD"), f.VisibilityThreshold)
	f.SettleDelay = ParseDuration(l.env("FEED_SETTLE_DELAY"), f.SettleDelay)
	f.DoubleTapWindow = ParseDuration(l.env("FEED_DOUBLE_TAP_WINDOW"), f.DoubleTapWindow)
	f.PlayTimeout = ParseDuration(l.env("FEED_PLAY_TIMEOUT"), f.PlayTimeout)

	p := &cfg.Prefetch
	p.Enabled = ParseBool(l.env("PREFETCH_ENABLED"), p.Enabled)
	p.Bytes = ParseInt64(l.env("PREFETCH_BYTES"), p.Bytes)
	p.TTL = ParseDuration(l.env("PREFETCH_TTL"), p.TTL)
	p.Rate = ParseFloat(l.env("PREFETCH_RATE"), p.Rate)
	p.Burst = ParseInt(l.env("PREFETCH_BURST"), p.Burst)
	p.Cache = ParseString(l.env("PREFETCH_CACHE"), p.Cache)
	p.CacheMaxBytes = ParseInt64(l.env("PREFETCH_CACHE_MAX_BYTES"), p.CacheMaxBytes)
	p.RedisAddr = ParseString(l.env("REDIS_ADDR"), p.RedisAddr)
	p.RedisPassword = ParseString(l.env("REDIS_PASSWORD"), p.RedisPassword)
	p.RedisDB = ParseInt(l.env("REDIS_DB"), p.RedisDB)

	s := &cfg.Session
	s.StorePath = ParseString(l.env("SESSION_STORE_PATH"), s.StorePath)
	s.IdleTTL = ParseDuration(l.env("SESSION_IDLE_TTL"), s.IdleTTL)
	s.MaxSessions = ParseInt(l.env("SESSION_MAX"), s.MaxSessions)

	lk := &cfg.Likes
	lk.Rollback = ParseBool(l.env("LIKES_ROLLBACK"), lk.Rollback)
	lk.StaleGuard = ParseBool(l.env("LIKES_STALE_GUARD"), lk.StaleGuard)
	lk.Timeout = ParseDuration(l.env("LIKES_TIMEOUT"), lk.Timeout)

	t := &cfg.Telemetry
	t.Enabled = ParseBool(l.env("TELEMETRY_ENABLED"), t.Enabled)
	t.Exporter = ParseString(l.env("TELEMETRY_EXPORTER"), t.Exporter)
	t.Endpoint = ParseString(l.env("TELEMETRY_ENDPOINT"), t.Endpoint)
	t.SamplingRate = ParseFloat(l.env("TELEMETRY_SAMPLING_RATE"), t.SamplingRate)
	t.Environment = ParseString(l.env("TELEMETRY_ENVIRONMENT"), t.Environment)

	r := &cfg.RateLimit
	r.Enabled = ParseBool(l.env("RATE_LIMIT_ENABLED"), r.Enabled)
	r.Requests = ParseInt(l.env("RATE_LIMIT_REQUESTS"), r.Requests)
	r.Window = ParseDuration(l.env("RATE_LIMIT_WINDOW"), r.Window)
}
