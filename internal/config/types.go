// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the complete daemon configuration. YAML keys mirror the
// environment variables without the REELFEED_ prefix.
type AppConfig struct {
	Version string `yaml:"-"`

	ListenAddr     string   `yaml:"listenAddr"`
	MetricsAddr    string   `yaml:"metricsAddr"`
	LogLevel       string   `yaml:"logLevel"`
	LogService     string   `yaml:"logService"`
	ShareOrigin    string   `yaml:"shareOrigin"`
	AllowedOrigins []string `yaml:"allowedOrigins"`

	Backend   BackendConfig   `yaml:"backend"`
	Feed      FeedConfig      `yaml:"feed"`
	Prefetch  PrefetchConfig  `yaml:"prefetch"`
	Session   SessionConfig   `yaml:"session"`
	Likes     LikesConfig     `yaml:"likes"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

// BackendConfig points at the catalogue service.
type BackendConfig struct {
	BaseURL          string        `yaml:"baseUrl"`
	Timeout          time.Duration `yaml:"timeout"`
	PageSize         int           `yaml:"pageSize"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
}

// FeedConfig holds the per-session feed knobs.
type FeedConfig struct {
	PreloadAhead        int           `yaml:"preloadAhead"`
	MountRadius         int           `yaml:"mountRadius"`
	VisibilityThreshold float64       `yaml:"visibilityThreshold"`
	SettleDelay         time.Duration `yaml:"settleDelay"`
	DoubleTapWindow     time.Duration `yaml:"doubleTapWindow"`
	PlayTimeout         time.Duration `yaml:"playTimeout"`
}

// Prefetch cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// PrefetchConfig controls media warming.
type PrefetchConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Bytes         int64         `yaml:"bytes"`
	TTL           time.Duration `yaml:"ttl"`
	Rate          float64       `yaml:"rate"`
	Burst         int           `yaml:"burst"`
	Cache         string        `yaml:"cache"`
	CacheMaxBytes int64         `yaml:"cacheMaxBytes"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDb"`
}

// SessionConfig controls session hosting.
type SessionConfig struct {
	// StorePath is the sqlite file for resume positions. Empty keeps them
	// in memory.
	StorePath   string        `yaml:"storePath"`
	IdleTTL     time.Duration `yaml:"idleTtl"`
	MaxSessions int           `yaml:"maxSessions"`
}

// LikesConfig selects the like reconciliation policy.
type LikesConfig struct {
	Rollback   bool          `yaml:"rollback"`
	StaleGuard bool          `yaml:"staleGuard"`
	Timeout    time.Duration `yaml:"timeout"`
}

// TelemetryConfig configures OTLP tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

// RateLimitConfig limits renderer input per client IP.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr:  ":8080",
		MetricsAddr: ":9090",
		LogLevel:    "info",
		LogService:  "reelfeed",
		ShareOrigin: "http://localhost:3000",
		Backend: BackendConfig{
			BaseURL:          "http://localhost:3000",
			Timeout:          10 * time.Second,
			PageSize:         10,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Feed: FeedConfig{
			PreloadAhead:        1,
			MountRadius:         2,
			VisibilityThreshold: 0.6,
			SettleDelay:         300 * time.Millisecond,
			DoubleTapWindow:     300 * time.Millisecond,
			PlayTimeout:         5 * time.Second,
		},
		Prefetch: PrefetchConfig{
			Enabled:       true,
			Bytes:         512 << 10,
			TTL:           30 * time.Second,
			Rate:          20,
			Burst:         10,
			Cache:         CacheMemory,
			CacheMaxBytes: 256 << 20,
		},
		Session: SessionConfig{
			IdleTTL:     10 * time.Minute,
			MaxSessions: 1000,
		},
		Likes: LikesConfig{
			Timeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 0.1,
			Environment:  "production",
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 600,
			Window:   time.Minute,
		},
	}
}
