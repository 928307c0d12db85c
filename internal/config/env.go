// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/reelfeed/internal/log"
)

// EnvPrefix namespaces every environment variable the daemon reads.
const EnvPrefix = "REELFEED_"

func envLogger() zerolog.Logger { return log.WithComponent("config") }

func sensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "token") || strings.Contains(k, "password")
}

// lookup returns the value of key, treating an empty variable as unset.
func lookup(logger zerolog.Logger, key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	if v == "" {
		logger.Debug().Str("key", key).Str("source", "default").Msg("using default value (environment variable is empty)")
		return "", false
	}
	return v, true
}

// parse reads key through conv and falls back to def when the variable is
// unset or malformed. The chosen source is logged.
func parse[T any](key string, def T, conv func(string) (T, error)) T {
	logger := envLogger()
	raw, ok := lookup(logger, key)
	if !ok {
		return def
	}
	v, err := conv(raw)
	if err != nil {
		ev := logger.Warn().Str("key", key).Interface("default", def)
		if !sensitive(key) {
			ev = ev.Str("value", raw)
		}
		ev.Msg("invalid environment variable, using default")
		return def
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if sensitive(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Interface("value", v)
	}
	ev.Msg("using environment variable")
	return v
}

// ParseString reads a string from the environment or returns def.
func ParseString(key, def string) string {
	return parse(key, def, func(s string) (string, error) { return s, nil })
}

// ParseInt reads an integer from the environment or returns def.
func ParseInt(key string, def int) int {
	return parse(key, def, strconv.Atoi)
}

// ParseInt64 reads a 64-bit integer from the environment or returns def.
func ParseInt64(key string, def int64) int64 {
	return parse(key, def, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

// ParseFloat reads a float from the environment or returns def.
func ParseFloat(key string, def float64) float64 {
	return parse(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// ParseDuration reads a Go duration ("5s") from the environment or returns def.
func ParseDuration(key string, def time.Duration) time.Duration {
	return parse(key, def, time.ParseDuration)
}

// ParseBool accepts true/false, 1/0 and yes/no in any case.
func ParseBool(key string, def bool) bool {
	return parse(key, def, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, strconv.ErrSyntax
	})
}

// ParseList reads a comma separated list, trimming blanks.
func ParseList(key string, def []string) []string {
	return parse(key, def, func(s string) ([]string, error) {
		var out []string
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	})
}
