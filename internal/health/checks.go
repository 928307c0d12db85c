// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ManuGH/reelfeed/internal/persistence/sqlite"
	"github.com/ManuGH/reelfeed/internal/resilience"
)

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

func NewCheckerFunc(name string, fn func(ctx context.Context) CheckResult) CheckerFunc {
	return CheckerFunc{name: name, fn: fn}
}

func (c CheckerFunc) Name() string                          { return c.name }
func (c CheckerFunc) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// BreakerSource exposes a circuit breaker state.
type BreakerSource interface {
	BreakerState() resilience.State
}

// BreakerChecker maps the catalogue breaker to a status. An open circuit
// only blocks new sessions, so it is degraded rather than unhealthy.
func BreakerChecker(name string, src BreakerSource) Checker {
	return NewCheckerFunc(name, func(context.Context) CheckResult {
		switch st := src.BreakerState(); st {
		case resilience.StateClosed:
			return CheckResult{Status: StatusHealthy, Message: "circuit closed"}
		default:
			return CheckResult{Status: StatusDegraded, Message: "circuit " + string(st)}
		}
	})
}

// Pinger is anything with a connectivity check.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// PingChecker is unhealthy while p fails its check.
func PingChecker(name string, p Pinger) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) CheckResult {
		if err := p.HealthCheck(ctx); err != nil {
			return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
		}
		return CheckResult{Status: StatusHealthy}
	})
}

// SQLiteChecker runs a quick integrity check on the state database.
func SQLiteChecker(name string, db *sql.DB) Checker {
	return NewCheckerFunc(name, func(ctx context.Context) CheckResult {
		issues, err := sqlite.VerifyIntegrity(ctx, db, "quick")
		if err != nil {
			return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
		}
		if len(issues) > 0 {
			return CheckResult{Status: StatusUnhealthy, Error: "integrity check failed", Message: strings.Join(issues, "; ")}
		}
		return CheckResult{Status: StatusHealthy}
	})
}

// CapacityChecker degrades at 90% of limit and fails at the limit. A
// non-positive limit is unlimited.
func CapacityChecker(name string, limit int, current func() int) Checker {
	return NewCheckerFunc(name, func(context.Context) CheckResult {
		n := current()
		msg := fmt.Sprintf("%d active", n)
		switch {
		case limit <= 0:
			return CheckResult{Status: StatusHealthy, Message: msg}
		case n >= limit:
			return CheckResult{Status: StatusUnhealthy, Message: fmt.Sprintf("%d/%d active", n, limit)}
		case n*10 >= limit*9:
			return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("%d/%d active", n, limit)}
		}
		return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d/%d active", n, limit)}
	})
}
