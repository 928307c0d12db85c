// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// breakerStates are the values resilience.State takes.
var breakerStates = [...]string{"closed", "half-open", "open"}

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reelfeed_breaker_state",
		Help: "Upstream circuit breaker state; the series for the current state (closed, half-open or open) is 1",
	}, []string{"breaker", "state"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfeed_breaker_trips_total",
		Help: "Upstream circuit breaker openings by reason (threshold_exceeded, half_open_failure)",
	}, []string{"breaker", "reason"})

	// BreakerRejectedTotal counts calls refused without reaching the upstream.
	BreakerRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfeed_breaker_rejected_total",
		Help: "Upstream calls short-circuited while the breaker was open or trialing",
	}, []string{"breaker"})
)

// SetBreakerState marks state as the current state of breaker.
func SetBreakerState(breaker, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		breakerState.WithLabelValues(breaker, s).Set(v)
	}
}

// RecordBreakerTrip counts a transition to open.
func RecordBreakerTrip(breaker, reason string) { breakerTrips.WithLabelValues(breaker, reason).Inc() }

// IncBreakerRejected counts a short-circuited call.
func IncBreakerRejected(breaker string) { BreakerRejectedTotal.WithLabelValues(breaker).Inc() }
