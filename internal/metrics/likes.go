// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LikeTogglesTotal counts like toggles by outcome.
	LikeTogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfeed_like_toggles_total",
		Help: "Like toggles by outcome",
	}, []string{"outcome"}) // outcome=anonymous|reconciled|failed|rolled_back|stale

	likeToggleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reelfeed_like_toggle_duration_seconds",
		Help:    "Round trip time of like persistence requests",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordLikeToggle records a like toggle outcome.
func RecordLikeToggle(outcome string) { LikeTogglesTotal.WithLabelValues(outcome).Inc() }

// ObserveLikeToggleDuration records the persistence round trip in seconds.
func ObserveLikeToggleDuration(seconds float64) { likeToggleDuration.Observe(seconds) }
