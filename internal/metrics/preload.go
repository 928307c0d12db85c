// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	preloadHintsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reelfeed_preload_hints_live",
		Help: "Outstanding prefetch hints across all sessions",
	})

	// PreloadHintsTotal counts hint lifecycle operations.
	PreloadHintsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfeed_preload_hints_total",
		Help: "Prefetch hints created and retired",
	}, []string{"op"}) // op=create|retire

	// PrefetchFetchesTotal counts server-side warm-up fetches by outcome.
	PrefetchFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfeed_prefetch_fetches_total",
		Help: "Server-side prefetch fetches by outcome",
	}, []string{"outcome"}) // outcome=success|error|canceled|cached

	prefetchBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelfeed_prefetch_bytes_total",
		Help: "Bytes read by server-side prefetch fetches",
	})
)

// RecordHintCreated records a new outstanding prefetch hint.
func RecordHintCreated() {
	preloadHintsLive.Inc()
	PreloadHintsTotal.WithLabelValues("create").Inc()
}

// RecordHintRetired records the removal of a prefetch hint.
func RecordHintRetired() {
	preloadHintsLive.Dec()
	PreloadHintsTotal.WithLabelValues("retire").Inc()
}

// RecordPrefetch records the outcome of a server-side prefetch fetch.
func RecordPrefetch(outcome string, n int64) {
	PrefetchFetchesTotal.WithLabelValues(outcome).Inc()
	if n > 0 {
		prefetchBytes.Add(float64(n))
	}
}
