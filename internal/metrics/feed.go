// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveChangesTotal counts committed active-index transitions by cause.
	ActiveChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfeed_active_changes_total",
		Help: "Committed active item changes by trigger",
	}, []string{"trigger"}) // trigger=scroll|navigation

	navigationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfeed_navigations_total",
		Help: "Programmatic navigation requests by source",
	}, []string{"source"}) // source=key|jump

	mountedItems = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reelfeed_mounted_items",
		Help: "Feed items with a live media element across all sessions",
	})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reelfeed_sessions_active",
		Help: "Feed sessions currently hosted",
	})

	sessionsClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfeed_sessions_closed_total",
		Help: "Feed sessions closed by reason",
	}, []string{"reason"}) // reason=client|idle|shutdown
)

// RecordActiveChange records a committed active index change.
func RecordActiveChange(trigger string) { ActiveChangesTotal.WithLabelValues(trigger).Inc() }

// IncNavigation records a programmatic navigation request.
func IncNavigation(source string) { navigationsTotal.WithLabelValues(source).Inc() }

// AddMountedItems adjusts the mounted item gauge by delta.
func AddMountedItems(delta int) { mountedItems.Add(float64(delta)) }

func IncSessionsActive() { sessionsActive.Inc() }

// RecordSessionClosed decrements the active gauge and counts the close reason.
func RecordSessionClosed(reason string) {
	sessionsActive.Dec()
	sessionsClosedTotal.WithLabelValues(reason).Inc()
}
