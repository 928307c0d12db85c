// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BusDroppedTotal counts outbound session messages that could not be
	// delivered to a renderer.
	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfeed_bus_dropped_total",
		Help: "Outbound session messages dropped by topic and reason",
	}, []string{"topic", "reason"}) // reason=full|timeout|canceled|context_done
)

// IncBusDropReason records a dropped bus message with a concrete reason.
func IncBusDropReason(topic, reason string) {
	if topic == "" {
		topic = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(topic, reason).Inc()
}
