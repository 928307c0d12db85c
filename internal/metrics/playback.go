// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlayAttemptsTotal counts play() outcomes, including the forced-mute fallback.
	PlayAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfeed_play_attempts_total",
		Help: "Playback start attempts by outcome",
	}, []string{"outcome"}) // outcome=started|muted_retry|blocked|superseded

	playbackErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reelfeed_playback_errors_total",
		Help: "Unrecoverable media errors reported by players",
	})

	playbackStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelfeed_playback_transitions_total",
		Help: "Playback state machine transitions",
	}, []string{"from", "to"})
)

// RecordPlayAttempt records a play() outcome.
func RecordPlayAttempt(outcome string) { PlayAttemptsTotal.WithLabelValues(outcome).Inc() }

func IncPlaybackError() { playbackErrorsTotal.Inc() }

// RecordPlaybackTransition records a playback FSM edge.
func RecordPlaybackTransition(from, to string) {
	playbackStateTransitions.WithLabelValues(from, to).Inc()
}
