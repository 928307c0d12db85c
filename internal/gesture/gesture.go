// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package gesture classifies taps on feed items.
package gesture

import "time"

// DefaultWindow is the maximum gap between the taps of a double tap.
const DefaultWindow = 300 * time.Millisecond

// Action is the outcome of one tap.
type Action string

const (
	// ActionToggle toggles playback. Every tap that does not complete a
	// double tap emits it immediately.
	ActionToggle Action = "toggle"
	// ActionLike is emitted for the second tap of a double tap.
	ActionLike Action = "like"
)

// Disambiguator tracks the last tap per target. It is not goroutine-safe.
type Disambiguator struct {
	window time.Duration
	last   map[string]time.Time
}

func New(window time.Duration) *Disambiguator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Disambiguator{window: window, last: make(map[string]time.Time)}
}

// Window returns the double-tap window.
func (d *Disambiguator) Window() time.Duration { return d.window }

// Tap classifies a tap on target at the given instant. A tap arriving
// strictly within the window of the previous unpaired tap on the same target
// completes a double tap: it yields ActionLike and consumes the pair, so a
// third tap starts over.
func (d *Disambiguator) Tap(target string, at time.Time) Action {
	for t, ts := range d.last {
		if t != target && at.Sub(ts) >= d.window {
			delete(d.last, t)
		}
	}

	prev, ok := d.last[target]
	if ok && at.Sub(prev) >= 0 && at.Sub(prev) < d.window {
		delete(d.last, target)
		return ActionLike
	}
	d.last[target] = at
	return ActionToggle
}

// Forget drops tap history for target, e.g. when it unmounts.
func (d *Disambiguator) Forget(target string) { delete(d.last, target) }
