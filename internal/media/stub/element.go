// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package stub provides an in-memory media runtime for tests and local
// prototyping. It never touches the network.
package stub

import (
	"context"
	"sync"

	"github.com/ManuGH/reelfeed/internal/media"
)

// Policy models the runtime's autoplay policy.
type Policy int

const (
	// PolicyAllow accepts every play request.
	PolicyAllow Policy = iota
	// PolicyMutedOnly rejects play requests while unmuted.
	PolicyMutedOnly
	// PolicyDeny rejects every play request.
	PolicyDeny
)

// Element is a scriptable media.Element.
type Element struct {
	mu        sync.Mutex
	src       media.Source
	policy    Policy
	paused    bool
	muted     bool
	duration  float64
	current   float64
	closed    bool
	playCalls int
	listeners map[int]func(media.Event)
	nextID    int
}

// New returns a paused, unmuted element for src.
func New(src media.Source, policy Policy) *Element {
	return &Element{
		src:       src,
		policy:    policy,
		paused:    true,
		listeners: make(map[int]func(media.Event)),
	}
}

func (e *Element) Source() media.Source { return e.src }

func (e *Element) Play(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playCalls++
	if e.closed {
		return media.ErrClosed
	}
	switch {
	case e.policy == PolicyDeny:
		return media.ErrPlaybackRejected
	case e.policy == PolicyMutedOnly && !e.muted:
		return media.ErrPlaybackRejected
	}
	e.paused = false
	return nil
}

// PlayCalls reports how many times Play was invoked.
func (e *Element) PlayCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playCalls
}

// SetPolicy changes the autoplay policy, e.g. after a user gesture.
func (e *Element) SetPolicy(p Policy) {
	e.mu.Lock()
	e.policy = p
	e.mu.Unlock()
}

func (e *Element) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *Element) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

func (e *Element) SetMuted(muted bool) {
	e.mu.Lock()
	e.muted = muted
	e.mu.Unlock()
}

func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *Element) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Element) SetCurrentTime(seconds float64) {
	e.mu.Lock()
	e.current = seconds
	e.mu.Unlock()
}

func (e *Element) Listen(fn func(media.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// Listeners reports the number of registered listeners.
func (e *Element) Listeners() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

func (e *Element) Close() error {
	e.mu.Lock()
	e.closed = true
	e.paused = true
	e.mu.Unlock()
	return nil
}

func (e *Element) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Emit delivers ev to every listener on the calling goroutine, updating the
// element's duration and position from the event first.
func (e *Element) Emit(ev media.Event) {
	e.mu.Lock()
	if ev.Duration > 0 {
		e.duration = ev.Duration
	}
	if ev.Type == media.EventTimeUpdate {
		e.current = ev.CurrentTime
	}
	if ev.Type == media.EventPlaying {
		e.paused = false
	}
	fns := make([]func(media.Event), 0, len(e.listeners))
	for i := 0; i < e.nextID; i++ {
		if fn, ok := e.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

var _ media.Element = (*Element)(nil)
