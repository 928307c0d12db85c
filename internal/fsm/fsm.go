// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when no edge matches the current state and event.
	ErrInvalidTransition = errors.New("fsm: invalid transition")
	// ErrTerminal is returned for any event fired while in a terminal state.
	ErrTerminal = errors.New("fsm: terminal state")
)

// Transition describes a single edge in the FSM.
// An empty From matches every non-terminal state without an explicit edge for
// the event. An empty To keeps the current state.
type Transition[S ~string, E ~string] struct {
	From S
	Event E
	To   S
}

// Machine is a small, test-friendly FSM runner.
// It is strict: unknown transitions are errors. It is not goroutine-safe;
// owners serialise access (feed components run on a single loop).
type Machine[S ~string, E ~string] struct {
	state    S
	index    map[string]Transition[S, E]
	wildcard map[E]Transition[S, E]
	terminal map[S]struct{}
	onChange func(from, to S, event E)
}

// Option configures a Machine.
type Option[S ~string, E ~string] func(*Machine[S, E])

// WithTerminal marks states that reject every further event.
func WithTerminal[S ~string, E ~string](states ...S) Option[S, E] {
	return func(m *Machine[S, E]) {
		for _, s := range states {
			m.terminal[s] = struct{}{}
		}
	}
}

// OnTransition registers a hook invoked after every state change (not for
// transitions that keep the current state).
func OnTransition[S ~string, E ~string](fn func(from, to S, event E)) Option[S, E] {
	return func(m *Machine[S, E]) { m.onChange = fn }
}

func New[S ~string, E ~string](initial S, transitions []Transition[S, E], opts ...Option[S, E]) (*Machine[S, E], error) {
	m := &Machine[S, E]{
		state:    initial,
		index:    make(map[string]Transition[S, E], len(transitions)),
		wildcard: make(map[E]Transition[S, E]),
		terminal: make(map[S]struct{}),
	}
	for _, t := range transitions {
		if t.From == "" {
			if _, exists := m.wildcard[t.Event]; exists {
				return nil, fmt.Errorf("duplicate wildcard transition: * -> %s", t.Event)
			}
			m.wildcard[t.Event] = t
			continue
		}
		k := key(t.From, t.Event)
		if _, exists := m.index[k]; exists {
			return nil, fmt.Errorf("duplicate transition: %s -> %s", t.From, t.Event)
		}
		m.index[k] = t
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// MustNew is New for static tables; it panics on a malformed table.
func MustNew[S ~string, E ~string](initial S, transitions []Transition[S, E], opts ...Option[S, E]) *Machine[S, E] {
	m, err := New(initial, transitions, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Machine[S, E]) State() S {
	return m.state
}

// Is reports whether the machine is currently in state s.
func (m *Machine[S, E]) Is(s S) bool { return m.state == s }

// Fire applies event and returns the resulting state.
func (m *Machine[S, E]) Fire(event E) (S, error) {
	from := m.state
	if _, done := m.terminal[from]; done {
		return from, fmt.Errorf("%w: state=%s event=%s", ErrTerminal, from, event)
	}
	t, ok := m.index[key(from, event)]
	if !ok {
		t, ok = m.wildcard[event]
	}
	if !ok {
		return from, fmt.Errorf("%w: state=%s event=%s", ErrInvalidTransition, from, event)
	}

	to := t.To
	if to == "" || to == from {
		return from, nil
	}
	m.state = to
	if m.onChange != nil {
		m.onChange(from, to, event)
	}
	return to, nil
}

func key[S ~string, E ~string](from S, event E) string {
	return string(from) + "|" + string(event)
}
