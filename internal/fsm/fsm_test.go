// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state string
type event string

const (
	sOff    state = "off"
	sOn     state = "on"
	sBroken state = "broken"

	eToggle event = "toggle"
	eBreak  event = "break"
	ePoke   event = "poke"
)

func table() []Transition[state, event] {
	return []Transition[state, event]{
		{From: sOff, Event: eToggle, To: sOn},
		{From: sOn, Event: eToggle, To: sOff},
		{Event: eBreak, To: sBroken},
		{Event: ePoke},
	}
}

func TestFireFollowsExplicitEdges(t *testing.T) {
	m := MustNew(sOff, table())

	to, err := m.Fire(eToggle)
	require.NoError(t, err)
	assert.Equal(t, sOn, to)
	assert.True(t, m.Is(sOn))
}

func TestWildcardAndStayTransitions(t *testing.T) {
	var changes []string
	m := MustNew(sOn, table(), OnTransition(func(from, to state, ev event) {
		changes = append(changes, string(from)+">"+string(to))
	}))

	to, err := m.Fire(ePoke)
	require.NoError(t, err)
	assert.Equal(t, sOn, to)
	assert.Empty(t, changes, "stay transitions do not notify")

	_, err = m.Fire(eBreak)
	require.NoError(t, err)
	assert.Equal(t, []string{"on>broken"}, changes)
}

func TestTerminalStateRejectsEvents(t *testing.T) {
	m := MustNew(sOff, table(), WithTerminal[state, event](sBroken))
	_, err := m.Fire(eBreak)
	require.NoError(t, err)

	_, err = m.Fire(eToggle)
	assert.ErrorIs(t, err, ErrTerminal)
	assert.Equal(t, sBroken, m.State())
}

func TestUnknownTransitionIsError(t *testing.T) {
	m := MustNew(sOff, []Transition[state, event]{{From: sOff, Event: eToggle, To: sOn}})
	_, err := m.Fire(ePoke)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestDuplicateTransitionsRejected(t *testing.T) {
	_, err := New(sOff, []Transition[state, event]{
		{From: sOff, Event: eToggle, To: sOn},
		{From: sOff, Event: eToggle, To: sBroken},
	})
	assert.Error(t, err)

	_, err = New(sOff, []Transition[state, event]{{Event: ePoke}, {Event: ePoke}})
	assert.Error(t, err)
}
