// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package likes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/reelfeed/internal/identity"
	"github.com/ManuGH/reelfeed/internal/loop"
)

type reply struct {
	state State
	err   error
}

// gatedPersister answers call n only after release(n) is called.
type gatedPersister struct {
	mu      sync.Mutex
	calls   int
	viewers []string
	gates   map[int]chan reply
}

func newGated() *gatedPersister {
	return &gatedPersister{gates: make(map[int]chan reply)}
}

func (g *gatedPersister) gate(n int) chan reply {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[n]
	if !ok {
		ch = make(chan reply, 1)
		g.gates[n] = ch
	}
	return ch
}

func (g *gatedPersister) ToggleLike(ctx context.Context, itemID string, viewer identity.Identity) (State, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.viewers = append(g.viewers, viewer.ID)
	g.mu.Unlock()

	select {
	case r := <-g.gate(n):
		return r.state, r.err
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (g *gatedPersister) release(n int, st State, err error) {
	g.gate(n) <- reply{state: st, err: err}
}

func newStore(t *testing.T, p Persister, viewer identity.Provider, opts ...Option) (*Store, *loop.Manual) {
	t.Helper()
	l := loop.NewManual(time.Unix(0, 0))
	return NewStore(l, p, viewer, opts...), l
}

func TestToggle_AnonymousIsNoop(t *testing.T) {
	p := newGated()
	s, l := newStore(t, p, identity.Anonymous)
	s.Seed("v1", State{Count: 5})

	assert.False(t, s.Toggle("v1"))
	l.RunUntilIdle()

	st, _ := s.Get("v1")
	assert.Equal(t, State{Count: 5}, st)
	assert.Zero(t, p.calls)
}

func TestToggle_OptimisticBeforeDispatch(t *testing.T) {
	var seenBeforeRequest State
	p := PersisterFunc(func(ctx context.Context, itemID string, _ identity.Identity) (State, error) {
		return State{IsLiked: true, Count: 6}, nil
	})
	s, l := newStore(t, p, identity.Static("u1"))
	s.Seed("v1", State{Count: 5})
	s.Subscribe(func(_ string, st State) { seenBeforeRequest = st })

	require.True(t, s.Toggle("v1"))
	assert.Equal(t, State{IsLiked: true, Count: 6}, seenBeforeRequest)
	assert.True(t, s.InFlight("v1"))

	l.RunUntilIdle()
	st, _ := s.Get("v1")
	assert.Equal(t, State{IsLiked: true, Count: 6}, st)
	assert.False(t, s.InFlight("v1"))
}

func TestToggle_ReconcilesWithoutDrift(t *testing.T) {
	p := newGated()
	s, l := newStore(t, p, identity.Static("u1"))
	s.Seed("v1", State{IsLiked: false, Count: 5})

	s.Toggle("v1")
	s.Toggle("v1") // issued before the first response
	st, _ := s.Get("v1")
	require.Equal(t, State{IsLiked: false, Count: 5}, st)

	p.release(1, State{IsLiked: true, Count: 6}, nil)
	require.True(t, l.RunNext(time.Second))
	st, _ = s.Get("v1")
	assert.Equal(t, State{IsLiked: true, Count: 6}, st, "authoritative response applied exactly")

	p.release(2, State{IsLiked: false, Count: 5}, nil)
	l.RunUntilIdle()
	st, _ = s.Get("v1")
	assert.Equal(t, State{IsLiked: false, Count: 5}, st)
	assert.Equal(t, []string{"u1", "u1"}, p.viewers)
}

func TestToggle_LateResponseStillApplied(t *testing.T) {
	p := newGated()
	s, l := newStore(t, p, identity.Static("u1"))
	s.Seed("v1", State{Count: 5})

	s.Toggle("v1")
	s.Toggle("v1")

	p.release(2, State{IsLiked: false, Count: 5}, nil)
	require.True(t, l.RunNext(time.Second))
	p.release(1, State{IsLiked: true, Count: 6}, nil)
	l.RunUntilIdle()

	st, _ := s.Get("v1")
	assert.Equal(t, State{IsLiked: true, Count: 6}, st)
}

func TestToggle_StaleResponseGuard(t *testing.T) {
	p := newGated()
	s, l := newStore(t, p, identity.Static("u1"), WithStaleResponseGuard())
	s.Seed("v1", State{Count: 5})

	s.Toggle("v1")
	s.Toggle("v1")

	p.release(2, State{IsLiked: false, Count: 5}, nil)
	require.True(t, l.RunNext(time.Second))
	p.release(1, State{IsLiked: true, Count: 6}, nil)
	l.RunUntilIdle()

	st, _ := s.Get("v1")
	assert.Equal(t, State{IsLiked: false, Count: 5}, st)
}

func TestToggle_FailureKeepsOptimisticState(t *testing.T) {
	p := newGated()
	s, l := newStore(t, p, identity.Static("u1"))
	s.Seed("v1", State{Count: 5})

	s.Toggle("v1")
	p.release(1, State{}, errors.New("boom"))
	l.RunUntilIdle()

	st, _ := s.Get("v1")
	assert.Equal(t, State{IsLiked: true, Count: 6}, st)
}

func TestToggle_RollbackOnFailure(t *testing.T) {
	p := newGated()
	s, l := newStore(t, p, identity.Static("u1"), WithRollbackOnFailure())
	s.Seed("v1", State{Count: 5})

	s.Toggle("v1")
	p.release(1, State{}, errors.New("boom"))
	l.RunUntilIdle()

	st, _ := s.Get("v1")
	assert.Equal(t, State{Count: 5}, st)
}

func TestToggle_UnlikeClampsAtZero(t *testing.T) {
	p := newGated()
	s, l := newStore(t, p, identity.Static("u1"))
	s.Seed("v1", State{IsLiked: true, Count: 0})

	s.Toggle("v1")
	st, _ := s.Get("v1")
	assert.Equal(t, State{IsLiked: false, Count: 0}, st)

	p.release(1, State{IsLiked: false, Count: -1}, nil)
	l.RunUntilIdle()
	st, _ = s.Get("v1")
	assert.Equal(t, State{IsLiked: false, Count: 0}, st)
}

func TestToggle_TimeoutIsFailure(t *testing.T) {
	p := newGated()
	s, l := newStore(t, p, identity.Static("u1"), WithTimeout(10*time.Millisecond), WithRollbackOnFailure())
	s.Seed("v1", State{Count: 1})

	s.Toggle("v1")
	l.RunUntilIdle()

	st, _ := s.Get("v1")
	assert.Equal(t, State{Count: 1}, st)
}
