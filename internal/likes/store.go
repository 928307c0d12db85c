// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package likes holds per-item like state with optimistic toggles that are
// reconciled against the like endpoint.
package likes

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/reelfeed/internal/identity"
	xglog "github.com/ManuGH/reelfeed/internal/log"
	"github.com/ManuGH/reelfeed/internal/loop"
	"github.com/ManuGH/reelfeed/internal/metrics"
)

// DefaultTimeout bounds one persistence request.
const DefaultTimeout = 10 * time.Second

// ErrNoIdentity is returned by persisters called without a viewer.
var ErrNoIdentity = errors.New("likes: viewer identity required")

// State is the like status of one item.
type State struct {
	IsLiked bool `json:"isLiked"`
	Count   int  `json:"count"`
}

// Persister flips the stored like relation and returns the authoritative
// state for the item.
type Persister interface {
	ToggleLike(ctx context.Context, itemID string, viewer identity.Identity) (State, error)
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, itemID string, viewer identity.Identity) (State, error)

func (f PersisterFunc) ToggleLike(ctx context.Context, itemID string, viewer identity.Identity) (State, error) {
	return f(ctx, itemID, viewer)
}

// Store is owned by one session loop. Reads and toggles must run on it.
type Store struct {
	loop      loop.Loop
	persister Persister
	viewer    identity.Provider
	logger    zerolog.Logger
	timeout   time.Duration

	rollback   bool
	staleGuard bool

	states   map[string]State
	versions map[string]uint64
	pending  map[string]int

	subs   map[int]func(itemID string, s State)
	nextID int
}

// Option configures a Store.
type Option func(*Store)

// WithRollbackOnFailure restores the pre-toggle state when persistence
// fails and no newer toggle of the item happened meanwhile.
func WithRollbackOnFailure() Option { return func(s *Store) { s.rollback = true } }

// WithStaleResponseGuard discards responses to toggles that have since been
// superseded by a newer toggle of the same item.
func WithStaleResponseGuard() Option { return func(s *Store) { s.staleGuard = true } }

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Store) { s.logger = l } }

func NewStore(l loop.Loop, p Persister, viewer identity.Provider, opts ...Option) *Store {
	if viewer == nil {
		viewer = identity.Anonymous
	}
	s := &Store{
		loop:      l,
		persister: p,
		viewer:    viewer,
		logger:    xglog.WithComponent("likes"),
		timeout:   DefaultTimeout,
		states:    make(map[string]State),
		versions:  make(map[string]uint64),
		pending:   make(map[string]int),
		subs:      make(map[int]func(string, State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed installs the server-provided state for an item at feed load.
func (s *Store) Seed(itemID string, st State) {
	s.set(itemID, clamp(st))
}

// Get returns the current state for itemID.
func (s *Store) Get(itemID string) (State, bool) {
	st, ok := s.states[itemID]
	return st, ok
}

// Subscribe registers fn for every state change.
func (s *Store) Subscribe(fn func(itemID string, st State)) (cancel func()) {
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

// Toggle flips the like for itemID. Without a viewer it does nothing and
// reports false. Otherwise the optimistic state is published before the
// persistence request is dispatched.
func (s *Store) Toggle(itemID string) bool {
	viewer, ok := s.viewer.Current()
	if !ok {
		metrics.RecordLikeToggle("anonymous")
		return false
	}

	prev := s.states[itemID]
	next := State{IsLiked: !prev.IsLiked, Count: prev.Count + 1}
	if prev.IsLiked {
		next.Count = prev.Count - 1
	}
	s.set(itemID, clamp(next))

	s.versions[itemID]++
	s.pending[itemID]++
	version := s.versions[itemID]
	started := s.loop.Now()
	p, timeout := s.persister, s.timeout

	s.loop.Go(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res, err := p.ToggleLike(ctx, itemID, viewer)
		return func() { s.finish(itemID, version, prev, started, res, err) }
	})
	return true
}

// InFlight reports whether any toggle of itemID awaits a response.
func (s *Store) InFlight(itemID string) bool {
	return s.pending[itemID] > 0
}

func (s *Store) finish(itemID string, version uint64, prev State, started time.Time, res State, err error) {
	metrics.ObserveLikeToggleDuration(s.loop.Now().Sub(started).Seconds())
	latest := s.versions[itemID] == version
	if s.pending[itemID]--; s.pending[itemID] <= 0 {
		delete(s.pending, itemID)
	}
	logger := s.logger.With().Str(xglog.FieldItemID, itemID).Logger()

	if err != nil {
		metrics.RecordLikeToggle("failed")
		logger.Warn().Err(err).Str(xglog.FieldEvent, "likes.persist_failed").Msg("like toggle failed")
		if s.rollback && latest {
			s.set(itemID, prev)
			metrics.RecordLikeToggle("rolled_back")
		}
		return
	}

	if s.staleGuard && !latest {
		metrics.RecordLikeToggle("stale")
		logger.Debug().Str(xglog.FieldEvent, "likes.stale_response").Msg("discarding superseded like response")
		return
	}
	metrics.RecordLikeToggle("reconciled")
	s.set(itemID, clamp(res))
}

func (s *Store) set(itemID string, st State) {
	if cur, ok := s.states[itemID]; ok && cur == st {
		return
	}
	s.states[itemID] = st
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			fn(itemID, st)
		}
	}
}

func clamp(st State) State {
	if st.Count < 0 {
		st.Count = 0
	}
	return st
}
