// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/reelfeed/internal/feed"
	"github.com/ManuGH/reelfeed/internal/identity"
	"github.com/ManuGH/reelfeed/internal/loop"
	"github.com/ManuGH/reelfeed/internal/media"
	"github.com/ManuGH/reelfeed/internal/media/remote"
)

// Session hosts one viewer's feed on its own loop. Its methods are safe for
// concurrent use; they hop onto the loop to touch the feed.
type Session struct {
	ID      string
	Viewer  identity.Identity
	Created time.Time

	runner   *loop.Runner
	feed     *feed.Controller
	media    *remote.Factory
	out      renderer
	now      func() time.Time
	lastSeen atomic.Int64
	logger   zerolog.Logger

	closeOnce sync.Once
	closed    atomic.Bool
	stop      context.CancelFunc
}

// Topic returns the bus topic of this session.
func (s *Session) Topic() string { return s.out.topic }

// LastSeen reports the last time a caller interacted with the session.
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

// Touch marks the session as in use without touching the feed. Open event
// streams call it to keep the session from being swept.
func (s *Session) Touch() { s.touch() }

func (s *Session) touch() { s.lastSeen.Store(s.now().UnixNano()) }

// Do runs fn against the feed on the session loop and waits for it.
func (s *Session) Do(ctx context.Context, fn func(*feed.Controller)) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.touch()
	if err := s.runner.Call(ctx, func() { fn(s.feed) }); err != nil {
		if errors.Is(err, loop.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// Snapshot returns the current feed state.
func (s *Session) Snapshot(ctx context.Context) (feed.Snapshot, error) {
	var snap feed.Snapshot
	err := s.Do(ctx, func(c *feed.Controller) { snap = c.Snapshot() })
	return snap, err
}

// Dispatch delivers a renderer media event for itemID. It reports false when
// the item has no mounted element.
func (s *Session) Dispatch(ctx context.Context, itemID string, ev media.Event) (bool, error) {
	var found bool
	err := s.Do(ctx, func(*feed.Controller) { found = s.media.Dispatch(itemID, ev) })
	return found, err
}

// ResolvePlay completes an awaited play command.
func (s *Session) ResolvePlay(commandID string, ok bool, reason string) bool {
	s.touch()
	return s.media.ResolvePlay(commandID, ok, reason)
}

// shutdown closes the feed and stops the loop. It returns the last position,
// or false when there is nothing worth resuming.
func (s *Session) shutdown(ctx context.Context) (Position, bool) {
	var (
		pos Position
		ok  bool
	)
	s.closeOnce.Do(func() {
		_ = s.runner.Call(ctx, func() {
			if it, found := s.feed.Item(s.feed.Active()); found {
				pos, ok = Position{ItemID: it.ID, Index: s.feed.Active(), UpdatedAt: s.now().UTC()}, true
			}
			s.feed.Close()
		})
		s.closed.Store(true)
		s.runner.Close()
		s.stop()
	})
	return pos, ok
}
