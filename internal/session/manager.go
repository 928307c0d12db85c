// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session hosts feed sessions: one loop, one feed controller and one
// remote renderer per viewer tab.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/reelfeed/internal/bus"
	"github.com/ManuGH/reelfeed/internal/feed"
	"github.com/ManuGH/reelfeed/internal/identity"
	"github.com/ManuGH/reelfeed/internal/likes"
	xglog "github.com/ManuGH/reelfeed/internal/log"
	"github.com/ManuGH/reelfeed/internal/loop"
	"github.com/ManuGH/reelfeed/internal/media/remote"
	"github.com/ManuGH/reelfeed/internal/metrics"
	"github.com/ManuGH/reelfeed/internal/preload"
)

var (
	ErrNotFound = errors.New("session: not found")
	ErrClosed   = errors.New("session: closed")
	ErrCapacity = errors.New("session: capacity reached")
)

// Close reasons.
const (
	ReasonClient   = "client"
	ReasonIdle     = "idle"
	ReasonShutdown = "shutdown"
)

const (
	DefaultIdleTTL       = 10 * time.Minute
	defaultSweepInterval = 30 * time.Second
	closeTimeout         = 5 * time.Second
)

// Config tunes every session a Manager creates.
type Config struct {
	// Feed is the template; viewport size and initial index are per session.
	Feed           feed.Config
	PreloadAhead   int
	LikeTimeout    time.Duration
	LikeRollback   bool
	LikeStaleGuard bool
	PlayTimeout    time.Duration
	IdleTTL        time.Duration
	SweepInterval  time.Duration
	// MaxSessions caps concurrently hosted sessions. Zero means unlimited.
	MaxSessions int
}

// Deps are the shared collaborators.
type Deps struct {
	Source     feed.Source
	Likes      likes.Persister
	Prefetcher preload.Prefetcher
	Positions  PositionStore
	Bus        bus.Bus
	Now        func() time.Time
	Logger     *zerolog.Logger
}

// Viewport is the renderer's scroll container size.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Manager is the registry of live sessions.
type Manager struct {
	cfgMu  sync.RWMutex
	cfg    Config
	deps   Deps
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	// reserved counts creates that passed the capacity check but are not
	// registered yet.
	reserved int
}

func NewManager(cfg Config, deps Deps) (*Manager, error) {
	if deps.Source == nil || deps.Bus == nil {
		return nil, fmt.Errorf("session: source and bus are required")
	}
	if deps.Likes == nil {
		deps.Likes = likes.PersisterFunc(func(context.Context, string, identity.Identity) (likes.State, error) {
			return likes.State{}, likes.ErrNoIdentity
		})
	}
	if deps.Prefetcher == nil {
		deps.Prefetcher = preload.Nop
	}
	if deps.Positions == nil {
		deps.Positions = NewMemoryPositions()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	cfg.defaults()
	logger := xglog.WithComponent("session")
	if deps.Logger != nil {
		logger = *deps.Logger
	}
	return &Manager{cfg: cfg, deps: deps, logger: logger, sessions: make(map[string]*Session)}, nil
}

func (c *Config) defaults() {
	if c.IdleTTL <= 0 {
		c.IdleTTL = DefaultIdleTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaultSweepInterval
	}
}

func (m *Manager) config() Config {
	m.cfgMu.RLock()
	defer m.cfgMu.RUnlock()
	return m.cfg
}

// UpdateConfig replaces the configuration used for sessions created from now
// on. Live sessions keep the settings they were created with, and a running
// Run loop keeps its sweep interval.
func (m *Manager) UpdateConfig(cfg Config) {
	cfg.defaults()
	m.cfgMu.Lock()
	m.cfg = cfg
	m.cfgMu.Unlock()
	m.logger.Info().Str(xglog.FieldEvent, "session.config_updated").Msg("session configuration updated")
}

// Create loads the viewer's items, resumes their last position and starts a
// session loop.
func (m *Manager) Create(ctx context.Context, viewer identity.Identity, vp Viewport) (*Session, error) {
	cfg := m.config()
	if err := m.reserve(cfg.MaxSessions); err != nil {
		return nil, err
	}
	registered := false
	defer func() {
		if !registered {
			m.unreserve()
		}
	}()

	items, err := m.deps.Source.Items(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("session: load items: %w", err)
	}

	id := uuid.NewString()
	logger := m.logger.With().Str(xglog.FieldSessionID, id).Str(xglog.FieldViewerID, viewer.ID).Logger()

	fc := cfg.Feed
	fc.ViewportWidth, fc.ViewportHeight = vp.Width, vp.Height
	fc.InitialIndex = m.resumeIndex(ctx, viewer, items, logger)

	runCtx, stop := context.WithCancel(context.Background())
	runner := loop.NewRunner()
	go runner.Run(runCtx)

	out := renderer{bus: m.deps.Bus, topic: Topic(id)}
	s := &Session{
		ID:      id,
		Viewer:  viewer,
		Created: m.deps.Now(),
		runner:  runner,
		media:   remote.NewFactory(out.command, remote.WithPlayTimeout(cfg.PlayTimeout)),
		out:     out,
		now:     m.deps.Now,
		logger:  logger,
		stop:    stop,
	}
	s.touch()

	var buildErr error
	callErr := runner.Call(ctx, func() {
		s.feed, buildErr = feed.New(fc, items, feed.Deps{
			Loop:     runner,
			Media:    s.media,
			Preload:  preload.NewManager(m.deps.Prefetcher, preloadOptions(cfg, logger)...),
			Likes:    likes.NewStore(runner, m.deps.Likes, identity.Static(viewer.ID), likeOptions(cfg, logger)...),
			Scroller: out,
			Haptics:  out,
			Sharer:   out,
			Logger:   &logger,
		})
		if buildErr == nil {
			s.feed.Subscribe(out.snapshot)
		}
	})
	if err := errors.Join(callErr, buildErr); err != nil {
		runner.Close()
		stop()
		return nil, fmt.Errorf("session: build feed: %w", err)
	}

	m.mu.Lock()
	m.reserved--
	m.sessions[id] = s
	m.mu.Unlock()
	registered = true
	metrics.IncSessionsActive()

	logger.Info().
		Str(xglog.FieldEvent, "session.created").
		Int(xglog.FieldItemCount, len(items)).
		Int(xglog.FieldIndex, fc.InitialIndex).
		Msg("feed session created")
	return s, nil
}

// reserve claims a session slot ahead of the item load so concurrent creates
// cannot overshoot limit.
func (m *Manager) reserve(limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > 0 && len(m.sessions)+m.reserved >= limit {
		return ErrCapacity
	}
	m.reserved++
	return nil
}

func (m *Manager) unreserve() {
	m.mu.Lock()
	m.reserved--
	m.mu.Unlock()
}

func preloadOptions(cfg Config, logger zerolog.Logger) []preload.Option {
	opts := []preload.Option{preload.WithLogger(logger)}
	if cfg.PreloadAhead > 0 {
		opts = append(opts, preload.WithAhead(cfg.PreloadAhead))
	}
	return opts
}

func likeOptions(cfg Config, logger zerolog.Logger) []likes.Option {
	opts := []likes.Option{likes.WithLogger(logger), likes.WithTimeout(cfg.LikeTimeout)}
	if cfg.LikeRollback {
		opts = append(opts, likes.WithRollbackOnFailure())
	}
	if cfg.LikeStaleGuard {
		opts = append(opts, likes.WithStaleResponseGuard())
	}
	return opts
}

// resumeIndex prefers the saved item wherever it now sits in the list and
// falls back to the saved index.
func (m *Manager) resumeIndex(ctx context.Context, viewer identity.Identity, items []feed.Item, logger zerolog.Logger) int {
	if viewer.ID == "" || len(items) == 0 {
		return 0
	}
	pos, ok, err := m.deps.Positions.Load(ctx, viewer.ID)
	if err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "session.resume_failed").Msg("could not load feed position")
		return 0
	}
	if !ok {
		return 0
	}
	for i, it := range items {
		if it.ID == pos.ItemID {
			return i
		}
	}
	return min(max(pos.Index, 0), len(items)-1)
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the live session ids in lexical order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Close tears a session down and saves its position for the viewer.
func (m *Manager) Close(ctx context.Context, id, reason string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	pos, resumable := s.shutdown(ctx)
	m.deps.Bus.PublishOrEvict(s.Topic(), bus.Message{Kind: bus.KindClosed, Data: reason})
	metrics.RecordSessionClosed(reason)

	if resumable && s.Viewer.ID != "" {
		if err := m.deps.Positions.Save(ctx, s.Viewer.ID, pos); err != nil {
			s.logger.Warn().Err(err).Str(xglog.FieldEvent, "session.position_save_failed").Msg("could not save feed position")
		}
	}
	s.logger.Info().
		Str(xglog.FieldEvent, "session.closed").
		Str("reason", reason).
		Msg("feed session closed")
	return nil
}

// Sweep closes sessions idle for longer than the configured TTL and returns
// how many it closed.
func (m *Manager) Sweep(ctx context.Context) int {
	cutoff := m.deps.Now().Add(-m.config().IdleTTL)
	var idle []string
	m.mu.RLock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, id := range idle {
		if m.Close(ctx, id, ReasonIdle) == nil {
			closed++
		}
	}
	return closed
}

// CloseAll closes every session.
func (m *Manager) CloseAll(ctx context.Context, reason string) {
	for _, id := range m.IDs() {
		_ = m.Close(ctx, id, reason)
	}
}

// Run sweeps idle sessions until ctx is done, then closes the rest.
func (m *Manager) Run(ctx context.Context) error {
	t := time.NewTicker(m.config().SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			m.CloseAll(shutdownCtx, ReasonShutdown)
			cancel()
			return nil
		case <-t.C:
			if n := m.Sweep(ctx); n > 0 {
				m.logger.Info().Str(xglog.FieldEvent, "session.swept").Int("closed", n).Msg("idle sessions closed")
			}
		}
	}
}
