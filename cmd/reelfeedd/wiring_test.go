// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/reelfeed/internal/bus"
	"github.com/ManuGH/reelfeed/internal/config"
	"github.com/ManuGH/reelfeed/internal/feed"
	"github.com/ManuGH/reelfeed/internal/health"
	"github.com/ManuGH/reelfeed/internal/identity"
	"github.com/ManuGH/reelfeed/internal/preload"
	"github.com/ManuGH/reelfeed/internal/session"
)

func TestSessionConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.ShareOrigin = "https://reels.example"
	cfg.Likes.Rollback = true
	cfg.Session.MaxSessions = 7

	sc := sessionConfig(cfg)
	assert.Equal(t, "https://reels.example", sc.Feed.ShareOrigin)
	assert.Equal(t, cfg.Feed.MountRadius, sc.Feed.MountRadius)
	assert.Equal(t, cfg.Feed.SettleDelay, sc.Feed.SettleDelay)
	assert.Equal(t, cfg.Feed.PreloadAhead, sc.PreloadAhead)
	assert.Equal(t, cfg.Feed.PlayTimeout, sc.PlayTimeout)
	assert.True(t, sc.LikeRollback)
	assert.False(t, sc.LikeStaleGuard)
	assert.Equal(t, 7, sc.MaxSessions)
}

func TestBuildCache(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.Nop()

	c, check, err := buildCache(ctx, config.PrefetchConfig{Cache: config.CacheMemory, CacheMaxBytes: 1 << 20}, logger)
	require.NoError(t, err)
	assert.Nil(t, check)
	c.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := c.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	require.NoError(t, c.Close())

	c, check, err = buildCache(ctx, config.PrefetchConfig{Cache: config.CacheNone}, logger)
	require.NoError(t, err)
	assert.Nil(t, check)
	c.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	_, _, err = buildCache(ctx, config.PrefetchConfig{Cache: "memcached"}, logger)
	assert.Error(t, err)
}

func TestBuildCache_Redis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	c, check, err := buildCache(ctx, config.PrefetchConfig{Cache: config.CacheRedis, RedisAddr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NotNil(t, check)
	assert.Equal(t, health.StatusHealthy, check.Check(ctx).Status)

	mr.Close()
	assert.Equal(t, health.StatusUnhealthy, check.Check(ctx).Status)
}

func TestBuildPrefetcher(t *testing.T) {
	p, stop := buildPrefetcher(config.PrefetchConfig{Enabled: false}, nil, false)
	_, isHTTP := p.(*preload.HTTPPrefetcher)
	assert.False(t, isHTTP)
	stop()

	p, stop = buildPrefetcher(config.PrefetchConfig{Enabled: true, Rate: 5, Burst: 2}, nil, true)
	_, isHTTP = p.(*preload.HTTPPrefetcher)
	assert.True(t, isHTTP)
	stop()
}

func TestBuildPositions(t *testing.T) {
	ctx := context.Background()

	store, db, err := buildPositions(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, db)
	assert.IsType(t, &session.MemoryPositions{}, store)

	store, db, err = buildPositions(ctx, filepath.Join(t.TempDir(), "positions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Save(ctx, "viewer", session.Position{ItemID: "v3", Index: 3}))
	pos, ok, err := store.Load(ctx, "viewer")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v3", pos.ItemID)
}

func TestApplyReloads(t *testing.T) {
	mgr, err := session.NewManager(session.Config{MaxSessions: 1}, session.Deps{
		Source: feed.SourceFunc(func(context.Context, identity.Identity) ([]feed.Item, error) {
			return []feed.Item{{ID: "v0", MediaURL: "https://cdn.example/v0.mp4"}}, nil
		}),
		Bus: bus.NewMemoryBus(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.CloseAll(context.Background(), session.ReasonShutdown) })

	vp := session.Viewport{Width: 390, Height: 800}
	_, err = mgr.Create(context.Background(), identity.Identity{}, vp)
	require.NoError(t, err)
	_, err = mgr.Create(context.Background(), identity.Identity{}, vp)
	require.ErrorIs(t, err, session.ErrCapacity)

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan config.AppConfig)
	done := make(chan struct{})
	go func() {
		applyReloads(ctx, updates, mgr)
		close(done)
	}()

	next := config.Defaults()
	next.Session.MaxSessions = 2
	updates <- next
	// The unbuffered send only proves receipt; wait for the update to land.
	assert.Eventually(t, func() bool {
		s, err := mgr.Create(context.Background(), identity.Identity{}, vp)
		return err == nil && s != nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("applyReloads did not stop")
	}
}
