// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package feed

import (
	xglog "github.com/ManuGH/reelfeed/internal/log"
	"github.com/ManuGH/reelfeed/internal/media"
	"github.com/ManuGH/reelfeed/internal/metrics"
	"github.com/ManuGH/reelfeed/internal/playback"
	"github.com/ManuGH/reelfeed/internal/visibility"
)

// slot is a mounted item: a live media element with its playback
// controller and visibility detector.
type slot struct {
	index    int
	item     Item
	el       media.Element
	player   *playback.Controller
	detector *visibility.Detector
	unsub    func()
	// wantPlay is the last applied value of active && visible.
	wantPlay bool
}

func (c *Controller) mount(idx int) {
	it := c.items[idx]
	el := c.media.Open(media.Source{ItemID: it.ID, URL: it.MediaURL, PosterURL: it.PosterURL})
	logger := c.logger.With().Str(xglog.FieldItemID, it.ID).Int(xglog.FieldIndex, idx).Logger()

	s := &slot{index: idx, item: it, el: el}
	s.player = playback.New(c.loop, el,
		playback.WithAutoplay(false),
		playback.WithLoop(true),
		playback.WithMuted(true),
		playback.WithLogger(logger.With().Str(xglog.FieldComponent, "playback").Logger()),
	)
	s.unsub = s.player.Subscribe(func(snap playback.Snapshot) {
		// The runtime may report playing for an item that must not play.
		if snap.IsPlaying && !s.wantPlay {
			c.logger.Debug().
				Str(xglog.FieldEvent, "feed.unwanted_playback").
				Str(xglog.FieldItemID, it.ID).
				Msg("pausing item that is not active and visible")
			s.player.Pause()
			return
		}
		c.publish()
	})
	s.detector = visibility.NewDetector(c.viewport, visibility.WithThreshold(c.cfg.VisibilityThreshold))
	c.slots[idx] = s

	s.detector.OnChange(func(bool) { c.applyPlayback(s) })
	s.detector.Attach(it.ID)

	metrics.AddMountedItems(1)
	logger.Debug().Str(xglog.FieldEvent, "feed.item_mounted").Msg("item mounted")
}

func (c *Controller) unmount(idx int) {
	s, ok := c.slots[idx]
	if !ok {
		return
	}
	delete(c.slots, idx)

	s.detector.OnChange(nil)
	s.detector.Detach()
	if s.wantPlay {
		s.player.Pause()
	}
	s.unsub()
	s.player.Detach()
	if err := s.el.Close(); err != nil {
		c.logger.Warn().Err(err).Str(xglog.FieldItemID, s.item.ID).Msg("closing media element failed")
	}
	c.gestures.Forget(s.item.ID)

	metrics.AddMountedItems(-1)
	c.logger.Debug().
		Str(xglog.FieldEvent, "feed.item_unmounted").
		Str(xglog.FieldItemID, s.item.ID).
		Int(xglog.FieldIndex, idx).
		Msg("item unmounted")
}

// applyPlayback enforces that an item plays exactly while it is both active
// and visible. It only acts when that conjunction changes, so explicit
// pauses by the viewer stick until the item leaves and re-enters.
func (c *Controller) applyPlayback(s *slot) {
	want := s.index == c.active && s.detector.Visible()
	if want == s.wantPlay {
		return
	}
	s.wantPlay = want
	if want {
		s.player.Play()
		return
	}
	s.player.Pause()
}
