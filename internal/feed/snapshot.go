// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package feed

import (
	"github.com/ManuGH/reelfeed/internal/likes"
	"github.com/ManuGH/reelfeed/internal/playback"
)

// Snapshot is the renderer-facing state of a feed. Items outside the mounted
// window are placeholders and are not listed.
type Snapshot struct {
	Active    int        `json:"active"`
	Count     int        `json:"count"`
	Empty     bool       `json:"empty"`
	InFlight  bool       `json:"scrollInFlight"`
	NavTarget int        `json:"navTarget"`
	Hidden    bool       `json:"hidden"`
	Mounted   []SlotView `json:"mounted"`
	Preload   []string   `json:"preload"`
}

// SlotView is one mounted item with its overlay state.
type SlotView struct {
	Index    int               `json:"index"`
	Item     Item              `json:"item"`
	Active   bool              `json:"active"`
	Visible  bool              `json:"visible"`
	Playback playback.Snapshot `json:"playback"`
	Like     likes.State       `json:"like"`
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		Active:    c.active,
		Count:     len(c.items),
		Empty:     len(c.items) == 0,
		InFlight:  c.inFlight,
		NavTarget: c.active,
		Hidden:    c.viewport.Hidden(),
		Mounted:   make([]SlotView, 0, len(c.slots)),
		Preload:   c.pre.Live(),
	}
	if c.inFlight {
		s.NavTarget = c.navTarget
	}
	for _, idx := range c.mountedIndexes() {
		sl := c.slots[idx]
		it, _ := c.Item(idx)
		s.Mounted = append(s.Mounted, SlotView{
			Index:    idx,
			Item:     it,
			Active:   idx == c.active,
			Visible:  sl.detector.Visible(),
			Playback: sl.player.Snapshot(),
			Like:     likes.State{IsLiked: it.LikedByViewer, Count: it.LikeCount},
		})
	}
	return s
}

// Slot returns the view of a mounted item.
func (c *Controller) Slot(index int) (SlotView, bool) {
	for _, v := range c.Snapshot().Mounted {
		if v.Index == index {
			return v, true
		}
	}
	return SlotView{}, false
}

// Subscribe registers fn for every published snapshot.
func (c *Controller) Subscribe(fn func(Snapshot)) (cancel func()) {
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() { delete(c.subs, id) }
}

func (c *Controller) publish() {
	if len(c.subs) == 0 || c.closed {
		return
	}
	snap := c.Snapshot()
	for id := 0; id < c.nextSub; id++ {
		if fn, ok := c.subs[id]; ok {
			fn(snap)
		}
	}
}
