// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"time"

	"github.com/ManuGH/reelfeed/internal/bus"
	"github.com/ManuGH/reelfeed/internal/feed"
	"github.com/ManuGH/reelfeed/internal/media/remote"
)

// Topic is the bus topic carrying a session's outbound traffic.
func Topic(sessionID string) string { return "session:" + sessionID }

// ScrollRequest asks the renderer to move its scroll container.
type ScrollRequest struct {
	Offset float64 `json:"offset"`
	Smooth bool    `json:"smooth"`
}

// HapticPulse asks the renderer to vibrate.
type HapticPulse struct {
	DurationMs int64 `json:"durationMs"`
}

// ShareRequest asks the renderer to open its share sheet.
type ShareRequest struct {
	ItemID string `json:"itemId"`
	Link   string `json:"link"`
}

// renderer forwards feed side effects to whoever is subscribed to the
// session topic. Nothing blocks. A slow subscriber may miss snapshots and
// cosmetic effects, but one that cannot take a media command or scroll
// request is evicted so the renderer reconnects and resyncs.
type renderer struct {
	bus   bus.Bus
	topic string
}

var (
	_ feed.Scroller = renderer{}
	_ feed.Haptics  = renderer{}
	_ feed.Sharer   = renderer{}
)

func (r renderer) ScrollTo(offset float64, smooth bool) {
	r.bus.PublishOrEvict(r.topic, bus.Message{Kind: bus.KindScroll, Data: ScrollRequest{Offset: offset, Smooth: smooth}})
}

func (r renderer) Vibrate(d time.Duration) {
	r.bus.TryPublish(r.topic, bus.Message{Kind: bus.KindHaptic, Data: HapticPulse{DurationMs: d.Milliseconds()}})
}

func (r renderer) Share(itemID, link string) {
	r.bus.TryPublish(r.topic, bus.Message{Kind: bus.KindShare, Data: ShareRequest{ItemID: itemID, Link: link}})
}

func (r renderer) command(cmd remote.Command) {
	r.bus.PublishOrEvict(r.topic, bus.Message{Kind: bus.KindCommand, Data: cmd})
}

func (r renderer) snapshot(s feed.Snapshot) {
	r.bus.TryPublish(r.topic, bus.Message{Kind: bus.KindSnapshot, Data: s})
}
