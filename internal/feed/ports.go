// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package feed

import "time"

// Scroller moves the renderer's scroll container. Renderers report the
// resulting positions back through HandleScroll.
type Scroller interface {
	ScrollTo(offset float64, smooth bool)
}

// Haptics gives tactile feedback on the viewer's device.
type Haptics interface {
	Vibrate(d time.Duration)
}

// Sharer presents the share sheet for an item.
type Sharer interface {
	Share(itemID, link string)
}

type nopHaptics struct{}

func (nopHaptics) Vibrate(time.Duration) {}

type nopSharer struct{}

func (nopSharer) Share(string, string) {}
