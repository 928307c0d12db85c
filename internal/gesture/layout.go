// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package gesture

// Region is what a tap landed on.
type Region string

const (
	RegionSurface Region = "surface"
	RegionLike    Region = "like"
	RegionShare   Region = "share"
	RegionMute    Region = "mute"
)

// Rect is an axis-aligned box in item-local pixels.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Layout lists the control regions of an item overlay. Taps inside a control
// never reach the Disambiguator.
type Layout struct {
	Controls map[Region]Rect
}

// Overlay geometry: a right-hand column of three buttons above the bottom
// caption area.
const (
	controlSize   = 56
	controlGap    = 16
	controlRight  = 8
	controlBottom = 80
)

// DefaultLayout places like, share and mute top to bottom in a column at the
// right edge of a width x height item.
func DefaultLayout(width, height float64) Layout {
	x := width - controlRight - controlSize
	muteY := height - controlBottom - controlSize
	shareY := muteY - controlGap - controlSize
	likeY := shareY - controlGap - controlSize
	return Layout{Controls: map[Region]Rect{
		RegionLike:  {X: x, Y: likeY, W: controlSize, H: controlSize},
		RegionShare: {X: x, Y: shareY, W: controlSize, H: controlSize},
		RegionMute:  {X: x, Y: muteY, W: controlSize, H: controlSize},
	}}
}

// HitTest returns the control under (x, y), or RegionSurface.
func (l Layout) HitTest(x, y float64) Region {
	for _, r := range []Region{RegionLike, RegionShare, RegionMute} {
		if rect, ok := l.Controls[r]; ok && rect.Contains(x, y) {
			return r
		}
	}
	return RegionSurface
}
