// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package visibility reports whether feed items are sufficiently on-screen.
//
// A Viewport plays the role of the renderer's intersection observer: it knows
// the scroll container geometry and notifies subscribers when a target's
// visible area ratio crosses their threshold. A Detector is the per-item
// signal built on top of an Observer.
package visibility

import "math"

// Rect is a target's vertical extent in scroll-content coordinates.
type Rect struct {
	Top    float64
	Height float64
}

// Entry is delivered to observers when a target's visibility changes.
type Entry struct {
	Target  string
	Ratio   float64
	Visible bool
}

// Observer registers threshold subscriptions for targets.
type Observer interface {
	// Observe subscribes fn to target. fn receives the initial entry and then
	// every threshold crossing. The returned function removes the subscription.
	Observe(target string, threshold float64, margin float64, fn func(Entry)) (unobserve func())
}

// Locator resolves a target to its geometry. Unknown targets report false.
type Locator func(target string) (Rect, bool)

type subscription struct {
	target    string
	threshold float64
	margin    float64
	fn        func(Entry)
	visible   bool
}

// Viewport is an Observer over a single vertical scroll container.
// It is owned by a session loop and is not goroutine-safe.
type Viewport struct {
	locate Locator
	offset float64
	height float64
	hidden bool

	subs   map[int]*subscription
	nextID int
}

// NewViewport returns a viewport of the given height at offset 0.
func NewViewport(height float64, locate Locator) *Viewport {
	return &Viewport{
		locate: locate,
		height: height,
		subs:   make(map[int]*subscription),
	}
}

// Observe implements Observer.
func (v *Viewport) Observe(target string, threshold, margin float64, fn func(Entry)) func() {
	id := v.nextID
	v.nextID++
	s := &subscription{target: target, threshold: threshold, margin: margin, fn: fn}
	v.subs[id] = s

	ratio := v.Ratio(target, margin)
	s.visible = meets(ratio, threshold)
	fn(Entry{Target: target, Ratio: ratio, Visible: s.visible})

	return func() { delete(v.subs, id) }
}

// Subscriptions reports the number of live subscriptions.
func (v *Viewport) Subscriptions() int { return len(v.subs) }

// Offset returns the current scroll offset.
func (v *Viewport) Offset() float64 { return v.offset }

// Height returns the viewport height.
func (v *Viewport) Height() float64 { return v.height }

// Hidden reports whether the page is backgrounded.
func (v *Viewport) Hidden() bool { return v.hidden }

// Scroll moves the viewport and notifies crossings.
func (v *Viewport) Scroll(offset float64) {
	v.offset = offset
	v.Refresh()
}

// Resize changes the viewport height and notifies crossings.
func (v *Viewport) Resize(height float64) {
	v.height = height
	v.Refresh()
}

// SetHidden marks the page backgrounded (every ratio becomes 0) or foregrounded.
func (v *Viewport) SetHidden(hidden bool) {
	v.hidden = hidden
	v.Refresh()
}

// Refresh recomputes every subscription, e.g. after the layout changed.
func (v *Viewport) Refresh() {
	for id := 0; id < v.nextID; id++ {
		s, ok := v.subs[id]
		if !ok {
			continue
		}
		ratio := v.Ratio(s.target, s.margin)
		visible := meets(ratio, s.threshold)
		if visible == s.visible {
			continue
		}
		s.visible = visible
		s.fn(Entry{Target: s.target, Ratio: ratio, Visible: visible})
		// fn may unobserve other targets
	}
}

// Ratio returns the fraction of target's area inside the viewport grown by
// margin on both edges.
func (v *Viewport) Ratio(target string, margin float64) float64 {
	if v.hidden || v.locate == nil {
		return 0
	}
	r, ok := v.locate(target)
	if !ok || r.Height <= 0 {
		return 0
	}
	top := math.Max(r.Top, v.offset-margin)
	bottom := math.Min(r.Top+r.Height, v.offset+v.height+margin)
	if bottom <= top {
		return 0
	}
	return math.Min(1, (bottom-top)/r.Height)
}

func meets(ratio, threshold float64) bool {
	return ratio > 0 && ratio >= threshold
}

var _ Observer = (*Viewport)(nil)
