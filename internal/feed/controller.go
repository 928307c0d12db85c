// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package feed tracks the active item of a vertically scrolling feed and
// wires visibility, playback, preloading, gestures and likes for the items
// around it.
package feed

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/reelfeed/internal/gesture"
	"github.com/ManuGH/reelfeed/internal/likes"
	xglog "github.com/ManuGH/reelfeed/internal/log"
	"github.com/ManuGH/reelfeed/internal/loop"
	"github.com/ManuGH/reelfeed/internal/media"
	"github.com/ManuGH/reelfeed/internal/metrics"
	"github.com/ManuGH/reelfeed/internal/preload"
	"github.com/ManuGH/reelfeed/internal/visibility"
)

const (
	// DefaultMountRadius is how far from the active item media stays mounted.
	DefaultMountRadius = 2
	// DefaultSettleDelay matches the smooth scroll animation.
	DefaultSettleDelay = 300 * time.Millisecond
	// likeVibration is the haptic pulse on a double-tap like.
	likeVibration = 10 * time.Millisecond
)

var (
	// ErrIndexOutOfRange is returned for navigation outside the item list.
	ErrIndexOutOfRange = errors.New("feed: index out of range")
	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("feed: controller closed")
)

// Config holds the feed tuning knobs.
type Config struct {
	// ViewportHeight is the height of the scroll container; every item is
	// exactly one viewport tall.
	ViewportHeight      float64
	ViewportWidth       float64
	MountRadius         int
	VisibilityThreshold float64
	SettleDelay         time.Duration
	DoubleTapWindow     time.Duration
	// ShareOrigin prefixes share links.
	ShareOrigin string
	// InitialIndex resumes the feed at a previous position.
	InitialIndex int
}

func (c *Config) defaults() {
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 1
	}
	if c.MountRadius <= 0 {
		c.MountRadius = DefaultMountRadius
	}
	if c.VisibilityThreshold <= 0 {
		c.VisibilityThreshold = visibility.DefaultThreshold
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.DoubleTapWindow <= 0 {
		c.DoubleTapWindow = gesture.DefaultWindow
	}
}

// Deps are the collaborators a controller drives.
type Deps struct {
	Loop    loop.Loop
	Media   media.Factory
	Preload *preload.Manager
	Likes   *likes.Store
	// Scroller is optional. Without one the controller applies scroll
	// requests to its own viewport immediately.
	Scroller Scroller
	Haptics  Haptics
	Sharer   Sharer
	Logger   *zerolog.Logger
}

// Controller is the single writer of the active index. It runs on the
// session loop and is not goroutine-safe.
type Controller struct {
	cfg    Config
	loop   loop.Loop
	media  media.Factory
	pre    *preload.Manager
	likes  *likes.Store
	scroll Scroller
	haptic Haptics
	share  Sharer
	logger zerolog.Logger

	items    []Item
	urls     []string
	indexOf  map[string]int
	active   int
	viewport *visibility.Viewport
	slots    map[int]*slot
	gestures *gesture.Disambiguator
	layout   gesture.Layout

	// Programmatic navigation: only the timer of the latest request commits.
	inFlight    bool
	navTarget   int
	navGen      uint64
	settleTimer loop.Timer

	subs      map[int]func(Snapshot)
	nextSub   int
	unsubLike func()
	closed    bool
}

// New builds a controller over items and mounts the initial window.
func New(cfg Config, items []Item, deps Deps) (*Controller, error) {
	if deps.Loop == nil || deps.Media == nil {
		return nil, fmt.Errorf("feed: loop and media factory are required")
	}
	cfg.defaults()
	if deps.Preload == nil {
		deps.Preload = preload.NewManager(nil)
	}
	if deps.Haptics == nil {
		deps.Haptics = nopHaptics{}
	}
	if deps.Sharer == nil {
		deps.Sharer = nopSharer{}
	}
	logger := xglog.WithComponent("feed")
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	c := &Controller{
		cfg:      cfg,
		loop:     deps.Loop,
		media:    deps.Media,
		pre:      deps.Preload,
		likes:    deps.Likes,
		scroll:   deps.Scroller,
		haptic:   deps.Haptics,
		share:    deps.Sharer,
		logger:   logger,
		items:    append([]Item(nil), items...),
		indexOf:  make(map[string]int, len(items)),
		slots:    make(map[int]*slot),
		gestures: gesture.New(cfg.DoubleTapWindow),
		layout:   gesture.DefaultLayout(cfg.ViewportWidth, cfg.ViewportHeight),
		subs:     make(map[int]func(Snapshot)),
	}
	c.urls = make([]string, len(c.items))
	for i, it := range c.items {
		if _, dup := c.indexOf[it.ID]; dup {
			return nil, fmt.Errorf("feed: duplicate item id %q", it.ID)
		}
		c.indexOf[it.ID] = i
		c.urls[i] = it.MediaURL
		if c.likes != nil {
			c.likes.Seed(it.ID, it.likeState())
		}
	}
	if c.likes != nil {
		c.unsubLike = c.likes.Subscribe(func(itemID string, _ likes.State) {
			if _, ok := c.indexOf[itemID]; ok {
				c.publish()
			}
		})
	}
	c.viewport = visibility.NewViewport(cfg.ViewportHeight, c.locate)

	if len(c.items) == 0 {
		c.active = -1
		c.logger.Info().Str(xglog.FieldEvent, "feed.empty").Msg("feed has no items")
		return c, nil
	}
	c.active = clampIndex(cfg.InitialIndex, len(c.items))
	if c.active > 0 {
		c.scrollTo(c.active, false)
	}
	c.reconcile()
	return c, nil
}

// Len returns the number of items.
func (c *Controller) Len() int { return len(c.items) }

// Active returns the active index, or -1 for an empty feed.
func (c *Controller) Active() int { return c.active }

// Item returns the item at index with its live like state.
func (c *Controller) Item(index int) (Item, bool) {
	if index < 0 || index >= len(c.items) {
		return Item{}, false
	}
	it := c.items[index]
	if c.likes != nil {
		if st, ok := c.likes.Get(it.ID); ok {
			it.LikedByViewer, it.LikeCount = st.IsLiked, st.Count
		}
	}
	return it, true
}

// HandleScroll applies a scroll position reported by the renderer. Outside
// programmatic navigation the nearest item becomes active.
func (c *Controller) HandleScroll(offset float64) {
	if c.closed {
		return
	}
	c.viewport.Scroll(offset)
	if c.inFlight || len(c.items) == 0 {
		return
	}
	idx := int(math.Round(offset / c.cfg.ViewportHeight))
	if idx < 0 || idx >= len(c.items) {
		return
	}
	c.setActive(idx, "scroll")
}

// Resize changes the viewport and keeps the active item in place.
func (c *Controller) Resize(width, height float64) {
	if c.closed || height <= 0 {
		return
	}
	c.cfg.ViewportWidth, c.cfg.ViewportHeight = width, height
	c.layout = gesture.DefaultLayout(width, height)
	c.viewport.Resize(height)
	if c.active >= 0 {
		target := c.active
		if c.inFlight {
			target = c.navTarget
		}
		c.scrollTo(target, false)
	}
}

// Next navigates to the item after the current navigation target.
func (c *Controller) Next() error { return c.step(1) }

// Previous navigates to the item before the current navigation target.
func (c *Controller) Previous() error { return c.step(-1) }

func (c *Controller) step(delta int) error {
	base := c.active
	if c.inFlight {
		base = c.navTarget
	}
	return c.navigate(base+delta, "key")
}

// JumpTo smoothly scrolls to index and commits it once the scroll settles.
func (c *Controller) JumpTo(index int) error { return c.navigate(index, "jump") }

func (c *Controller) navigate(index int, source string) error {
	if c.closed {
		return ErrClosed
	}
	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(c.items))
	}
	metrics.IncNavigation(source)

	c.inFlight = true
	c.navTarget = index
	c.navGen++
	gen := c.navGen
	if c.settleTimer != nil {
		c.settleTimer.Stop()
	}
	c.scrollTo(index, true)
	c.settleTimer = c.loop.AfterFunc(c.cfg.SettleDelay, func() { c.settle(gen) })
	c.publish()
	return nil
}

func (c *Controller) settle(gen uint64) {
	if c.closed || gen != c.navGen {
		return
	}
	c.inFlight = false
	c.settleTimer = nil
	if !c.setActive(c.navTarget, "navigation") {
		c.publish()
	}
}

// HandleKey maps keyboard input to navigation. It reports whether the key
// was consumed.
func (c *Controller) HandleKey(key string) bool {
	switch key {
	case "ArrowDown", "j":
		_ = c.Next()
		return true
	case "ArrowUp", "k":
		_ = c.Previous()
		return true
	}
	return false
}

// Tap handles a pointer tap at item-local (x, y) on the item at index, timed
// by the loop clock. Control regions are resolved first; surface taps go
// through the double-tap disambiguator. Taps on unmounted items are ignored.
func (c *Controller) Tap(index int, x, y float64) gesture.Region {
	return c.TapAt(index, x, y, time.Time{})
}

// TapAt is Tap with the instant the renderer observed the tap. Only the gap
// between two taps matters, so the renderer's clock may be offset from the
// server's but must be used for every tap. A zero at uses the loop clock.
func (c *Controller) TapAt(index int, x, y float64, at time.Time) gesture.Region {
	if at.IsZero() {
		at = c.loop.Now()
	}
	s, ok := c.slots[index]
	if c.closed || !ok {
		return ""
	}
	region := c.layout.HitTest(x, y)
	switch region {
	case gesture.RegionMute:
		s.player.ToggleMute()
	case gesture.RegionLike:
		c.toggleLike(s.item.ID)
	case gesture.RegionShare:
		c.share.Share(s.item.ID, ShareURL(c.cfg.ShareOrigin, s.item.ID))
	default:
		switch c.gestures.Tap(s.item.ID, at) {
		case gesture.ActionLike:
			c.haptic.Vibrate(likeVibration)
			c.toggleLike(s.item.ID)
		case gesture.ActionToggle:
			// Only the item allowed to play may be resumed by a tap.
			if s.wantPlay {
				s.player.TogglePlay()
			}
		}
	}
	return region
}

func (c *Controller) toggleLike(itemID string) {
	if c.likes == nil {
		return
	}
	if !c.likes.Toggle(itemID) {
		c.logger.Debug().
			Str(xglog.FieldEvent, "feed.like_ignored").
			Str(xglog.FieldItemID, itemID).
			Msg("like ignored without viewer identity")
	}
}

// SetHidden marks the page backgrounded or foregrounded.
func (c *Controller) SetHidden(hidden bool) {
	if c.closed {
		return
	}
	c.viewport.SetHidden(hidden)
}

// Close unmounts every item and retires all prefetch hints.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.settleTimer != nil {
		c.settleTimer.Stop()
		c.settleTimer = nil
	}
	for _, idx := range c.mountedIndexes() {
		c.unmount(idx)
	}
	c.pre.Close()
	if c.unsubLike != nil {
		c.unsubLike()
	}
	c.subs = make(map[int]func(Snapshot))
	c.logger.Debug().Str(xglog.FieldEvent, "feed.closed").Msg("feed controller closed")
}

func (c *Controller) setActive(idx int, trigger string) bool {
	if idx == c.active {
		return false
	}
	old := c.active
	c.active = idx
	metrics.RecordActiveChange(trigger)
	c.logger.Debug().
		Str(xglog.FieldEvent, "feed.active_changed").
		Int(xglog.FieldOldIndex, old).
		Int(xglog.FieldNewIndex, idx).
		Str("trigger", trigger).
		Msg("active item changed")
	c.reconcile()
	return true
}

// reconcile derives the mounted window, the preload window and every
// slot's playback from the current active index.
func (c *Controller) reconcile() {
	lo, hi := c.active-c.cfg.MountRadius, c.active+c.cfg.MountRadius
	for _, idx := range c.mountedIndexes() {
		if idx < lo || idx > hi {
			c.unmount(idx)
		}
	}
	for idx := max(lo, 0); idx <= hi && idx < len(c.items); idx++ {
		if _, ok := c.slots[idx]; !ok {
			c.mount(idx)
		}
	}
	c.pre.Update(c.active, c.urls)

	// Pauses are synchronous and plays are not, so pausing first keeps at
	// most one element playing.
	for _, idx := range c.mountedIndexes() {
		if idx != c.active {
			c.applyPlayback(c.slots[idx])
		}
	}
	if s, ok := c.slots[c.active]; ok {
		c.applyPlayback(s)
	}
	c.publish()
}

func (c *Controller) scrollTo(index int, smooth bool) {
	offset := float64(index) * c.cfg.ViewportHeight
	if c.scroll == nil {
		c.viewport.Scroll(offset)
		return
	}
	c.scroll.ScrollTo(offset, smooth)
}

func (c *Controller) locate(target string) (visibility.Rect, bool) {
	idx, ok := c.indexOf[target]
	if !ok {
		return visibility.Rect{}, false
	}
	h := c.cfg.ViewportHeight
	return visibility.Rect{Top: float64(idx) * h, Height: h}, true
}

func (c *Controller) mountedIndexes() []int {
	out := make([]int, 0, len(c.slots))
	for idx := range c.slots {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
