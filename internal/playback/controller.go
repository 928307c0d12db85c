// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package playback drives a single media element through its play/pause
// lifecycle and publishes immutable snapshots of its state.
package playback

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog"

	"github.com/ManuGH/reelfeed/internal/fsm"
	xglog "github.com/ManuGH/reelfeed/internal/log"
	"github.com/ManuGH/reelfeed/internal/loop"
	"github.com/ManuGH/reelfeed/internal/media"
	"github.com/ManuGH/reelfeed/internal/metrics"
)

// Controller owns one media element. All methods must be called on the
// session loop; Play suspends on the loop's Go facility.
type Controller struct {
	loop   loop.Loop
	el     media.Element
	logger zerolog.Logger

	autoplay bool
	looping  bool
	onEnded  func()

	machine *fsm.Machine[State, event]
	snap    Snapshot

	subs   map[int]func(Snapshot)
	nextID int

	// playGen invalidates in-flight play attempts on Pause and Detach.
	playGen  uint64
	pending  bool
	unlisten func()
	ctx      context.Context
	cancel   context.CancelFunc
	detached bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithAutoplay starts playback as soon as the media can play. Default true.
func WithAutoplay(on bool) Option { return func(c *Controller) { c.autoplay = on } }

// WithLoop rewinds and replays on end of media. Default true.
func WithLoop(on bool) Option { return func(c *Controller) { c.looping = on } }

// WithMuted sets the initial mute flag. Default true.
func WithMuted(on bool) Option { return func(c *Controller) { c.snap.IsMuted = on } }

// OnEnded registers the completion callback for non-looping media.
func OnEnded(fn func()) Option { return func(c *Controller) { c.onEnded = fn } }

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Controller) { c.logger = l } }

// New attaches a controller to el and starts listening for its events.
func New(l loop.Loop, el media.Element, opts ...Option) *Controller {
	c := &Controller{
		loop:     l,
		el:       el,
		logger:   xglog.WithComponent("playback"),
		autoplay: true,
		looping:  true,
		snap: Snapshot{
			State:     StateIdle,
			IsMuted:   true,
			IsLoading: true,
		},
		subs: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.machine = fsm.MustNew(StateIdle, transitions,
		fsm.WithTerminal[State, event](StateError),
		fsm.OnTransition(func(from, to State, ev event) {
			metrics.RecordPlaybackTransition(string(from), string(to))
			c.logger.Debug().
				Str(xglog.FieldEvent, "playback.transition").
				Str(xglog.FieldOldState, string(from)).
				Str(xglog.FieldNewState, string(to)).
				Str("trigger", string(ev)).
				Msg("playback state changed")
		}),
	)
	el.SetMuted(c.snap.IsMuted)
	c.unlisten = el.Listen(c.HandleEvent)
	return c
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot { return c.snap }

// Subscribe registers fn for every published snapshot change.
func (c *Controller) Subscribe(fn func(Snapshot)) (cancel func()) {
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() { delete(c.subs, id) }
}

// Play starts playback. If the runtime rejects unmuted playback the
// controller forces mute and retries once; a second rejection leaves the
// element paused without surfacing an error.
func (c *Controller) Play() {
	if c.detached || c.pending || c.machine.Is(StateError) {
		return
	}
	c.pending = true
	c.playGen++
	c.attempt(c.playGen, false)
}

func (c *Controller) attempt(gen uint64, retried bool) {
	el, ctx := c.el, c.ctx
	c.loop.Go(func() func() {
		err := el.Play(ctx)
		return func() { c.finishPlay(gen, retried, err) }
	})
}

func (c *Controller) finishPlay(gen uint64, retried bool, err error) {
	if gen != c.playGen {
		// Paused or detached while the runtime was deciding.
		if err == nil {
			c.el.Pause()
			metrics.RecordPlayAttempt("superseded")
		}
		return
	}

	switch {
	case err == nil:
		c.pending = false
		if retried {
			metrics.RecordPlayAttempt("muted_retry")
		} else {
			metrics.RecordPlayAttempt("started")
		}
		c.fire(evPlay)
		c.update(func(s *Snapshot) { s.IsPlaying = true })

	case errors.Is(err, media.ErrPlaybackRejected) && !retried && !c.el.Muted():
		c.el.SetMuted(true)
		c.update(func(s *Snapshot) { s.IsMuted = true })
		c.logger.Debug().Str(xglog.FieldEvent, "playback.autoplay_fallback").Msg("unmuted playback rejected, retrying muted")
		c.attempt(gen, true)

	default:
		c.pending = false
		metrics.RecordPlayAttempt("blocked")
		c.logger.Warn().Err(err).Str(xglog.FieldEvent, "playback.autoplay_blocked").Msg("video autoplay blocked")
	}
}

// Pause stops playback. It is idempotent.
func (c *Controller) Pause() {
	if c.detached {
		return
	}
	c.playGen++
	c.pending = false
	c.el.Pause()
	c.fire(evPause)
	c.update(func(s *Snapshot) { s.IsPlaying = false })
}

// Pending reports whether a play attempt is awaiting the runtime.
func (c *Controller) Pending() bool { return c.pending }

// TogglePlay pauses when playing (or about to), otherwise plays.
func (c *Controller) TogglePlay() {
	if c.snap.IsPlaying || c.pending {
		c.Pause()
		return
	}
	c.Play()
}

// ToggleMute flips the mute flag independently of play state.
func (c *Controller) ToggleMute() {
	if c.detached {
		return
	}
	c.el.SetMuted(!c.el.Muted())
	muted := c.el.Muted()
	c.update(func(s *Snapshot) { s.IsMuted = muted })
}

// Seek moves to fraction of the duration. It is a no-op while the duration
// is unknown.
func (c *Controller) Seek(fraction float64) {
	if c.detached {
		return
	}
	d := c.el.Duration()
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) || math.IsNaN(fraction) {
		return
	}
	fraction = math.Max(0, math.Min(1, fraction))
	c.el.SetCurrentTime(fraction * d)
}

// Reset rewinds to the start without changing play state.
func (c *Controller) Reset() {
	if c.detached {
		return
	}
	c.el.SetCurrentTime(0)
	c.update(func(s *Snapshot) {
		s.Progress = 0
		s.CurrentTime = 0
	})
}

// HandleEvent applies a lifecycle event from the media runtime.
func (c *Controller) HandleEvent(ev media.Event) {
	if c.detached || c.machine.Is(StateError) {
		return
	}
	switch ev.Type {
	case media.EventLoadStart:
		c.fire(evLoadStart)
		c.update(func(s *Snapshot) {
			s.IsLoading = true
			s.HasError = false
		})

	case media.EventCanPlay:
		d := c.duration(ev)
		c.fire(evCanPlay)
		c.update(func(s *Snapshot) {
			s.IsLoading = false
			s.Duration = d
		})
		if c.autoplay {
			c.Play()
		}

	case media.EventTimeUpdate:
		d, ct := c.duration(ev), c.el.CurrentTime()
		progress := 0.0
		if d > 0 {
			progress = math.Min(1, ct/d)
		}
		c.update(func(s *Snapshot) {
			s.Progress = progress
			s.CurrentTime = ct
		})

	case media.EventEnded:
		// A paused element can still report a late end from the runtime; only
		// media this controller was playing loops.
		wasPlaying := c.snap.IsPlaying && c.machine.Is(StatePlaying)
		c.fire(evEnded)
		if c.looping && wasPlaying {
			c.el.SetCurrentTime(0)
			c.update(func(*Snapshot) {})
			c.Play()
			return
		}
		if c.looping {
			c.update(func(s *Snapshot) { s.IsPlaying = false })
			return
		}
		c.update(func(s *Snapshot) { s.IsPlaying = false })
		if c.onEnded != nil {
			c.onEnded()
		}

	case media.EventError:
		metrics.IncPlaybackError()
		c.logger.Warn().
			Str(xglog.FieldEvent, "playback.media_error").
			Str("detail", ev.Message).
			Msg("media element failed")
		c.pending = false
		c.playGen++
		c.fire(evFail)
		c.update(func(s *Snapshot) {
			s.HasError = true
			s.IsLoading = false
		})

	case media.EventWaiting:
		c.fire(evWaiting)
		c.update(func(s *Snapshot) { s.IsLoading = true })

	case media.EventPlaying:
		c.fire(evPlay)
		c.update(func(s *Snapshot) {
			s.IsLoading = false
			s.IsPlaying = true
		})
	}
}

// Detach stops listening to the element and abandons any in-flight play
// attempt. The element itself is left to its owner.
func (c *Controller) Detach() {
	if c.detached {
		return
	}
	c.detached = true
	c.playGen++
	c.pending = false
	c.cancel()
	if c.unlisten != nil {
		c.unlisten()
	}
	c.subs = make(map[int]func(Snapshot))
}

func (c *Controller) duration(ev media.Event) float64 {
	if d := c.el.Duration(); d > 0 && !math.IsInf(d, 0) {
		return d
	}
	return ev.Duration
}

func (c *Controller) fire(ev event) {
	if _, err := c.machine.Fire(ev); err != nil {
		c.logger.Debug().Err(err).Str(xglog.FieldEvent, "playback.transition_ignored").Msg("event ignored")
	}
}

func (c *Controller) update(mut func(*Snapshot)) {
	next := c.snap
	mut(&next)
	next.State = c.machine.State()
	if next == c.snap {
		return
	}
	c.snap = next
	for id := 0; id < c.nextID; id++ {
		if fn, ok := c.subs[id]; ok {
			fn(next)
		}
	}
}
