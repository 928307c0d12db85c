// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/reelfeed/internal/loop"
	"github.com/ManuGH/reelfeed/internal/media"
	"github.com/ManuGH/reelfeed/internal/media/stub"
)

func newTestController(t *testing.T, policy stub.Policy, opts ...Option) (*Controller, *stub.Element, *loop.Manual) {
	t.Helper()
	l := loop.NewManual(time.Unix(0, 0))
	el := stub.New(media.Source{ItemID: "v1", URL: "https://cdn.example/v1.mp4"}, policy)
	c := New(l, el, opts...)
	return c, el, l
}

func TestController_InitialSnapshot(t *testing.T) {
	c, el, _ := newTestController(t, stub.PolicyAllow)
	s := c.Snapshot()
	assert.Equal(t, StateIdle, s.State)
	assert.False(t, s.IsPlaying)
	assert.True(t, s.IsLoading)
	assert.True(t, s.IsMuted)
	assert.True(t, el.Muted())
}

func TestController_CanPlayAutoplays(t *testing.T) {
	c, el, l := newTestController(t, stub.PolicyAllow)

	el.Emit(media.Event{Type: media.EventLoadStart})
	el.Emit(media.Event{Type: media.EventCanPlay, Duration: 20})
	l.RunUntilIdle()

	s := c.Snapshot()
	assert.Equal(t, StatePlaying, s.State)
	assert.True(t, s.IsPlaying)
	assert.False(t, s.IsLoading)
	assert.Equal(t, 20.0, s.Duration)
}

func TestController_NoAutoplay(t *testing.T) {
	c, el, l := newTestController(t, stub.PolicyAllow, WithAutoplay(false))
	el.Emit(media.Event{Type: media.EventLoadStart})
	el.Emit(media.Event{Type: media.EventCanPlay, Duration: 20})
	l.RunUntilIdle()

	assert.Equal(t, StateReady, c.Snapshot().State)
	assert.False(t, c.Snapshot().IsPlaying)
	assert.Zero(t, el.PlayCalls())
}

func TestController_PlayRejectedUnmutedFallsBackToMuted(t *testing.T) {
	c, el, l := newTestController(t, stub.PolicyMutedOnly, WithAutoplay(false), WithMuted(false))

	c.Play()
	l.RunUntilIdle()

	s := c.Snapshot()
	assert.True(t, s.IsPlaying)
	assert.True(t, s.IsMuted)
	assert.Equal(t, 2, el.PlayCalls())
}

func TestController_SecondRejectionSwallowed(t *testing.T) {
	c, el, l := newTestController(t, stub.PolicyDeny, WithAutoplay(false), WithMuted(false))

	c.Play()
	l.RunUntilIdle()

	s := c.Snapshot()
	assert.False(t, s.IsPlaying)
	assert.False(t, s.HasError)
	assert.True(t, s.IsMuted)
	assert.Equal(t, 2, el.PlayCalls())
	assert.False(t, c.Pending())
}

func TestController_RejectionWhileMutedNotRetried(t *testing.T) {
	c, el, l := newTestController(t, stub.PolicyDeny, WithAutoplay(false))
	c.Play()
	l.RunUntilIdle()
	assert.False(t, c.Snapshot().IsPlaying)
	assert.Equal(t, 1, el.PlayCalls())
}

func TestController_PauseIdempotent(t *testing.T) {
	c, _, l := newTestController(t, stub.PolicyAllow, WithAutoplay(false))
	c.Play()
	l.RunUntilIdle()

	var published int
	c.Subscribe(func(Snapshot) { published++ })

	c.Pause()
	first := c.Snapshot()
	c.Pause()
	assert.Equal(t, first, c.Snapshot())
	assert.Equal(t, 1, published)
	assert.Equal(t, StatePaused, first.State)
}

func TestController_PauseSupersedesPendingPlay(t *testing.T) {
	c, el, l := newTestController(t, stub.PolicyAllow, WithAutoplay(false))

	c.Play()
	c.Pause()
	l.RunUntilIdle()

	assert.False(t, c.Snapshot().IsPlaying)
	assert.True(t, el.Paused())
}

func TestController_ToggleMuteTwiceRestores(t *testing.T) {
	c, _, _ := newTestController(t, stub.PolicyAllow)
	before := c.Snapshot().IsMuted
	c.ToggleMute()
	assert.NotEqual(t, before, c.Snapshot().IsMuted)
	c.ToggleMute()
	assert.Equal(t, before, c.Snapshot().IsMuted)
}

func TestController_TogglePlay(t *testing.T) {
	c, _, l := newTestController(t, stub.PolicyAllow, WithAutoplay(false))
	c.TogglePlay()
	l.RunUntilIdle()
	require.True(t, c.Snapshot().IsPlaying)

	c.TogglePlay()
	assert.False(t, c.Snapshot().IsPlaying)
}

func TestController_SeekAndReset(t *testing.T) {
	c, el, _ := newTestController(t, stub.PolicyAllow, WithAutoplay(false))

	c.Seek(0.5)
	assert.Zero(t, el.CurrentTime(), "unknown duration ignores seek")

	el.Emit(media.Event{Type: media.EventCanPlay, Duration: 40})
	c.Seek(0.25)
	assert.Equal(t, 10.0, el.CurrentTime())
	c.Seek(3)
	assert.Equal(t, 40.0, el.CurrentTime())

	el.Emit(media.Event{Type: media.EventTimeUpdate, CurrentTime: 30})
	assert.InDelta(t, 0.75, c.Snapshot().Progress, 1e-9)

	c.Reset()
	assert.Zero(t, el.CurrentTime())
	assert.Zero(t, c.Snapshot().Progress)
	assert.Zero(t, c.Snapshot().CurrentTime)
}

func TestController_LoopingReplaysOnEnd(t *testing.T) {
	c, el, l := newTestController(t, stub.PolicyAllow)
	el.Emit(media.Event{Type: media.EventCanPlay, Duration: 5})
	l.RunUntilIdle()
	el.SetCurrentTime(5)

	el.Emit(media.Event{Type: media.EventEnded})
	assert.Equal(t, StateEnded, c.Snapshot().State)
	l.RunUntilIdle()

	assert.Equal(t, StatePlaying, c.Snapshot().State)
	assert.Zero(t, el.CurrentTime())
	assert.Equal(t, 2, el.PlayCalls())
}

func TestController_LateEndAfterPauseDoesNotReplay(t *testing.T) {
	c, el, l := newTestController(t, stub.PolicyAllow)
	el.Emit(media.Event{Type: media.EventCanPlay, Duration: 5})
	l.RunUntilIdle()
	require.True(t, c.Snapshot().IsPlaying)

	c.Pause()
	el.Emit(media.Event{Type: media.EventEnded})
	l.RunUntilIdle()

	s := c.Snapshot()
	assert.Equal(t, StateEnded, s.State)
	assert.False(t, s.IsPlaying)
	assert.True(t, el.Paused())
	assert.Equal(t, 1, el.PlayCalls())
}

func TestController_EndedWithoutLoopFiresCompletion(t *testing.T) {
	done := 0
	c, el, l := newTestController(t, stub.PolicyAllow, WithLoop(false), OnEnded(func() { done++ }))
	el.Emit(media.Event{Type: media.EventCanPlay, Duration: 5})
	l.RunUntilIdle()

	el.Emit(media.Event{Type: media.EventEnded})
	assert.False(t, c.Snapshot().IsPlaying)
	assert.Equal(t, 1, done)
}

func TestController_ErrorIsTerminal(t *testing.T) {
	c, el, l := newTestController(t, stub.PolicyAllow)
	el.Emit(media.Event{Type: media.EventLoadStart})
	el.Emit(media.Event{Type: media.EventError, Message: "decode"})

	s := c.Snapshot()
	assert.Equal(t, StateError, s.State)
	assert.True(t, s.HasError)
	assert.False(t, s.IsLoading)

	el.Emit(media.Event{Type: media.EventLoadStart})
	c.Play()
	l.RunUntilIdle()
	assert.True(t, c.Snapshot().HasError)
	assert.Zero(t, el.PlayCalls())
}

func TestController_WaitingAndPlayingToggleLoading(t *testing.T) {
	c, el, _ := newTestController(t, stub.PolicyAllow, WithAutoplay(false))
	el.Emit(media.Event{Type: media.EventCanPlay, Duration: 5})
	el.Emit(media.Event{Type: media.EventWaiting})
	assert.True(t, c.Snapshot().IsLoading)
	el.Emit(media.Event{Type: media.EventPlaying})
	assert.False(t, c.Snapshot().IsLoading)
	assert.True(t, c.Snapshot().IsPlaying)
}

func TestController_DetachStopsListening(t *testing.T) {
	c, el, l := newTestController(t, stub.PolicyAllow)
	c.Play()
	c.Detach()
	l.RunUntilIdle()

	assert.Zero(t, el.Listeners())
	assert.False(t, c.Snapshot().IsPlaying)
	assert.True(t, el.Paused())
}
