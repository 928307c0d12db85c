// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package feed

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/reelfeed/internal/gesture"
	"github.com/ManuGH/reelfeed/internal/identity"
	"github.com/ManuGH/reelfeed/internal/likes"
	"github.com/ManuGH/reelfeed/internal/loop"
	"github.com/ManuGH/reelfeed/internal/media"
	"github.com/ManuGH/reelfeed/internal/media/stub"
	"github.com/ManuGH/reelfeed/internal/playback"
	"github.com/ManuGH/reelfeed/internal/preload"
)

const (
	vpW = 400.0
	vpH = 800.0
)

// renderer reports every requested scroll position back to the controller
// as if the animation completed on the next loop turn.
type renderer struct {
	l        loop.Loop
	c        *Controller
	requests []float64
	frozen   bool
}

func (r *renderer) ScrollTo(offset float64, smooth bool) {
	r.requests = append(r.requests, offset)
	if r.frozen {
		return
	}
	r.l.Post(func() { r.c.HandleScroll(offset) })
}

type recordingHaptics struct{ pulses []time.Duration }

func (h *recordingHaptics) Vibrate(d time.Duration) { h.pulses = append(h.pulses, d) }

type recordingSharer struct{ links []string }

func (s *recordingSharer) Share(_, link string) { s.links = append(s.links, link) }

type harness struct {
	t       *testing.T
	loop    *loop.Manual
	media   *stub.Factory
	render  *renderer
	haptics *recordingHaptics
	sharer  *recordingSharer
	likes   *likes.Store
	c       *Controller
}

func testItems(n int) []Item {
	out := make([]Item, n)
	for i := range out {
		out[i] = Item{
			ID:        fmt.Sprintf("v%d", i),
			MediaURL:  fmt.Sprintf("https://cdn.example/v%d.mp4", i),
			PosterURL: fmt.Sprintf("https://cdn.example/v%d.jpg", i),
			Title:     fmt.Sprintf("clip %d", i),
			LikeCount: i,
		}
	}
	return out
}

func newHarness(t *testing.T, n int, mutate ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		loop:    loop.NewManual(time.Unix(1_700_000_000, 0)),
		media:   stub.NewFactory(stub.PolicyAllow),
		haptics: &recordingHaptics{},
		sharer:  &recordingSharer{},
	}
	h.render = &renderer{l: h.loop}
	h.likes = likes.NewStore(h.loop, likes.PersisterFunc(
		func(_ context.Context, itemID string, _ identity.Identity) (likes.State, error) {
			return likes.State{IsLiked: true, Count: 42}, nil
		}), identity.Static("viewer-1"))

	cfg := Config{ViewportWidth: vpW, ViewportHeight: vpH, ShareOrigin: "https://reels.example/"}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg, testItems(n), Deps{
		Loop:     h.loop,
		Media:    h.media,
		Preload:  preload.NewManager(nil),
		Likes:    h.likes,
		Scroller: h.render,
		Haptics:  h.haptics,
		Sharer:   h.sharer,
	})
	require.NoError(t, err)
	h.render.c = c
	h.c = c
	h.loop.RunUntilIdle()
	return h
}

// ready emits loadstart+canplay for every mounted element and settles the loop.
func (h *harness) ready() {
	for _, v := range h.c.Snapshot().Mounted {
		el := h.media.Latest(v.Item.ID)
		el.Emit(media.Event{Type: media.EventLoadStart})
		el.Emit(media.Event{Type: media.EventCanPlay, Duration: 15})
	}
	h.loop.RunUntilIdle()
}

func (h *harness) playing() []int {
	var out []int
	for _, v := range h.c.Snapshot().Mounted {
		if v.Playback.IsPlaying {
			out = append(out, v.Index)
		}
	}
	return out
}

func (h *harness) mounted() []int {
	var out []int
	for _, v := range h.c.Snapshot().Mounted {
		out = append(out, v.Index)
	}
	return out
}

func TestNew_MountsWindowAndPlaysActive(t *testing.T) {
	h := newHarness(t, 6)
	assert.Equal(t, 0, h.c.Active())
	assert.Equal(t, []int{0, 1, 2}, h.mounted())
	assert.Equal(t, []int{0}, h.playing())
	assert.Equal(t, []string{"https://cdn.example/v0.mp4", "https://cdn.example/v1.mp4"}, h.c.Snapshot().Preload)
}

func TestNew_EmptyFeed(t *testing.T) {
	h := newHarness(t, 0)
	s := h.c.Snapshot()
	assert.True(t, s.Empty)
	assert.Equal(t, -1, s.Active)
	assert.Empty(t, s.Mounted)
	assert.Empty(t, h.media.Opened())
	assert.ErrorIs(t, h.c.Next(), ErrIndexOutOfRange)
}

func TestNew_RejectsDuplicateIDs(t *testing.T) {
	items := testItems(2)
	items[1].ID = items[0].ID
	_, err := New(Config{}, items, Deps{Loop: loop.NewManual(time.Now()), Media: stub.NewFactory(stub.PolicyAllow)})
	assert.Error(t, err)
}

func TestNew_ResumesAtInitialIndex(t *testing.T) {
	h := newHarness(t, 10, func(c *Config) { c.InitialIndex = 5 })
	assert.Equal(t, 5, h.c.Active())
	assert.Equal(t, []float64{5 * vpH}, h.render.requests)
	assert.Equal(t, []int{3, 4, 5, 6, 7}, h.mounted())
	assert.Equal(t, []int{5}, h.playing())
}

func TestHandleScroll_RoundsToNearestItem(t *testing.T) {
	h := newHarness(t, 5)

	h.c.HandleScroll(0.4 * vpH)
	assert.Equal(t, 0, h.c.Active())

	h.c.HandleScroll(0.6 * vpH)
	assert.Equal(t, 1, h.c.Active())

	h.c.HandleScroll(-vpH)
	assert.Equal(t, 1, h.c.Active(), "out of range offsets are ignored")

	h.c.HandleScroll(10 * vpH)
	assert.Equal(t, 1, h.c.Active())
}

func TestNextThreeTimesWithinSettleWindow(t *testing.T) {
	h := newHarness(t, 5)

	require.NoError(t, h.c.Next())
	require.NoError(t, h.c.Next())
	require.NoError(t, h.c.Next())
	assert.Equal(t, 0, h.c.Active(), "nothing commits before the settle delay")
	assert.Equal(t, 3, h.c.Snapshot().NavTarget)

	// A stale position arrives mid-animation.
	h.c.HandleScroll(1 * vpH)
	assert.Equal(t, 0, h.c.Active(), "scroll-driven updates are suppressed in flight")

	h.loop.Advance(DefaultSettleDelay)
	assert.Equal(t, 3, h.c.Active())
	assert.False(t, h.c.Snapshot().InFlight)
	assert.Equal(t, []int{3}, h.playing())
	assert.Zero(t, h.loop.PendingTimers())
}

func TestJumpTo_SettleCommitsIntentOverStaleScroll(t *testing.T) {
	h := newHarness(t, 5)
	h.render.frozen = true

	require.NoError(t, h.c.JumpTo(4))
	h.c.HandleScroll(2 * vpH)
	h.loop.Advance(DefaultSettleDelay)

	assert.Equal(t, 4, h.c.Active())
}

func TestJumpTo_OutOfRange(t *testing.T) {
	h := newHarness(t, 3)
	assert.ErrorIs(t, h.c.JumpTo(3), ErrIndexOutOfRange)
	assert.ErrorIs(t, h.c.JumpTo(-1), ErrIndexOutOfRange)
	assert.ErrorIs(t, h.c.Previous(), ErrIndexOutOfRange)
	assert.False(t, h.c.Snapshot().InFlight)
}

func TestHandleKey(t *testing.T) {
	h := newHarness(t, 5)
	tests := []struct {
		key     string
		handled bool
		want    int
	}{
		{"ArrowDown", true, 1},
		{"j", true, 2},
		{"k", true, 1},
		{"ArrowUp", true, 0},
		{"x", false, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.handled, h.c.HandleKey(tt.key), tt.key)
		h.loop.Advance(DefaultSettleDelay)
		assert.Equal(t, tt.want, h.c.Active(), tt.key)
	}
}

func TestPlacement_FarItemsArePlaceholders(t *testing.T) {
	h := newHarness(t, 6)
	h.ready()

	_, mounted := h.c.Slot(3)
	assert.False(t, mounted)
	assert.Nil(t, h.media.Latest("v3"))

	require.NoError(t, h.c.JumpTo(1))
	h.loop.Advance(DefaultSettleDelay)

	v, mounted := h.c.Slot(3)
	require.True(t, mounted)
	assert.False(t, v.Playback.IsPlaying)
	assert.True(t, v.Playback.IsLoading)
	assert.Equal(t, []int{0, 1, 2, 3}, h.mounted())
	assert.LessOrEqual(t, len(h.mounted()), 5)
}

func TestPlacement_UnmountReleasesResources(t *testing.T) {
	h := newHarness(t, 8)
	first := h.media.Latest("v0")

	require.NoError(t, h.c.JumpTo(5))
	h.loop.Advance(DefaultSettleDelay)

	assert.True(t, first.Closed())
	assert.Zero(t, first.Listeners())
	assert.Equal(t, []int{3, 4, 5, 6, 7}, h.mounted())
}

func TestPlayback_ActiveAndVisibleConjunction(t *testing.T) {
	h := newHarness(t, 4)
	h.ready()
	require.Equal(t, []int{0}, h.playing())

	// visibility alone
	h.c.SetHidden(true)
	h.loop.RunUntilIdle()
	assert.Empty(t, h.playing())
	h.c.SetHidden(false)
	h.loop.RunUntilIdle()
	assert.Equal(t, []int{0}, h.playing())

	// active alone: the renderer never scrolls, so item 1 stays off-screen
	h.render.frozen = true
	require.NoError(t, h.c.JumpTo(1))
	h.loop.Advance(DefaultSettleDelay)
	assert.Equal(t, 1, h.c.Active())
	assert.Empty(t, h.playing())

	// now visibility catches up
	h.c.HandleScroll(vpH)
	h.loop.RunUntilIdle()
	assert.Equal(t, []int{1}, h.playing())
}

func TestPlayback_AtMostOneItemPlaying(t *testing.T) {
	h := newHarness(t, 12)
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 150; step++ {
		switch rng.Intn(8) {
		case 0:
			_ = h.c.Next()
		case 1:
			_ = h.c.Previous()
		case 2:
			h.c.HandleScroll(rng.Float64() * 11 * vpH)
		case 3:
			h.c.SetHidden(rng.Intn(2) == 0)
		case 4:
			h.loop.Advance(DefaultSettleDelay)
		case 5:
			h.c.Tap(h.c.Active(), 10, 10)
		case 6, 7:
			mounted := h.c.Snapshot().Mounted
			v := mounted[rng.Intn(len(mounted))]
			ev := media.EventEnded
			if rng.Intn(2) == 0 {
				ev = media.EventPlaying
			}
			h.media.Latest(v.Item.ID).Emit(media.Event{Type: ev})
			h.loop.RunUntilIdle()
		}
		h.ready()
		require.LessOrEqual(t, len(h.playing()), 1, "step %d", step)
		for _, idx := range h.playing() {
			require.Equal(t, h.c.Active(), idx, "step %d", step)
		}
		require.LessOrEqual(t, len(h.c.Snapshot().Preload), preload.DefaultAhead+2)
		require.LessOrEqual(t, len(h.mounted()), 2*DefaultMountRadius+1)
	}
}

func TestPlayback_RuntimeEventsCannotStartInactiveItem(t *testing.T) {
	for _, ev := range []media.EventType{media.EventEnded, media.EventPlaying} {
		t.Run(string(ev), func(t *testing.T) {
			h := newHarness(t, 5)
			h.ready()
			require.Equal(t, []int{0}, h.playing())

			h.media.Latest("v1").Emit(media.Event{Type: ev})
			h.loop.RunUntilIdle()

			assert.Equal(t, []int{0}, h.playing())
			assert.True(t, h.media.Latest("v1").Paused())
			assert.False(t, h.media.Latest("v0").Paused())
		})
	}
}

func TestPlayback_LateEndAfterLeavingDoesNotReplay(t *testing.T) {
	h := newHarness(t, 5)
	h.ready()
	require.NoError(t, h.c.JumpTo(1))
	h.loop.Advance(DefaultSettleDelay)
	h.ready()
	require.Equal(t, []int{1}, h.playing())
	plays := h.media.Latest("v0").PlayCalls()

	h.media.Latest("v0").Emit(media.Event{Type: media.EventEnded})
	h.loop.RunUntilIdle()

	assert.Equal(t, []int{1}, h.playing())
	assert.Equal(t, plays, h.media.Latest("v0").PlayCalls())
}

func TestTap_SurfaceTogglesAndDoubleTapLikes(t *testing.T) {
	h := newHarness(t, 3)
	h.ready()
	require.Equal(t, []int{0}, h.playing())

	h.c.Tap(0, 100, 100)
	h.loop.RunUntilIdle()
	assert.Empty(t, h.playing(), "single tap pauses immediately")

	h.loop.Advance(100 * time.Millisecond)
	h.c.Tap(0, 100, 100)
	h.loop.RunUntilIdle()

	assert.Empty(t, h.playing(), "second tap of a pair does not toggle again")
	assert.Equal(t, []time.Duration{likeVibration}, h.haptics.pulses)
	it, _ := h.c.Item(0)
	assert.Equal(t, likes.State{IsLiked: true, Count: 42}, likes.State{IsLiked: it.LikedByViewer, Count: it.LikeCount})

	h.loop.Advance(500 * time.Millisecond)
	h.c.Tap(0, 100, 100)
	h.loop.RunUntilIdle()
	assert.Equal(t, []int{0}, h.playing())
}

func TestTapAt_TimesPairsByRendererClock(t *testing.T) {
	h := newHarness(t, 3)
	h.ready()
	t0 := time.Unix(1_800_000_000, 0)

	// Delivered a second apart but tapped 120ms apart: still a double tap.
	h.c.TapAt(0, 100, 100, t0)
	h.loop.Advance(time.Second)
	h.c.TapAt(0, 100, 100, t0.Add(120*time.Millisecond))
	h.loop.RunUntilIdle()
	assert.Equal(t, []time.Duration{likeVibration}, h.haptics.pulses)
	assert.Empty(t, h.playing())

	// Delivered together but tapped 600ms apart: two toggles.
	h.c.TapAt(0, 100, 100, t0.Add(2*time.Second))
	h.c.TapAt(0, 100, 100, t0.Add(2600*time.Millisecond))
	h.loop.RunUntilIdle()
	assert.Len(t, h.haptics.pulses, 1)
	assert.Empty(t, h.playing())
}

func TestTap_ControlsBypassDisambiguator(t *testing.T) {
	h := newHarness(t, 3)
	h.ready()
	layout := gesture.DefaultLayout(vpW, vpH)

	mute := layout.Controls[gesture.RegionMute]
	before, _ := h.c.Slot(0)
	assert.Equal(t, gesture.RegionMute, h.c.Tap(0, mute.X+1, mute.Y+1))
	after, _ := h.c.Slot(0)
	assert.NotEqual(t, before.Playback.IsMuted, after.Playback.IsMuted)
	assert.True(t, after.Playback.IsPlaying, "control taps never toggle playback")

	share := layout.Controls[gesture.RegionShare]
	h.c.Tap(0, share.X+1, share.Y+1)
	assert.Equal(t, []string{"https://reels.example/reel/v0"}, h.sharer.links)

	like := layout.Controls[gesture.RegionLike]
	h.c.Tap(0, like.X+1, like.Y+1)
	h.loop.RunUntilIdle()
	v, _ := h.c.Slot(0)
	assert.True(t, v.Like.IsLiked)
	assert.Empty(t, h.haptics.pulses)
}

func TestTap_IgnoredForNonActiveOrUnmounted(t *testing.T) {
	h := newHarness(t, 5)
	h.ready()

	assert.Equal(t, gesture.Region(""), h.c.Tap(4, 10, 10))
	h.c.Tap(1, 10, 10)
	h.loop.RunUntilIdle()
	assert.Equal(t, []int{0}, h.playing())
}

func TestMediaEvent_ErrorIsolatedToItem(t *testing.T) {
	h := newHarness(t, 3)
	h.ready()

	h.media.Latest("v1").Emit(media.Event{Type: media.EventError})

	v1, _ := h.c.Slot(1)
	v0, _ := h.c.Slot(0)
	assert.True(t, v1.Playback.HasError)
	assert.Equal(t, playback.StateError, v1.Playback.State)
	assert.False(t, v0.Playback.HasError)
	assert.True(t, v0.Playback.IsPlaying)
}

func TestResize_KeepsActiveItem(t *testing.T) {
	h := newHarness(t, 5, func(c *Config) { c.InitialIndex = 2 })
	h.c.Resize(500, 1000)
	h.loop.RunUntilIdle()

	assert.Equal(t, 2, h.c.Active())
	assert.Equal(t, 2000.0, h.render.requests[len(h.render.requests)-1])
}

func TestClose_ReleasesEverything(t *testing.T) {
	h := newHarness(t, 5)
	require.NoError(t, h.c.JumpTo(2))
	h.c.Close()
	h.loop.Advance(time.Second)

	for _, el := range h.media.Opened() {
		assert.True(t, el.Closed())
		assert.Zero(t, el.Listeners())
	}
	assert.Empty(t, h.c.Snapshot().Preload)
	assert.ErrorIs(t, h.c.Next(), ErrClosed)
	assert.Equal(t, 0, h.c.Active())
}

func TestSubscribePublishesSnapshots(t *testing.T) {
	h := newHarness(t, 3)
	var got []Snapshot
	cancel := h.c.Subscribe(func(s Snapshot) { got = append(got, s) })

	require.NoError(t, h.c.JumpTo(1))
	h.loop.Advance(DefaultSettleDelay)
	cancel()
	require.NotEmpty(t, got)
	assert.Equal(t, 1, got[len(got)-1].Active)

	n := len(got)
	h.c.HandleScroll(0)
	assert.Len(t, got, n)
}

func TestShareURL(t *testing.T) {
	assert.Equal(t, "https://a.example/reel/abc", ShareURL("https://a.example/", "abc"))
	assert.Equal(t, "/reel/a%2Fb", ShareURL("", "a/b"))
}
