// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

import "github.com/ManuGH/reelfeed/internal/fsm"

// State is the named lifecycle state of one mounted media element.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
	StateError   State = "error"
)

type event string

const (
	evLoadStart event = "load_start"
	evCanPlay   event = "can_play"
	evPlay      event = "play"
	evPause     event = "pause"
	evWaiting   event = "waiting"
	evEnded     event = "ended"
	evFail      event = "fail"
)

// Error is reachable from every state and terminal for the mount. Looping
// media goes playing -> ended -> playing through evEnded and evPlay.
var transitions = []fsm.Transition[State, event]{
	{Event: evLoadStart, To: StateLoading},
	{From: StateLoading, Event: evCanPlay, To: StateReady},
	{Event: evCanPlay},
	{Event: evPlay, To: StatePlaying},
	{Event: evPause, To: StatePaused},
	{Event: evWaiting},
	{Event: evEnded, To: StateEnded},
	{Event: evFail, To: StateError},
}

// Snapshot is an immutable view of a controller's state.
type Snapshot struct {
	State       State   `json:"state"`
	IsPlaying   bool    `json:"isPlaying"`
	IsMuted     bool    `json:"isMuted"`
	IsLoading   bool    `json:"isLoading"`
	HasError    bool    `json:"hasError"`
	Progress    float64 `json:"progress"`
	Duration    float64 `json:"duration"`
	CurrentTime float64 `json:"currentTime"`
}
