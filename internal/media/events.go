// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import "fmt"

// EventType names a media runtime lifecycle event.
type EventType string

const (
	EventLoadStart  EventType = "loadstart"
	EventCanPlay    EventType = "canplay"
	EventTimeUpdate EventType = "timeupdate"
	EventEnded      EventType = "ended"
	EventError      EventType = "error"
	EventWaiting    EventType = "waiting"
	EventPlaying    EventType = "playing"
)

// Event is a lifecycle notification. Duration and CurrentTime carry the
// runtime's values at emission time when the runtime reports them.
type Event struct {
	Type        EventType `json:"type"`
	Duration    float64   `json:"duration,omitempty"`
	CurrentTime float64   `json:"currentTime,omitempty"`
	Message     string    `json:"message,omitempty"`
}

// ParseEventType validates a wire event name.
func ParseEventType(s string) (EventType, error) {
	switch t := EventType(s); t {
	case EventLoadStart, EventCanPlay, EventTimeUpdate, EventEnded, EventError, EventWaiting, EventPlaying:
		return t, nil
	default:
		return "", fmt.Errorf("unknown media event %q", s)
	}
}
