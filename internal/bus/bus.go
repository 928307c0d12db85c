// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus carries outbound session traffic (media commands and state
// snapshots) from session loops to connected renderers.
package bus

import "context"

// Message kinds.
const (
	KindCommand  = "command"
	KindSnapshot = "snapshot"
	KindShare    = "share"
	KindHaptic   = "haptic"
	KindScroll   = "scroll"
	KindClosed   = "closed"
	// KindResync tells a renderer its stream lost messages and must
	// reconnect to start over from a fresh snapshot.
	KindResync = "resync"
)

// Message is one outbound event.
type Message struct {
	Kind string `json:"kind"`
	Data any    `json:"data,omitempty"`
}

// Bus is a topic-based fan-out.
type Bus interface {
	// Publish delivers msg to every subscriber, waiting for buffer space
	// until ctx is done.
	Publish(ctx context.Context, topic string, msg Message) error
	// TryPublish delivers msg without blocking and returns the number of
	// subscribers that had to drop it.
	TryPublish(topic string, msg Message) int
	// PublishOrEvict delivers msg without blocking. A subscriber with a full
	// buffer is closed instead of skipped, so its reader sees the end of the
	// stream rather than a gap. It returns the number of evicted subscribers.
	PublishOrEvict(topic string, msg Message) int
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}

// Subscriber receives messages for one topic.
type Subscriber interface {
	// C is closed when the subscription is closed.
	C() <-chan Message
	Close() error
	// Evicted reports whether the bus closed the subscription because it
	// could not take a message.
	Evicted() bool
}
