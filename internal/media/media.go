// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media defines the port between the feed engine and a media
// runtime: one Element per mounted feed item, driven imperatively and
// reporting lifecycle events back.
package media

import (
	"context"
	"errors"
)

var (
	// ErrPlaybackRejected is returned by Play when the runtime refuses to
	// start playback, typically because of an autoplay policy on unmuted media.
	ErrPlaybackRejected = errors.New("media: playback rejected by runtime")
	// ErrClosed is returned by operations on an element that was closed.
	ErrClosed = errors.New("media: element closed")
)

// Source identifies the resource an element plays.
type Source struct {
	ItemID    string
	URL       string
	PosterURL string
}

// Element is a single imperative media resource.
//
// Play may block until the runtime accepts or rejects playback and is always
// invoked off the session loop; implementations must be goroutine-safe.
// Listeners are invoked on the session loop in the order the runtime emitted
// the events.
type Element interface {
	Play(ctx context.Context) error
	Pause()
	Paused() bool
	Muted() bool
	SetMuted(muted bool)
	// Duration is zero while unknown.
	Duration() float64
	CurrentTime() float64
	SetCurrentTime(seconds float64)
	Listen(fn func(Event)) (cancel func())
	Close() error
}

// Factory creates elements for mounted items.
type Factory interface {
	Open(src Source) Element
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(src Source) Element

func (f FactoryFunc) Open(src Source) Element { return f(src) }
