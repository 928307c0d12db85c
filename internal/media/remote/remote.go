// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package remote implements media elements whose runtime lives in a remote
// renderer. Commands flow out through a send function; runtime events and
// play acknowledgements flow back in through the Factory.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/reelfeed/internal/media"
)

// DefaultPlayTimeout bounds how long Play waits for the renderer's verdict.
const DefaultPlayTimeout = 5 * time.Second

// ErrPlayTimeout is returned when the renderer never acknowledged a play.
var ErrPlayTimeout = errors.New("remote: play acknowledgement timed out")

// Op is a media command verb.
type Op string

const (
	OpOpen  Op = "open"
	OpPlay  Op = "play"
	OpPause Op = "pause"
	OpMute  Op = "mute"
	OpSeek  Op = "seek"
	OpClose Op = "close"
)

// Command instructs the renderer to act on one item's element.
type Command struct {
	ID        string   `json:"id"`
	ItemID    string   `json:"itemId"`
	Op        Op       `json:"op"`
	URL       string   `json:"url,omitempty"`
	PosterURL string   `json:"posterUrl,omitempty"`
	Muted     *bool    `json:"muted,omitempty"`
	Position  *float64 `json:"position,omitempty"`
}

type playResult struct {
	ok     bool
	reason string
}

// Factory opens remote elements for one renderer.
type Factory struct {
	send    func(Command)
	timeout time.Duration

	mu       sync.Mutex
	elements map[string]*Element
	waiters  map[string]chan playResult
}

// Option configures a Factory.
type Option func(*Factory)

// WithPlayTimeout overrides DefaultPlayTimeout.
func WithPlayTimeout(d time.Duration) Option {
	return func(f *Factory) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewFactory returns a factory that emits commands through send. send must
// be safe for concurrent use and must not block.
func NewFactory(send func(Command), opts ...Option) *Factory {
	f := &Factory{
		send:     send,
		timeout:  DefaultPlayTimeout,
		elements: make(map[string]*Element),
		waiters:  make(map[string]chan playResult),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open implements media.Factory.
func (f *Factory) Open(src media.Source) media.Element {
	el := &Element{f: f, src: src, paused: true, listeners: make(map[int]func(media.Event))}
	f.mu.Lock()
	f.elements[src.ItemID] = el
	f.mu.Unlock()
	f.emit(Command{ItemID: src.ItemID, Op: OpOpen, URL: src.URL, PosterURL: src.PosterURL})
	return el
}

// Dispatch delivers a runtime event to the open element of itemID. It must be
// called on the session loop. It reports whether an element was found.
func (f *Factory) Dispatch(itemID string, ev media.Event) bool {
	f.mu.Lock()
	el, ok := f.elements[itemID]
	f.mu.Unlock()
	if !ok {
		return false
	}
	el.dispatch(ev)
	return true
}

// ResolvePlay completes a pending Play with the renderer's verdict. It is
// safe to call from any goroutine and reports whether the command was
// still awaited.
func (f *Factory) ResolvePlay(commandID string, ok bool, reason string) bool {
	f.mu.Lock()
	ch, found := f.waiters[commandID]
	delete(f.waiters, commandID)
	f.mu.Unlock()
	if !found {
		return false
	}
	ch <- playResult{ok: ok, reason: reason}
	return true
}

// Len reports the number of open elements.
func (f *Factory) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.elements)
}

func (f *Factory) emit(cmd Command) string {
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if f.send != nil {
		f.send(cmd)
	}
	return cmd.ID
}

func (f *Factory) await(id string) chan playResult {
	ch := make(chan playResult, 1)
	f.mu.Lock()
	f.waiters[id] = ch
	f.mu.Unlock()
	return ch
}

func (f *Factory) forget(id string) {
	f.mu.Lock()
	delete(f.waiters, id)
	f.mu.Unlock()
}

func (f *Factory) release(el *Element) {
	f.mu.Lock()
	if cur, ok := f.elements[el.src.ItemID]; ok && cur == el {
		delete(f.elements, el.src.ItemID)
	}
	f.mu.Unlock()
}

// Element mirrors the renderer-side element state.
type Element struct {
	f   *Factory
	src media.Source

	mu        sync.Mutex
	paused    bool
	muted     bool
	duration  float64
	current   float64
	closed    bool
	listeners map[int]func(media.Event)
	nextID    int
}

func (e *Element) Play(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return media.ErrClosed
	}
	muted := e.muted
	e.mu.Unlock()

	id := uuid.NewString()
	ch := e.f.await(id)
	e.f.emit(Command{ID: id, ItemID: e.src.ItemID, Op: OpPlay, Muted: &muted})

	timer := time.NewTimer(e.f.timeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		if !res.ok {
			return fmt.Errorf("%w: %s", media.ErrPlaybackRejected, res.reason)
		}
		e.mu.Lock()
		e.paused = false
		e.mu.Unlock()
		return nil
	case <-ctx.Done():
		e.f.forget(id)
		return ctx.Err()
	case <-timer.C:
		e.f.forget(id)
		return ErrPlayTimeout
	}
}

func (e *Element) Pause() {
	e.mu.Lock()
	e.paused = true
	closed := e.closed
	e.mu.Unlock()
	if !closed {
		e.f.emit(Command{ItemID: e.src.ItemID, Op: OpPause})
	}
}

func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *Element) Muted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

func (e *Element) SetMuted(muted bool) {
	e.mu.Lock()
	e.muted = muted
	closed := e.closed
	e.mu.Unlock()
	if !closed {
		e.f.emit(Command{ItemID: e.src.ItemID, Op: OpMute, Muted: &muted})
	}
}

func (e *Element) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *Element) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Element) SetCurrentTime(seconds float64) {
	e.mu.Lock()
	e.current = seconds
	closed := e.closed
	e.mu.Unlock()
	if !closed {
		e.f.emit(Command{ItemID: e.src.ItemID, Op: OpSeek, Position: &seconds})
	}
}

func (e *Element) Listen(fn func(media.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

func (e *Element) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.paused = true
	e.mu.Unlock()

	e.f.release(e)
	e.f.emit(Command{ItemID: e.src.ItemID, Op: OpClose})
	return nil
}

func (e *Element) dispatch(ev media.Event) {
	e.mu.Lock()
	if ev.Duration > 0 {
		e.duration = ev.Duration
	}
	switch ev.Type {
	case media.EventTimeUpdate:
		e.current = ev.CurrentTime
	case media.EventPlaying:
		e.paused = false
	}
	fns := make([]func(media.Event), 0, len(e.listeners))
	for i := 0; i < e.nextID; i++ {
		if fn, ok := e.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

var (
	_ media.Factory = (*Factory)(nil)
	_ media.Element = (*Element)(nil)
)
