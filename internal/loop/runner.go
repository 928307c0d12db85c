// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	xglog "github.com/ManuGH/reelfeed/internal/log"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by Call once the runner has stopped.
var ErrClosed = errors.New("loop: closed")

// Runner is the production Loop backed by a dedicated goroutine.
type Runner struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	closed atomic.Bool
	work   sync.WaitGroup
	logger zerolog.Logger
}

// NewRunner creates a runner. Run must be called to start processing.
func NewRunner() *Runner {
	return &Runner{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: xglog.WithComponent("loop"),
	}
}

// Run processes posted tasks until ctx is cancelled or Close is called.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return
		case <-r.done:
			return
		case <-r.wake:
		}
		for {
			batch := r.take()
			if len(batch) == 0 {
				break
			}
			for _, fn := range batch {
				r.runTask(fn)
			}
		}
	}
}

// Close stops the runner. Tasks still queued are dropped. Close waits for
// in-flight Go work so no goroutine outlives the loop.
func (r *Runner) Close() {
	r.shutdown()
	r.work.Wait()
}

// shutdown flips closed under mu so Go never adds work after Close has
// started waiting.
func (r *Runner) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.CompareAndSwap(false, true) {
		close(r.done)
	}
}

func (r *Runner) take() []func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch := r.queue
	r.queue = nil
	return batch
}

func (r *Runner) runTask(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str(xglog.FieldEvent, "loop.task_panic").
				Interface("panic", rec).
				Msg("loop task panicked")
		}
	}()
	fn()
}

// Post implements Loop.
func (r *Runner) Post(fn func()) {
	if fn == nil || r.closed.Load() {
		return
	}
	r.mu.Lock()
	r.queue = append(r.queue, fn)
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Call runs fn on the loop and waits for it to complete. It must not be
// invoked from the loop goroutine itself.
func (r *Runner) Call(ctx context.Context, fn func()) error {
	if r.closed.Load() {
		return ErrClosed
	}
	finished := make(chan struct{})
	r.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc implements Loop.
func (r *Runner) AfterFunc(d time.Duration, fn func()) Timer {
	t := &runnerTimer{}
	t.t = time.AfterFunc(d, func() {
		r.Post(func() {
			if t.stopped.CompareAndSwap(false, true) {
				fn()
			}
		})
	})
	return t
}

// Go implements Loop.
func (r *Runner) Go(work func() func()) {
	r.mu.Lock()
	if r.closed.Load() {
		r.mu.Unlock()
		return
	}
	r.work.Add(1)
	r.mu.Unlock()
	go func() {
		defer r.work.Done()
		if cont := work(); cont != nil {
			r.Post(cont)
		}
	}()
}

// Now implements Loop.
func (r *Runner) Now() time.Time { return time.Now() }

type runnerTimer struct {
	t       *time.Timer
	stopped atomic.Bool
}

func (t *runnerTimer) Stop() bool {
	t.t.Stop()
	return t.stopped.CompareAndSwap(false, true)
}

var _ Loop = (*Runner)(nil)
