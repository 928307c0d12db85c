// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Loop driven by the caller with virtual time.
// Posted tasks run only inside RunUntilIdle or Advance, on the calling
// goroutine. Go work still runs on its own goroutine; RunUntilIdle waits
// for it to post its continuation.
type Manual struct {
	mu       sync.Mutex
	now      time.Time
	queue    []func()
	timers   []*manualTimer
	seq      uint64
	inflight sync.WaitGroup
	notify   chan struct{}
}

// NewManual returns a manual loop whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, notify: make(chan struct{}, 1)}
}

// Post implements Loop.
func (m *Manual) Post(fn func()) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// AfterFunc implements Loop.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, when: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Go implements Loop.
func (m *Manual) Go(work func() func()) {
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		if cont := work(); cont != nil {
			m.Post(cont)
		}
	}()
}

// Now implements Loop.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// RunUntilIdle runs queued tasks, waiting for in-flight Go work, until the
// queue is empty. Timers do not fire.
func (m *Manual) RunUntilIdle() {
	for {
		m.inflight.Wait()
		fn, ok := m.pop()
		if !ok {
			return
		}
		fn()
	}
}

// RunNext runs one queued task without waiting for other Go work, blocking
// up to timeout for a task to be posted. It reports whether a task ran.
// Tests use it to apply continuations in a chosen order.
func (m *Manual) RunNext(timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if fn, ok := m.pop(); ok {
			fn()
			return true
		}
		select {
		case <-m.notify:
		case <-deadline.C:
			return false
		}
	}
}

// Advance moves the virtual clock forward by d, firing due timers in order
// and draining the queue after each.
func (m *Manual) Advance(d time.Duration) {
	m.RunUntilIdle()
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		t.fn()
		m.RunUntilIdle()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
	m.RunUntilIdle()
}

// PendingTimers reports the number of timers that have not fired or been stopped.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Manual) pop() (func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil, false
	}
	fn := m.queue[0]
	m.queue = m.queue[1:]
	return fn, true
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].when.Equal(m.timers[j].when) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].when.Before(m.timers[j].when)
	})
	t := m.timers[0]
	if t.when.After(target) {
		return nil
	}
	m.timers = m.timers[1:]
	if t.when.After(m.now) {
		m.now = t.when
	}
	return t
}

func (m *Manual) remove(t *manualTimer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.timers {
		if cur == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return true
		}
	}
	return false
}

type manualTimer struct {
	m    *Manual
	when time.Time
	seq  uint64
	fn   func()
}

func (t *manualTimer) Stop() bool { return t.m.remove(t) }

var _ Loop = (*Manual)(nil)
