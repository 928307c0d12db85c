// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/reelfeed/internal/log"
	"github.com/ManuGH/reelfeed/internal/metrics"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// MemoryBus is an in-process pub/sub. Sends happen under the read lock so a
// concurrent Close never races a send on a closed channel.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*memSub
	buffer int
}

const dropLogEvery = 100

var dropCount atomic.Uint64

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]*memSub), buffer: DefaultBuffer}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs[topic] {
		if s.evicted.Load() {
			continue
		}
		select {
		case s.ch <- msg:
		case <-ctx.Done():
			reason := publishDropReason(ctx.Err())
			b.recordDrop(topic, reason)
			return fmt.Errorf("publish topic %q: %w", topic, ctx.Err())
		}
	}
	return nil
}

func (b *MemoryBus) TryPublish(topic string, msg Message) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	dropped := 0
	for _, s := range b.subs[topic] {
		if s.evicted.Load() {
			continue
		}
		select {
		case s.ch <- msg:
		default:
			dropped++
			b.recordDrop(topic, "full")
		}
	}
	return dropped
}

func (b *MemoryBus) PublishOrEvict(topic string, msg Message) int {
	var full []*memSub
	b.mu.RLock()
	for _, s := range b.subs[topic] {
		if s.evicted.Load() {
			continue
		}
		select {
		case s.ch <- msg:
		default:
			// Later publishes skip s until Close takes the write lock.
			s.evicted.Store(true)
			full = append(full, s)
			b.recordDrop(topic, "evicted")
		}
	}
	b.mu.RUnlock()

	for _, s := range full {
		_ = s.Close()
		log.L().Warn().
			Str("topic", topic).
			Str("kind", msg.Kind).
			Msg("memory bus evicted slow subscriber")
	}
	return len(full)
}

func (b *MemoryBus) Subscribe(_ context.Context, topic string) (Subscriber, error) {
	s := &memSub{b: b, topic: topic, ch: make(chan Message, b.buffer)}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()
	return s, nil
}

// Subscribers reports the number of subscribers of topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// topicClass strips the instance part of "class:id" topics so metric labels
// stay bounded.
func topicClass(topic string) string {
	if i := strings.IndexByte(topic, ':'); i >= 0 {
		return topic[:i]
	}
	return topic
}

func (b *MemoryBus) recordDrop(topic, reason string) {
	metrics.IncBusDropReason(topicClass(topic), reason)
	count := dropCount.Add(1)
	if count%dropLogEvery == 0 {
		log.L().Warn().
			Str("topic", topic).
			Str("reason", reason).
			Uint64("dropped", count).
			Msg("memory bus dropped messages")
	}
}

type memSub struct {
	b      *MemoryBus
	topic  string
	ch      chan Message
	closed  bool
	evicted atomic.Bool
}

func (s *memSub) C() <-chan Message { return s.ch }

func (s *memSub) Evicted() bool { return s.evicted.Load() }

func (s *memSub) Close() error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	lst := s.b.subs[s.topic]
	out := lst[:0]
	for _, c := range lst {
		if c != s {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		delete(s.b.subs, s.topic)
	} else {
		s.b.subs[s.topic] = out
	}
	close(s.ch)
	return nil
}

var _ Bus = (*MemoryBus)(nil)
