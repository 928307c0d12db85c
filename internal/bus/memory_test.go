// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/reelfeed/internal/metrics"
)

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func TestMemoryBus_FanOut(t *testing.T) {
	b := NewMemoryBus()
	a, err := b.Subscribe(context.Background(), "s1")
	require.NoError(t, err)
	c, err := b.Subscribe(context.Background(), "s1")
	require.NoError(t, err)
	other, err := b.Subscribe(context.Background(), "s2")
	require.NoError(t, err)

	msg := Message{Kind: KindSnapshot, Data: 1}
	require.NoError(t, b.Publish(context.Background(), "s1", msg))

	assert.Equal(t, msg, <-a.C())
	assert.Equal(t, msg, <-c.C())
	select {
	case <-other.C():
		t.Fatal("unexpected delivery to other topic")
	default:
	}
}

func TestMemoryBus_PublishTimeoutCountsDrop(t *testing.T) {
	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), "topic")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	for i := 0; i < cap(sub.C()); i++ {
		require.NoError(t, b.Publish(context.Background(), "topic", Message{Kind: KindCommand}))
	}
	before := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("topic", "timeout"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = b.Publish(ctx, "topic", Message{Kind: KindCommand})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	after := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("topic", "timeout"))
	assert.Greater(t, after, before)
}

func TestMemoryBus_TryPublishNeverBlocks(t *testing.T) {
	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), "full")
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	for i := 0; i < DefaultBuffer; i++ {
		require.Zero(t, b.TryPublish("full", Message{Kind: KindSnapshot}))
	}
	assert.Equal(t, 1, b.TryPublish("full", Message{Kind: KindSnapshot}))
}

func TestMemoryBus_PublishOrEvictClosesOnlyFullSubscriber(t *testing.T) {
	b := NewMemoryBus()
	slow, err := b.Subscribe(context.Background(), "session:a")
	require.NoError(t, err)
	before := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("session", "evicted"))

	for i := 0; i < DefaultBuffer; i++ {
		require.Zero(t, b.TryPublish("session:a", Message{Kind: KindSnapshot}))
	}
	fast, err := b.Subscribe(context.Background(), "session:a")
	require.NoError(t, err)
	defer func() { _ = fast.Close() }()

	cmd := Message{Kind: KindCommand, Data: "pause"}
	assert.Equal(t, 1, b.PublishOrEvict("session:a", cmd))
	assert.Equal(t, cmd, <-fast.C())
	assert.False(t, fast.Evicted())

	drained := 0
	for msg := range slow.C() {
		assert.Equal(t, KindSnapshot, msg.Kind)
		drained++
	}
	assert.Equal(t, DefaultBuffer, drained)
	assert.True(t, slow.Evicted())
	assert.Equal(t, 1, b.Subscribers("session:a"))
	assert.Zero(t, b.PublishOrEvict("session:a", cmd))

	after := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("session", "evicted"))
	assert.Equal(t, before+1, after)
}

func TestMemoryBus_PublishRejectsNilContext(t *testing.T) {
	b := NewMemoryBus()
	//nolint:staticcheck // nil context is the case under test
	err := b.Publish(nil, "topic", Message{})
	require.ErrorContains(t, err, "context is nil")
}

func TestMemoryBus_CloseIsIdempotentAndClosesChannel(t *testing.T) {
	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), "t")
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	_, open := <-sub.C()
	assert.False(t, open)
	assert.Zero(t, b.Subscribers("t"))
	assert.Zero(t, b.TryPublish("t", Message{}))
}

func TestTopicClass(t *testing.T) {
	assert.Equal(t, "session", topicClass("session:0b5c"))
	assert.Equal(t, "plain", topicClass("plain"))
}
