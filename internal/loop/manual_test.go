// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualTimersFireInDeadlineOrder(t *testing.T) {
	m := NewManual(epoch)

	var order []string
	m.AfterFunc(300*time.Millisecond, func() { order = append(order, "c") })
	m.AfterFunc(100*time.Millisecond, func() { order = append(order, "a") })
	m.AfterFunc(200*time.Millisecond, func() { order = append(order, "b") })

	m.Advance(150 * time.Millisecond)
	assert.Equal(t, []string{"a"}, order)
	assert.Equal(t, epoch.Add(150*time.Millisecond), m.Now())

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Zero(t, m.PendingTimers())
}

func TestManualTimerSeesItsOwnDeadlineAsNow(t *testing.T) {
	m := NewManual(epoch)

	var seen time.Time
	m.AfterFunc(300*time.Millisecond, func() { seen = m.Now() })
	m.Advance(time.Second)

	assert.Equal(t, epoch.Add(300*time.Millisecond), seen)
}

func TestManualStoppedTimerNeverFires(t *testing.T) {
	m := NewManual(epoch)

	fired := false
	timer := m.AfterFunc(10*time.Millisecond, func() { fired = true })
	assert.True(t, timer.Stop())
	m.Advance(time.Second)
	assert.False(t, fired)
}

func TestManualRunUntilIdleWaitsForGoWork(t *testing.T) {
	m := NewManual(epoch)

	var steps []string
	m.Post(func() {
		steps = append(steps, "task")
		m.Go(func() func() {
			time.Sleep(5 * time.Millisecond)
			return func() { steps = append(steps, "continuation") }
		})
	})
	m.RunUntilIdle()

	assert.Equal(t, []string{"task", "continuation"}, steps)
}

func TestManual_RunNextAppliesContinuationsInArrivalOrder(t *testing.T) {
	m := NewManual(epoch)
	gateA, gateB := make(chan struct{}), make(chan struct{})
	var order []string

	m.Go(func() func() {
		<-gateA
		return func() { order = append(order, "a") }
	})
	m.Go(func() func() {
		<-gateB
		return func() { order = append(order, "b") }
	})

	close(gateB)
	require.True(t, m.RunNext(time.Second))
	close(gateA)
	require.True(t, m.RunNext(time.Second))
	m.RunUntilIdle()

	assert.Equal(t, []string{"b", "a"}, order)
	assert.False(t, m.RunNext(10*time.Millisecond))
}
