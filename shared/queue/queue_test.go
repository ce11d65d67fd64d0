package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryPut(t *testing.T) {
	ch := make(chan int, 2)
	assert.True(t, TryPut(ch, 1))
	assert.True(t, TryPut(ch, 2))
	assert.False(t, TryPut(ch, 3), "full channel must reject")
	assert.Equal(t, 2, len(ch))
}

func TestPollGetTimeout(t *testing.T) {
	ch := make(chan int, 1)
	_, ok := PollGet(context.Background(), ch, 10*time.Millisecond)
	assert.False(t, ok)

	ch <- 7
	v, ok := PollGet(context.Background(), ch, 10*time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestPollGetCancelled(t *testing.T) {
	ch := make(chan int)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := PollGet(ctx, ch, time.Second)
	assert.False(t, ok)
}

func TestImpactQueueDropOldest(t *testing.T) {
	q := NewImpactQueue(3)
	assert.False(t, q.Push(1))
	assert.False(t, q.Push(2))
	assert.False(t, q.Push(3))
	assert.True(t, q.Push(4), "push into a full queue must report an eviction")

	got := q.Drain()
	assert.Equal(t, []float64{2, 3, 4}, got, "oldest impact must be the one evicted")
	assert.Empty(t, q.Drain())
	assert.Equal(t, 0, q.Len())
}
