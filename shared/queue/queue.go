// Package queue provides the bounded queues used as concurrency boundaries
// between the pipeline workers. Queues never block their producers: puts are
// try-puts and gets use a short poll timeout so workers can observe shutdown.
package queue

import (
	"context"
	"time"
)

// TryPut attempts a non-blocking send. It reports whether the value was
// accepted; a full queue rejects the value.
func TryPut[T any](ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	default:
		return false
	}
}

// PollGet receives one value, waiting at most timeout. The bool result is
// false when the timeout elapsed or the context was cancelled first.
func PollGet[T any](ctx context.Context, ch chan T, timeout time.Duration) (T, bool) {
	var zero T
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case v := <-ch:
		return v, true
	case <-t.C:
		return zero, false
	case <-ctx.Done():
		return zero, false
	}
}

// ImpactQueue holds scored article impacts until the composer drains them.
// When full, the oldest impact is discarded in favour of the newest so the
// queue tracks recent news rather than stale backlog.
type ImpactQueue struct {
	ch chan float64
}

// NewImpactQueue creates a queue with the given capacity.
func NewImpactQueue(capacity int) *ImpactQueue {
	return &ImpactQueue{ch: make(chan float64, capacity)}
}

// Push enqueues an impact, evicting the oldest entry if the queue is full.
// It reports whether an eviction happened.
func (q *ImpactQueue) Push(impact float64) bool {
	dropped := false
	for {
		select {
		case q.ch <- impact:
			return dropped
		default:
			select {
			case <-q.ch:
				dropped = true
			default:
			}
		}
	}
}

// Drain removes and returns every impact currently queued, without blocking.
func (q *ImpactQueue) Drain() []float64 {
	var impacts []float64
	for {
		select {
		case v := <-q.ch:
			impacts = append(impacts, v)
		default:
			return impacts
		}
	}
}

// Len returns the number of queued impacts.
func (q *ImpactQueue) Len() int {
	return len(q.ch)
}
