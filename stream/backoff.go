package stream

import (
	"math/rand"
	"time"
)

const (
	// fastReconnectDelay applies after losing a connection that had been
	// successfully established: reconnect quickly, the feed was working.
	fastReconnectDelay = 2 * time.Second

	// Exponential lane for connections that never established.
	minReconnectDelay = 2 * time.Second
	maxReconnectDelay = 60 * time.Second

	// rateLimitDelay applies when the feed explicitly throttles us.
	rateLimitDelay = 60 * time.Second

	// jitterMax spreads reconnects so restarts do not synchronise.
	jitterMax = 500 * time.Millisecond
)

// Backoff selects the wait before the next connection attempt. Losing an
// established connection takes the fast lane; repeated failures to establish
// grow exponentially; an explicit rate limit overrides both.
type Backoff struct {
	failures int
}

// Next returns the wait before the next attempt. established reports whether
// the lost connection had authenticated and received data.
func (b *Backoff) Next(established, rateLimited bool) time.Duration {
	if rateLimited {
		b.failures++
		return rateLimitDelay + jitter()
	}
	if established {
		b.failures = 0
		return fastReconnectDelay + jitter()
	}
	d := minReconnectDelay << b.failures
	if d > maxReconnectDelay || d <= 0 {
		d = maxReconnectDelay
	}
	b.failures++
	return d + jitter()
}

// Reset clears the failure count after a successful connection.
func (b *Backoff) Reset() {
	b.failures = 0
}

func jitter() time.Duration {
	return time.Duration(rand.Int63n(int64(jitterMax)))
}
