package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// stripJitter bounds-checks a delay against its base and the jitter ceiling.
func assertDelay(t *testing.T, got, base time.Duration) {
	t.Helper()
	assert.GreaterOrEqual(t, got, base)
	assert.Less(t, got, base+jitterMax)
}

func TestBackoffFastLane(t *testing.T) {
	var b Backoff
	// Losing an established connection always reconnects fast.
	assertDelay(t, b.Next(true, false), fastReconnectDelay)
	assertDelay(t, b.Next(true, false), fastReconnectDelay)
}

func TestBackoffExponentialLane(t *testing.T) {
	var b Backoff
	assertDelay(t, b.Next(false, false), 2*time.Second)
	assertDelay(t, b.Next(false, false), 4*time.Second)
	assertDelay(t, b.Next(false, false), 8*time.Second)
	assertDelay(t, b.Next(false, false), 16*time.Second)
	assertDelay(t, b.Next(false, false), 32*time.Second)
	assertDelay(t, b.Next(false, false), 60*time.Second)
	assertDelay(t, b.Next(false, false), 60*time.Second)
}

func TestBackoffResetAfterEstablished(t *testing.T) {
	var b Backoff
	b.Next(false, false)
	b.Next(false, false)
	// A clean session resets the exponential lane.
	assertDelay(t, b.Next(true, false), fastReconnectDelay)
	assertDelay(t, b.Next(false, false), 2*time.Second)
}

func TestBackoffRateLimitLane(t *testing.T) {
	var b Backoff
	assertDelay(t, b.Next(true, true), rateLimitDelay)
	assertDelay(t, b.Next(false, true), rateLimitDelay)
}

func TestNormalizeTimestamp(t *testing.T) {
	sec := int64(1756000000)
	assert.Equal(t, time.Unix(sec, 0), normalizeTimestamp(sec))

	ms := sec*1000 + 250
	assert.Equal(t, time.Unix(sec, 250*int64(time.Millisecond)), normalizeTimestamp(ms))

	assert.WithinDuration(t, time.Now(), normalizeTimestamp(0), time.Second)
}
