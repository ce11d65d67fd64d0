package markethours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClock(t *testing.T, skip bool) *Clock {
	t.Helper()
	c, err := NewClock(skip)
	require.NoError(t, err)
	return c
}

func nyTime(t *testing.T, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", value, loc)
	require.NoError(t, err)
	return ts
}

func TestIsOpen(t *testing.T) {
	c := mustClock(t, false)

	// Monday 2026-08-24
	assert.True(t, c.IsOpen(nyTime(t, "2026-08-24 09:30:00")), "open at the bell")
	assert.True(t, c.IsOpen(nyTime(t, "2026-08-24 12:00:00")))
	assert.True(t, c.IsOpen(nyTime(t, "2026-08-24 15:59:59")))
	assert.False(t, c.IsOpen(nyTime(t, "2026-08-24 16:00:00")), "closed at the close")
	assert.False(t, c.IsOpen(nyTime(t, "2026-08-24 09:29:59")))

	// Saturday / Sunday
	assert.False(t, c.IsOpen(nyTime(t, "2026-08-22 12:00:00")))
	assert.False(t, c.IsOpen(nyTime(t, "2026-08-23 12:00:00")))
}

func TestIsOpenSkip(t *testing.T) {
	c := mustClock(t, true)
	assert.True(t, c.IsOpen(nyTime(t, "2026-08-23 03:00:00")), "skip mode is always open")
}

func TestNextOpenAfter(t *testing.T) {
	c := mustClock(t, false)

	// Before the bell on a weekday: opens the same day.
	next := c.NextOpenAfter(nyTime(t, "2026-08-24 08:00:00"))
	assert.Equal(t, nyTime(t, "2026-08-24 09:30:00"), next)

	// After the close on Friday: opens Monday.
	next = c.NextOpenAfter(nyTime(t, "2026-08-21 17:00:00"))
	assert.Equal(t, nyTime(t, "2026-08-24 09:30:00"), next)

	// During the session: already open.
	during := nyTime(t, "2026-08-24 11:00:00")
	assert.Equal(t, during, c.NextOpenAfter(during))
}

func TestTodayClose(t *testing.T) {
	c := mustClock(t, false)
	sessionClose := c.TodayClose(nyTime(t, "2026-08-24 11:00:00"))
	assert.Equal(t, nyTime(t, "2026-08-24 16:00:00"), sessionClose)
}
