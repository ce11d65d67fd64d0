// Package markethours gates the pipeline on the US equity regular session.
package markethours

import (
	"context"
	"time"

	"github.com/finsig/sentimentd/shared/zaplogger"
)

const (
	openHour    = 9
	openMinute  = 30
	closeHour   = 16
	closeMinute = 0

	// maxSleepSlice bounds each wait so a cancelled context is observed
	// promptly even when the next open is days away.
	maxSleepSlice = 5 * time.Minute
)

// Clock answers market-session questions for the regular NYSE/NASDAQ session,
// Monday to Friday 09:30-16:00 America/New_York. With Skip set every instant
// counts as open, which is how backfills and tests run outside the session.
type Clock struct {
	loc  *time.Location
	Skip bool
}

// NewClock loads the exchange time zone. A missing tzdata entry fails closed:
// callers get an error instead of a clock that silently reports open.
func NewClock(skip bool) (*Clock, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, err
	}
	return &Clock{loc: loc, Skip: skip}, nil
}

// Location returns the exchange time zone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// IsOpen reports whether t falls inside the regular session.
func (c *Clock) IsOpen(t time.Time) bool {
	if c.Skip {
		return true
	}
	local := t.In(c.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= openHour*60+openMinute && minutes < closeHour*60+closeMinute
}

// NextOpenAfter returns the first session open at or after t.
func (c *Clock) NextOpenAfter(t time.Time) time.Time {
	local := t.In(c.loc)
	for d := 0; d < 8; d++ {
		day := local.AddDate(0, 0, d)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		open := time.Date(day.Year(), day.Month(), day.Day(), openHour, openMinute, 0, 0, c.loc)
		if !open.Before(local) {
			return open
		}
		if d == 0 && c.IsOpen(local) {
			return local
		}
	}
	// Unreachable: a week always contains a weekday.
	return local
}

// TodayClose returns the close of the session containing t. Only meaningful
// when IsOpen(t) is true.
func (c *Clock) TodayClose(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), closeHour, closeMinute, 0, 0, c.loc)
}

// BlockUntilOpen sleeps in bounded slices until the market opens or the
// context is cancelled. It returns nil once open and the context error when
// cancelled first.
func (c *Clock) BlockUntilOpen(ctx context.Context) error {
	if c.IsOpen(time.Now()) {
		return nil
	}
	next := c.NextOpenAfter(time.Now())
	zaplogger.Info("Market closed, waiting for next open", zaplogger.Fields{
		"next_open": next.Format(time.RFC3339),
	})
	for {
		now := time.Now()
		if c.IsOpen(now) {
			return nil
		}
		wait := c.NextOpenAfter(now).Sub(now)
		if wait > maxSleepSlice {
			wait = maxSleepSlice
		}
		if wait < time.Second {
			wait = time.Second
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
