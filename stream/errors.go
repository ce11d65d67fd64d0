// Package stream maintains the websocket connection to the trade-tick feed.
package stream

import "errors"

var (
	// ErrAuthenticationFailed means the feed rejected the API key. Retrying
	// cannot help; the owning component shuts down.
	ErrAuthenticationFailed = errors.New("stream authentication failed")

	// ErrRateLimited means the feed asked us to slow down.
	ErrRateLimited = errors.New("stream rate limited")

	// ErrStreamStalled means no tick arrived within the stall window while
	// the market was open.
	ErrStreamStalled = errors.New("stream stalled")
)
