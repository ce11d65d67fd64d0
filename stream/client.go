package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/finsig/sentimentd/aggregator"
	"github.com/finsig/sentimentd/metrics"
	"github.com/finsig/sentimentd/shared/zaplogger"
)

const (
	// pingInterval and pongWait implement the keepalive: a ping every 15s
	// must be answered within 5s or the read deadline trips.
	pingInterval = 15 * time.Second
	pongWait     = 5 * time.Second

	// healthInterval and stallWindow detect a silent feed: connected but no
	// ticks for the stall window forces a reconnect.
	healthInterval = 5 * time.Second
	stallWindow    = 15 * time.Second

	writeWait = 5 * time.Second

	// msTimestampFloor: feed timestamps above this are epoch milliseconds.
	msTimestampFloor = 1e10
)

// Client maintains the tick feed connection for one symbol, reconnecting on
// every failure except authentication.
type Client struct {
	streamURL string
	apiKey    string
	symbol    string
	onTick    func(aggregator.Tick)

	backoff Backoff

	mu               sync.Mutex
	lastTick         time.Time
	disconnectLogged bool
}

// NewClient creates a tick stream client. onTick is called for every parsed
// trade, on the read goroutine.
func NewClient(streamURL, apiKey, symbol string, onTick func(aggregator.Tick)) *Client {
	return &Client{
		streamURL: streamURL,
		apiKey:    apiKey,
		symbol:    symbol,
		onTick:    onTick,
	}
}

// Run connects and serves until ctx ends, reconnecting per the backoff
// policy. It returns ErrAuthenticationFailed without retrying, since a bad
// key cannot heal.
func (c *Client) Run(ctx context.Context) error {
	for {
		established, err := c.connectAndServe(ctx)
		metrics.StreamConnected.Set(0)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == ErrAuthenticationFailed {
			zaplogger.Error("Tick stream authentication failed, not retrying", zaplogger.Fields{
				"symbol": c.symbol,
			})
			return err
		}

		c.logDisconnect(err)
		wait := c.backoff.Next(established, err == ErrRateLimited)
		metrics.StreamReconnects.Inc()
		zaplogger.Info("Tick stream reconnecting", zaplogger.Fields{
			"symbol": c.symbol,
			"wait":   wait.String(),
		})

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// connectAndServe runs one connection lifetime. The bool result reports
// whether the connection established (authorized and receiving).
func (c *Client) connectAndServe(ctx context.Context) (bool, error) {
	dialURL := c.streamURL + "?api_token=" + url.QueryEscape(c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		return false, fmt.Errorf("dial tick stream: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(subscribeFrame(c.symbol)); err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}

	c.mu.Lock()
	c.lastTick = time.Now()
	c.disconnectLogged = false
	c.mu.Unlock()

	conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		return nil
	})

	// The watchdog owns pings and the stall check; closing the conn unblocks
	// the read loop.
	watchdogDone := make(chan error, 1)
	watchdogCtx, cancelWatchdog := context.WithCancel(ctx)
	defer cancelWatchdog()
	go func() {
		watchdogDone <- c.watchdog(watchdogCtx, conn)
	}()

	established := false
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			select {
			case werr := <-watchdogDone:
				if werr != nil {
					return established, werr
				}
			default:
			}
			return established, err
		}

		var msg wsMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			zaplogger.Debug("Unparseable stream frame dropped", zaplogger.Fields{
				"error": err.Error(),
			})
			continue
		}

		if msg.StatusCode != nil {
			switch {
			case *msg.StatusCode == 200:
				if !established {
					established = true
					metrics.StreamConnected.Set(1)
					zaplogger.Info("Tick stream connected", zaplogger.Fields{
						"symbol": c.symbol,
					})
				}
			case *msg.StatusCode == 401 || *msg.StatusCode == 403:
				return established, ErrAuthenticationFailed
			case *msg.StatusCode == 429:
				return established, ErrRateLimited
			default:
				zaplogger.Warn("Tick stream status", zaplogger.Fields{
					"status":  *msg.StatusCode,
					"message": msg.Message,
				})
			}
			continue
		}

		if msg.S == "" || msg.P == 0 {
			continue
		}
		if !established {
			established = true
			metrics.StreamConnected.Set(1)
		}

		c.mu.Lock()
		c.lastTick = time.Now()
		c.mu.Unlock()

		c.onTick(aggregator.Tick{
			Symbol:    msg.S,
			Price:     msg.P,
			Volume:    msg.V,
			Timestamp: normalizeTimestamp(msg.T),
		})
	}
}

// watchdog sends pings and enforces the stall window. A detected stall
// closes the connection and reports ErrStreamStalled to the read loop.
func (c *Client) watchdog(ctx context.Context, conn *websocket.Conn) error {
	pingTicker := time.NewTicker(pingInterval)
	healthTicker := time.NewTicker(healthInterval)
	defer pingTicker.Stop()
	defer healthTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return nil
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				return err
			}
		case <-healthTicker.C:
			c.mu.Lock()
			stalled := time.Since(c.lastTick) > stallWindow
			c.mu.Unlock()
			if stalled {
				conn.Close()
				return ErrStreamStalled
			}
		}
	}
}

// logDisconnect emits exactly one consolidated disconnect line per
// connection lifetime, however many goroutines observe the failure.
func (c *Client) logDisconnect(err error) {
	if c.disconnectLoggedFast() {
		return
	}
	c.mu.Lock()
	if c.disconnectLogged {
		c.mu.Unlock()
		return
	}
	c.disconnectLogged = true
	c.mu.Unlock()

	reason := "connection closed"
	if err != nil {
		reason = err.Error()
	}
	zaplogger.Warn("Tick stream disconnected", zaplogger.Fields{
		"symbol": c.symbol,
		"reason": reason,
	})
}

func (c *Client) disconnectLoggedFast() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectLogged
}

// wsSubscribe is the feed's subscription frame. symbols is an array even for
// a single instrument.
type wsSubscribe struct {
	Action  string   `json:"action"`
	Symbols []string `json:"symbols"`
}

func subscribeFrame(symbol string) wsSubscribe {
	return wsSubscribe{Action: "subscribe", Symbols: []string{symbol}}
}

type wsMessage struct {
	StatusCode *int    `json:"status_code,omitempty"`
	Message    string  `json:"message,omitempty"`
	S          string  `json:"s"`
	P          float64 `json:"p"`
	V          float64 `json:"v"`
	T          int64   `json:"t"`
}

// normalizeTimestamp converts a feed timestamp (seconds or milliseconds) to
// time.Time, substituting now for a missing value.
func normalizeTimestamp(t int64) time.Time {
	if t == 0 {
		return time.Now()
	}
	if float64(t) > msTimestampFloor {
		return time.Unix(t/1000, (t%1000)*int64(time.Millisecond))
	}
	return time.Unix(t, 0)
}
