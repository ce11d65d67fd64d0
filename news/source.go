package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/finsig/sentimentd/shared/zaplogger"
)

// fetchTimeout bounds every collector HTTP request. News freshness matters
// more than completeness; a slow source is skipped this cycle.
const fetchTimeout = 3 * time.Second

// Collector produces newly fetched articles for one source. Poll returns the
// articles found this cycle and the earliest time the next cycle may run.
type Collector interface {
	Name() string
	Poll(ctx context.Context) ([]Article, time.Time, error)
}

// sourceClient wraps the HTTP plumbing every collector shares: a short
// timeout and a per-source circuit breaker so a dead provider stops being
// hammered while the other sources keep flowing.
type sourceClient struct {
	name    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func newSourceClient(name string) *sourceClient {
	return &sourceClient{
		name:   name,
		client: &http.Client{Timeout: fetchTimeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				zaplogger.Warn("News source breaker state change", zaplogger.Fields{
					"source": name,
					"from":   from.String(),
					"to":     to.String(),
				})
			},
		}),
	}
}

// getJSON fetches url through the breaker and decodes the JSON body into
// target.
func (sc *sourceClient) getJSON(ctx context.Context, url string, target interface{}) error {
	body, err := sc.breaker.Execute(func() (interface{}, error) {
		return sc.get(ctx, url)
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(body.([]byte), target)
}

// getRaw fetches url through the breaker and returns the raw body.
func (sc *sourceClient) getRaw(ctx context.Context, url string) ([]byte, error) {
	body, err := sc.breaker.Execute(func() (interface{}, error) {
		return sc.get(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}

func (sc *sourceClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s returned status %d", sc.name, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

// runCollector drives one collector until the context ends, honouring the
// next-cycle time each Poll returns. Poll errors are logged and the cycle
// interval still applies, so a failing source backs off naturally.
func runCollector(ctx context.Context, c Collector, sink func([]Article)) {
	for {
		articles, next, err := c.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zaplogger.Warn("News poll failed", zaplogger.Fields{
				"source": c.Name(),
				"error":  err.Error(),
			})
		} else if len(articles) > 0 {
			sink(articles)
		}

		wait := time.Until(next)
		if wait < time.Second {
			wait = time.Second
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// publishedToday reports whether t falls on today's date in loc. Collectors
// only admit same-day news.
func publishedToday(t time.Time, now time.Time, loc *time.Location) bool {
	a := t.In(loc)
	b := now.In(loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
