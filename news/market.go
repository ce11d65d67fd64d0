package news

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/finsig/sentimentd/config"
)

const (
	// marketPollInterval is the gap between market-wide news polls.
	marketPollInterval = 5 * time.Second

	// marketLookback is the window requested when no article has been seen
	// yet this session.
	marketLookback = 15 * time.Minute
)

const defaultMarketNewsURL = "https://api.tiingo.com/tiingo"

// MarketCollector polls a market-wide news feed on a short interval.
type MarketCollector struct {
	sc       *sourceClient
	apiKey   string
	baseURL  string
	loc      *time.Location
	weights  *config.Weights
	lastSeen time.Time
}

// NewMarketCollector builds the market-wide poller. An empty baseURL uses
// the hosted API; tests point it at a local server.
func NewMarketCollector(apiKey, baseURL string, weights *config.Weights, loc *time.Location) *MarketCollector {
	if baseURL == "" {
		baseURL = defaultMarketNewsURL
	}
	return &MarketCollector{
		sc:      newSourceClient(SourceMarket),
		apiKey:  apiKey,
		baseURL: baseURL,
		loc:     loc,
		weights: weights,
	}
}

// Name returns the collector's source name
func (c *MarketCollector) Name() string { return SourceMarket }

type marketNewsItem struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Description   string   `json:"description"`
	PublishedDate string   `json:"publishedDate"`
	Tickers       []string `json:"tickers"`
}

// Poll fetches articles published since the last seen article, falling back
// to a fifteen-minute window on the first cycle.
func (c *MarketCollector) Poll(ctx context.Context) ([]Article, time.Time, error) {
	now := time.Now()
	since := c.lastSeen
	if since.IsZero() {
		since = now.Add(-marketLookback)
	}

	endpoint := fmt.Sprintf("%s/news?startDate=%s&sortBy=publishedDate&token=%s",
		c.baseURL, url.QueryEscape(since.UTC().Format(time.RFC3339)), url.QueryEscape(c.apiKey))

	var items []marketNewsItem
	if err := c.sc.getJSON(ctx, endpoint, &items); err != nil {
		return nil, now.Add(marketPollInterval), err
	}

	var articles []Article
	for _, item := range items {
		if item.Title == "" || item.URL == "" {
			continue
		}
		published, err := time.Parse(time.RFC3339, item.PublishedDate)
		if err != nil {
			continue
		}
		if !publishedToday(published, now, c.loc) {
			continue
		}
		if published.After(c.lastSeen) {
			c.lastSeen = published
		}
		articles = append(articles, Article{
			Hash:        ArticleHash(SourceMarket, item.URL, item.Title),
			Source:      SourceMarket,
			Symbol:      c.pickSymbol(item.Tickers),
			Headline:    item.Title,
			Summary:     item.Description,
			URL:         item.URL,
			PublishTime: published,
			FetchedAt:   now,
		})
	}
	return articles, now.Add(marketPollInterval), nil
}

// pickSymbol attributes the article to the heaviest referenced constituent.
// Articles with no recognised ticker stay in the market bucket.
func (c *MarketCollector) pickSymbol(tickers []string) string {
	best := ""
	bestWeight := 0.0
	for _, t := range tickers {
		if w, ok := c.weights.Constituents[t]; ok && w > bestWeight {
			best, bestWeight = t, w
		}
	}
	return best
}
