package news

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/finsig/sentimentd/config"
)

const (
	// companyWorkWindow is the active part of each minute; the last seconds
	// rest so the per-minute request quota is never exhausted.
	companyWorkWindow = 50

	// companySymbolInterval is the minimum gap between queries for the same
	// symbol.
	companySymbolInterval = 40 * time.Second

	// companyQueryGap spaces consecutive queries inside the work window.
	companyQueryGap = 1500 * time.Millisecond

	// companyTopN keeps only the freshest articles per query.
	companyTopN = 3
)

const defaultCompanyNewsURL = "https://finnhub.io/api/v1"

// CompanyCollector rotates through the constituent watchlist querying
// per-symbol company news.
type CompanyCollector struct {
	sc        *sourceClient
	apiKey    string
	baseURL   string
	loc       *time.Location
	symbols   []string
	idx       int
	lastQuery map[string]time.Time
}

// NewCompanyCollector builds the watchlist rotation collector. An empty
// baseURL uses the hosted API; tests point it at a local server.
func NewCompanyCollector(apiKey, baseURL string, weights *config.Weights, loc *time.Location) *CompanyCollector {
	if baseURL == "" {
		baseURL = defaultCompanyNewsURL
	}
	return &CompanyCollector{
		sc:        newSourceClient(SourceCompany),
		apiKey:    apiKey,
		baseURL:   baseURL,
		loc:       loc,
		symbols:   weights.Watchlist(),
		lastQuery: make(map[string]time.Time),
	}
}

// Name returns the collector's source name
func (c *CompanyCollector) Name() string { return SourceCompany }

type companyNewsItem struct {
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Related  string `json:"related"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// Poll queries the next eligible watchlist symbol. Inside the rest window at
// the end of each minute it does nothing and wakes at the next minute.
func (c *CompanyCollector) Poll(ctx context.Context) ([]Article, time.Time, error) {
	now := time.Now()
	if now.Second() >= companyWorkWindow {
		nextMinute := now.Truncate(time.Minute).Add(time.Minute)
		return nil, nextMinute, nil
	}

	symbol, ok := c.nextSymbol(now)
	if !ok {
		return nil, now.Add(companyQueryGap), nil
	}

	day := now.In(c.loc).Format("2006-01-02")
	endpoint := fmt.Sprintf("%s/company-news?symbol=%s&from=%s&to=%s&token=%s",
		c.baseURL, url.QueryEscape(symbol), day, day, url.QueryEscape(c.apiKey))

	var items []companyNewsItem
	if err := c.sc.getJSON(ctx, endpoint, &items); err != nil {
		return nil, now.Add(companyQueryGap), err
	}

	articles := make([]Article, 0, companyTopN)
	for _, item := range items {
		if len(articles) >= companyTopN {
			break
		}
		if item.Headline == "" || item.URL == "" {
			continue
		}
		published := time.Unix(item.Datetime, 0)
		if !publishedToday(published, now, c.loc) {
			continue
		}
		articles = append(articles, Article{
			Hash:        ArticleHash(SourceCompany, item.URL, item.Headline),
			Source:      SourceCompany,
			Symbol:      symbol,
			Headline:    item.Headline,
			Summary:     item.Summary,
			URL:         item.URL,
			PublishTime: published,
			FetchedAt:   now,
		})
	}
	return articles, now.Add(companyQueryGap), nil
}

// nextSymbol advances the rotation to the first symbol whose last query is
// older than the per-symbol interval.
func (c *CompanyCollector) nextSymbol(now time.Time) (string, bool) {
	for range c.symbols {
		symbol := c.symbols[c.idx]
		c.idx = (c.idx + 1) % len(c.symbols)
		if now.Sub(c.lastQuery[symbol]) >= companySymbolInterval {
			c.lastQuery[symbol] = now
			return symbol, true
		}
	}
	return "", false
}
