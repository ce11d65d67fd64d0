package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/finsig/sentimentd/shared/zaplogger"
)

// perFeedMinInterval is the minimum gap between fetches of the same feed.
const perFeedMinInterval = 60 * time.Second

// rssRotationGap spaces consecutive feed fetches in the rotation.
const rssRotationGap = 5 * time.Second

var defaultRSSFeeds = []RSSFeed{
	{Source: "cnbc_markets", URL: "https://www.cnbc.com/id/100003114/device/rss/rss.html"},
	{Source: "marketwatch_top", URL: "https://feeds.content.dowjones.io/public/rss/mw_topstories"},
	{Source: "yahoo_finance", URL: "https://finance.yahoo.com/news/rssindex"},
}

// RSSFeed is one configured feed. The file shape is
// {"feeds":[{"url": ..., "source": ...}]}; JSON is a YAML subset, so one
// decoder handles both spellings.
type RSSFeed struct {
	Source string `yaml:"source"`
	URL    string `yaml:"url"`
}

// LoadRSSFeeds reads the feed list from the configured file, or returns the
// built-in list when path is empty.
func LoadRSSFeeds(path string) ([]RSSFeed, error) {
	if path == "" {
		return defaultRSSFeeds, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read RSS feeds file: %w", err)
	}
	var cfg struct {
		Feeds []RSSFeed `yaml:"feeds"`
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse RSS feeds file: %w", err)
	}
	if len(cfg.Feeds) == 0 {
		return defaultRSSFeeds, nil
	}
	return cfg.Feeds, nil
}

// RSSCollector rotates through configured feeds, admitting only dated,
// same-day items.
type RSSCollector struct {
	sc        *sourceClient
	loc       *time.Location
	feeds     []RSSFeed
	idx       int
	lastFetch map[string]time.Time
}

// NewRSSCollector builds the feed rotation collector.
func NewRSSCollector(feeds []RSSFeed, loc *time.Location) *RSSCollector {
	return &RSSCollector{
		sc:        newSourceClient(SourceRSS),
		loc:       loc,
		feeds:     feeds,
		lastFetch: make(map[string]time.Time),
	}
}

// Name returns the collector's source name
func (c *RSSCollector) Name() string { return SourceRSS }

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// rssDateLayouts covers the pubDate formats seen in the wild.
var rssDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
}

// Poll fetches the next feed in the rotation whose min interval has elapsed.
func (c *RSSCollector) Poll(ctx context.Context) ([]Article, time.Time, error) {
	now := time.Now()
	feed, ok := c.nextFeed(now)
	if !ok {
		return nil, now.Add(rssRotationGap), nil
	}

	body, err := c.sc.getRaw(ctx, feed.URL)
	if err != nil {
		return nil, now.Add(rssRotationGap), err
	}

	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, now.Add(rssRotationGap), fmt.Errorf("parse feed %s: %w", feed.Source, err)
	}

	var articles []Article
	for _, item := range doc.Channel.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}
		published, ok := parseRSSDate(item.PubDate)
		if !ok {
			// An undated item cannot pass the same-day filter. Drop it
			// rather than guess its age.
			zaplogger.Debug("RSSNEWS dropping undated item", zaplogger.Fields{
				"feed":     feed.Source,
				"headline": item.Title,
			})
			continue
		}
		if !publishedToday(published, now, c.loc) {
			continue
		}
		articles = append(articles, Article{
			Hash:        ArticleHash(SourceRSS, item.Link, item.Title),
			Source:      SourceRSS,
			Headline:    item.Title,
			Summary:     item.Description,
			URL:         item.Link,
			PublishTime: published,
			FetchedAt:   now,
		})
	}
	return articles, now.Add(rssRotationGap), nil
}

func (c *RSSCollector) nextFeed(now time.Time) (RSSFeed, bool) {
	for range c.feeds {
		feed := c.feeds[c.idx]
		c.idx = (c.idx + 1) % len(c.feeds)
		if now.Sub(c.lastFetch[feed.URL]) >= perFeedMinInterval {
			c.lastFetch[feed.URL] = now
			return feed, true
		}
	}
	return RSSFeed{}, false
}

func parseRSSDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range rssDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
