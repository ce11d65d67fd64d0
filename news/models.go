// Package news collects, deduplicates, scores and persists market news for
// the tracked instrument.
package news

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// Table name constants
const (
	ArticlesTableName = "articles"
)

// Source names carried on every article and log line.
const (
	SourceCompany = "company_news"
	SourceMarket  = "market_news"
	SourceRSS     = "rss_news"
)

// headlinePrefixLen bounds how much of the headline feeds the identity hash,
// so trailing edits by the publisher do not create duplicates.
const headlinePrefixLen = 50

// Article is one deduplicated news item. Hash is the primary key so a
// re-fetched article upserts onto its earlier row instead of duplicating.
type Article struct {
	Hash                 string    `gorm:"primaryKey;size:32" json:"hash"`
	Source               string    `gorm:"size:32;index" json:"source"`
	Symbol               string    `gorm:"size:16;index" json:"symbol"`
	Headline             string    `gorm:"size:500" json:"headline"`
	Summary              string    `gorm:"size:2000" json:"summary"`
	URL                  string    `gorm:"size:500" json:"url"`
	PublishTime          time.Time `gorm:"index" json:"publish_time"`
	FetchedAt            time.Time `json:"fetched_at"`
	Sentiment            float64   `json:"sentiment"`
	Impact               float64   `json:"impact"`
	WeightedContribution float64   `json:"weighted_contribution"`
	Analyzed             bool      `gorm:"default:false;index" json:"analyzed"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for Article
func (Article) TableName() string {
	return ArticlesTableName
}

// ArticleHash derives the stable identity digest for an article. Two fetches
// of the same story from the same source always produce the same hash.
func ArticleHash(source, url, headline string) string {
	prefix := headline
	if len(prefix) > headlinePrefixLen {
		prefix = prefix[:headlinePrefixLen]
	}
	sum := md5.Sum([]byte(source + "|" + url + "|" + prefix))
	return hex.EncodeToString(sum[:])
}
