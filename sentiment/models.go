// Package sentiment composes the per-second sentiment state and persists the
// dual-resolution rows (minute rows and second snapshots).
package sentiment

import (
	"time"

	"gorm.io/datatypes"
)

// Table name constants
const (
	MinuteRowsTableName      = "minute_rows"
	SecondSnapshotsTableName = "second_snapshots"
)

// MinuteRow is the minute-resolution analysis row. One row per instrument
// per minute, written by the minute analyzer.
type MinuteRow struct {
	ID               uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	InstrumentSymbol string         `gorm:"size:16;index:idx_minute_row,unique" json:"instrument_symbol"`
	MinuteTime       time.Time      `gorm:"index:idx_minute_row,unique" json:"minute_time"`
	NewsScore        float64        `json:"news_score"`
	RedditScore      float64        `json:"reddit_score"`
	TechnicalScore   float64        `json:"technical_score"`
	AnalystScore     float64        `json:"analyst_score"`
	CompositeScore   float64        `json:"composite_score"`
	Label            string         `gorm:"size:16" json:"label"`
	ArticleCount     int            `json:"article_count"`
	CachedCount      int            `json:"cached_count"`
	NewCount         int            `json:"new_count"`
	Price            float64        `json:"price"`
	Indicators       datatypes.JSON `json:"indicators"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// Sentiment labels derived from the composite score.
const (
	LabelBullish = "BULLISH"
	LabelBearish = "BEARISH"
	LabelNeutral = "NEUTRAL"
)

// SentimentLabel classifies a composite score.
func SentimentLabel(composite float64) string {
	switch {
	case composite >= 30:
		return LabelBullish
	case composite <= -30:
		return LabelBearish
	default:
		return LabelNeutral
	}
}

// TableName specifies the table name for MinuteRow
func (MinuteRow) TableName() string {
	return MinuteRowsTableName
}

// SecondSnapshot is the second-resolution sentiment row written by the
// composer. The (instrument, bucket) pair is unique so a retried write
// upserts instead of duplicating the second.
type SecondSnapshot struct {
	ID               uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	InstrumentSymbol string         `gorm:"size:16;index:idx_second_snapshot,unique" json:"instrument_symbol"`
	BucketSecond     int64          `gorm:"index:idx_second_snapshot,unique" json:"bucket_second"`
	NewsScore        float64        `json:"news_score"`
	RedditScore      float64        `json:"reddit_score"`
	TechnicalScore   float64        `json:"technical_score"`
	AnalystScore     float64        `json:"analyst_score"`
	CompositeScore   float64        `json:"composite_score"`
	Open             float64        `json:"open"`
	High             float64        `json:"high"`
	Low              float64        `json:"low"`
	Price            float64        `json:"price"`
	Volume           float64        `json:"volume"`
	TickCount        int            `json:"tick_count"`
	MicroMomentum    float64        `json:"micro_momentum"`
	Indicators       datatypes.JSON `json:"indicators"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for SecondSnapshot
func (SecondSnapshot) TableName() string {
	return SecondSnapshotsTableName
}
