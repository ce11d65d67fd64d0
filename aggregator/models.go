// Package aggregator turns the raw trade tick stream into one-second candles
// and rolling 100-tick candles.
package aggregator

import (
	"time"
)

// Table name constants
const (
	TickCandlesTableName = "tick_candles_100"
)

// Tick is one trade from the price stream. Timestamp carries exchange time,
// already normalised to seconds precision by the stream client.
type Tick struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// SecondCandle is an OHLCV candle covering one wall-clock second. It is the
// aggregator's in-memory product and the composer's price input.
type SecondCandle struct {
	Symbol       string    `json:"symbol"`
	BucketSecond int64     `json:"bucket_second"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	Volume       float64   `json:"volume"`
	TickCount    int       `json:"tick_count"`
	FinalizedAt  time.Time `json:"finalized_at"`
}

// TickCandle100 is an OHLCV candle over exactly 100 consecutive ticks. The
// sequence number is monotonic per symbol and resumes from the stored
// maximum across restarts.
type TickCandle100 struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol       string    `gorm:"size:16;index:idx_tick_candle_seq,unique" json:"symbol"`
	CandleNumber int64     `gorm:"index:idx_tick_candle_seq,unique" json:"candle_number"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	Volume       float64   `json:"volume"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for TickCandle100
func (TickCandle100) TableName() string {
	return TickCandlesTableName
}
