package aggregator

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the database operations for 100-tick candles
type Repository struct {
	DB *gorm.DB
}

// NewRepository creates a new tick-candle repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

// MaxCandleNumber returns the highest stored sequence number for the symbol,
// or 0 when none exist.
func (r *Repository) MaxCandleNumber(symbol string) (int64, error) {
	var max int64
	err := r.DB.Model(&TickCandle100{}).
		Where("symbol = ?", symbol).
		Select("COALESCE(MAX(candle_number), 0)").
		Scan(&max).Error
	return max, err
}

// Insert stores a completed 100-tick candle. A replayed sequence number
// upserts onto its existing row.
func (r *Repository) Insert(candle *TickCandle100) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}, {Name: "candle_number"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open", "high", "low", "close", "volume", "start_time", "end_time",
		}),
	}).Create(candle).Error
}

// GetRecent returns the newest 100-tick candles, highest sequence first.
func (r *Repository) GetRecent(symbol string, limit int) ([]TickCandle100, error) {
	var candles []TickCandle100
	err := r.DB.Where("symbol = ?", symbol).
		Order("candle_number desc").
		Limit(limit).
		Find(&candles).Error
	return candles, err
}
