// Package candle serves the stored 100-tick candles.
package candle

import (
	"gorm.io/gorm"

	"github.com/finsig/sentimentd/aggregator"
)

// Service provides read access to tick candles
type Service struct {
	repo   *aggregator.Repository
	symbol string
}

// NewService creates a new candle service
func NewService(db *gorm.DB, symbol string) *Service {
	return &Service{repo: aggregator.NewRepository(db), symbol: symbol}
}

// GetRecentHundredTick returns the newest 100-tick candles.
func (s *Service) GetRecentHundredTick(limit int) ([]aggregator.TickCandle100, error) {
	return s.repo.GetRecent(s.symbol, limit)
}
