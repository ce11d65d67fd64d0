// Package snapshot serves the stored sentiment snapshots and minute rows.
package snapshot

import (
	"time"

	"gorm.io/gorm"

	"github.com/finsig/sentimentd/sentiment"
)

// Service provides read access to sentiment state
type Service struct {
	repo   *sentiment.Repository
	symbol string
}

// NewService creates a new snapshot service
func NewService(db *gorm.DB, symbol string) *Service {
	return &Service{repo: sentiment.NewRepository(db), symbol: symbol}
}

// GetLatest returns the newest second snapshot.
func (s *Service) GetLatest() (*sentiment.SecondSnapshot, error) {
	return s.repo.LatestSnapshot(s.symbol)
}

// GetRecent returns snapshots from the window, newest first.
func (s *Service) GetRecent(window time.Duration, limit int) ([]sentiment.SecondSnapshot, error) {
	return s.repo.RecentSnapshots(s.symbol, window, limit)
}

// GetLatestMinuteRow returns the newest minute analysis row.
func (s *Service) GetLatestMinuteRow() (*sentiment.MinuteRow, error) {
	return s.repo.LatestMinuteRow(s.symbol)
}
