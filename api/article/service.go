// Package article serves the stored news articles.
package article

import (
	"time"

	"gorm.io/gorm"

	"github.com/finsig/sentimentd/news"
)

// Service provides read access to articles
type Service struct {
	repo *news.Repository
}

// NewService creates a new article service
func NewService(db *gorm.DB) *Service {
	return &Service{repo: news.NewRepository(db)}
}

// GetRecent returns articles fetched within the window, newest first.
func (s *Service) GetRecent(window time.Duration, limit int) ([]news.Article, error) {
	return s.repo.GetRecent(window, limit)
}
