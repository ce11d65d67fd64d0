package news

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the database operations for articles
type Repository struct {
	DB *gorm.DB
}

// NewRepository creates a new articles repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

// Upsert inserts the article or updates the existing row with the same hash.
func (r *Repository) Upsert(article *Article) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "hash"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"headline", "summary", "url", "publish_time", "fetched_at",
			"sentiment", "impact", "weighted_contribution", "updated_at",
		}),
	}).Create(article).Error
}

// GetUnanalyzed returns scored articles not yet folded into a minute row,
// oldest first.
func (r *Repository) GetUnanalyzed(limit int) ([]Article, error) {
	var articles []Article
	err := r.DB.Where("analyzed = ?", false).
		Order("publish_time asc").
		Limit(limit).
		Find(&articles).Error
	return articles, err
}

// MarkAnalyzed flags the given hashes as folded into minute analysis.
func (r *Repository) MarkAnalyzed(hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}
	return r.DB.Model(&Article{}).
		Where("hash IN ?", hashes).
		Update("analyzed", true).Error
}

// GetRecent returns articles fetched within the window, newest first.
func (r *Repository) GetRecent(window time.Duration, limit int) ([]Article, error) {
	var articles []Article
	err := r.DB.Where("fetched_at >= ?", time.Now().Add(-window)).
		Order("publish_time desc").
		Limit(limit).
		Find(&articles).Error
	return articles, err
}

// DeleteOlderThan removes articles whose publish time predates the cutoff.
// Returns the number of rows removed.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.DB.Where("publish_time < ?", cutoff).Delete(&Article{})
	return result.RowsAffected, result.Error
}
