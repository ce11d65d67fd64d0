package sentiment

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finsig/sentimentd/shared/zaplogger"
)

// snapshotBackoffs are the waits between snapshot write attempts.
var snapshotBackoffs = []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}

// Repository is the dual-table persistence adapter. The composer writes
// second snapshots, the minute analyzer writes minute rows, and each side
// reads the other's latest row so per-second state survives minute
// boundaries.
type Repository struct {
	DB *gorm.DB
}

// NewRepository creates a new sentiment repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

// LatestSnapshot returns the most recent second snapshot for the symbol, or
// nil when none exists.
func (r *Repository) LatestSnapshot(symbol string) (*SecondSnapshot, error) {
	var snap SecondSnapshot
	err := r.DB.Where("instrument_symbol = ?", symbol).
		Order("bucket_second desc").
		First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// LatestMinuteRow returns the most recent minute row for the symbol, or nil
// when none exists.
func (r *Repository) LatestMinuteRow(symbol string) (*MinuteRow, error) {
	var row MinuteRow
	err := r.DB.Where("instrument_symbol = ?", symbol).
		Order("minute_time desc").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// SaveSnapshot upserts a second snapshot with bounded retries. The write is
// best effort: the composer's in-memory state is authoritative for the next
// second either way.
func (r *Repository) SaveSnapshot(snap *SecondSnapshot) error {
	var err error
	for attempt := 0; attempt <= len(snapshotBackoffs); attempt++ {
		err = r.DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "instrument_symbol"}, {Name: "bucket_second"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"news_score", "reddit_score", "technical_score", "analyst_score",
				"composite_score", "price", "micro_momentum", "indicators",
			}),
		}).Create(snap).Error
		if err == nil {
			return nil
		}
		if attempt < len(snapshotBackoffs) {
			time.Sleep(snapshotBackoffs[attempt])
		}
	}
	zaplogger.Error("Snapshot write failed after retries", zaplogger.Fields{
		"symbol": snap.InstrumentSymbol,
		"second": snap.BucketSecond,
		"error":  err.Error(),
	})
	return err
}

// SaveMinuteRow upserts the minute row for its (symbol, minute) key.
func (r *Repository) SaveMinuteRow(row *MinuteRow) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "instrument_symbol"}, {Name: "minute_time"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"news_score", "reddit_score", "technical_score", "analyst_score",
			"composite_score", "article_count", "indicators", "updated_at",
		}),
	}).Create(row).Error
}

// RecentSnapshots returns snapshots from the window, newest first.
func (r *Repository) RecentSnapshots(symbol string, window time.Duration, limit int) ([]SecondSnapshot, error) {
	var snaps []SecondSnapshot
	cutoff := time.Now().Add(-window).Unix()
	err := r.DB.Where("instrument_symbol = ? AND bucket_second >= ?", symbol, cutoff).
		Order("bucket_second desc").
		Limit(limit).
		Find(&snaps).Error
	return snaps, err
}

// DeleteSnapshotsOlderThan removes snapshots before the cutoff. Returns the
// number of rows removed.
func (r *Repository) DeleteSnapshotsOlderThan(cutoff time.Time) (int64, error) {
	result := r.DB.Where("bucket_second < ?", cutoff.Unix()).Delete(&SecondSnapshot{})
	return result.RowsAffected, result.Error
}
