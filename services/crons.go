// Package services hosts the scheduled jobs and the snapshot bridge.
package services

import (
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/finsig/sentimentd/config"
	"github.com/finsig/sentimentd/news"
	"github.com/finsig/sentimentd/pipeline"
	"github.com/finsig/sentimentd/sentiment"
	"github.com/finsig/sentimentd/shared/zaplogger"
)

// Retention for the nightly cleanup.
const (
	articleRetention  = 7 * 24 * time.Hour
	snapshotRetention = 2 * 24 * time.Hour
)

// CronService manages the scheduled jobs
type CronService struct {
	c        *cron.Cron
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	analyzer *sentiment.Analyzer
	sentRepo *sentiment.Repository
	newsRepo *news.Repository
}

// NewCronService creates a new cron service
func NewCronService(cfg *config.Config, db *gorm.DB, p *pipeline.Pipeline) *CronService {
	sentRepo := sentiment.NewRepository(db)
	newsRepo := news.NewRepository(db)
	return &CronService{
		c:        cron.New(),
		cfg:      cfg,
		pipeline: p,
		analyzer: sentiment.NewAnalyzer(cfg.InstrumentSymbol, sentRepo, newsRepo, cfg.SnapshotFreshSeconds()),
		sentRepo: sentRepo,
		newsRepo: newsRepo,
	}
}

// Start registers and starts the scheduled jobs.
func (cs *CronService) Start() {
	if cs.cfg.MinuteAnalyzerEnabled() {
		cs.addScheduledJob("Minute analyzer", "@every 1m", cs.minuteAnalyzerJob)
	}
	cs.addScheduledJob("Dedup cache prune", "@every 1h", cs.dedupPruneJob)
	cs.addScheduledJob("Nightly cleanup", "CRON_TZ=America/New_York 0 2 * * *", cs.cleanupJob)
	cs.c.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (cs *CronService) Stop() {
	<-cs.c.Stop().Done()
}

// addScheduledJob adds a scheduled job to the cron scheduler
func (cs *CronService) addScheduledJob(name, spec string, job func()) {
	_, err := cs.c.AddFunc(spec, job)
	if err != nil {
		zaplogger.Error("Failed to schedule job", zaplogger.Fields{
			"job":   name,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info("Scheduled job", zaplogger.Fields{
		"job":  name,
		"spec": spec,
	})
}

func (cs *CronService) minuteAnalyzerJob() {
	if err := cs.analyzer.RunOnce(time.Now()); err != nil {
		zaplogger.Error("Minute analyzer run failed", zaplogger.Fields{
			"error": err.Error(),
		})
	}
}

func (cs *CronService) dedupPruneJob() {
	svc := cs.pipeline.NewsService()
	if svc == nil {
		return
	}
	removed := svc.Dedup().Prune()
	zaplogger.Info("Dedup cache pruned", zaplogger.Fields{
		"removed":   removed,
		"remaining": svc.Dedup().Len(),
	})
}

func (cs *CronService) cleanupJob() {
	now := time.Now()

	articles, err := cs.newsRepo.DeleteOlderThan(now.Add(-articleRetention))
	if err != nil {
		zaplogger.Error("Article cleanup failed", zaplogger.Fields{"error": err.Error()})
	}
	snapshots, err := cs.sentRepo.DeleteSnapshotsOlderThan(now.Add(-snapshotRetention))
	if err != nil {
		zaplogger.Error("Snapshot cleanup failed", zaplogger.Fields{"error": err.Error()})
	}
	zaplogger.Info("Nightly cleanup done", zaplogger.Fields{
		"articles_removed":  articles,
		"snapshots_removed": snapshots,
	})
}
