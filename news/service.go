package news

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/finsig/sentimentd/config"
	"github.com/finsig/sentimentd/metrics"
	"github.com/finsig/sentimentd/shared/queue"
	"github.com/finsig/sentimentd/shared/zaplogger"
)

const (
	// toScoreCap bounds the unscored backlog per source; news older than the
	// backlog has already lost its trading value.
	toScoreCap = 100

	// toSaveCap bounds scored articles awaiting a durable write, per source.
	toSaveCap = 500
)

// articleUpserter is the save worker's view of the article store.
type articleUpserter interface {
	Upsert(a *Article) error
}

// sourceLine is one collector's private pipeline: its scoring queue, its
// save queue, and the worker pair that owns them. Sources never share
// queues, so a backed-up feed cannot starve the others.
type sourceLine struct {
	source    string
	collector Collector
	toScore   chan Article
	toSave    chan saveJob
}

func newSourceLine(c Collector) *sourceLine {
	return &sourceLine{
		source:    c.Name(),
		collector: c,
		toScore:   make(chan Article, toScoreCap),
		toSave:    make(chan saveJob, toSaveCap),
	}
}

// Service owns the collect, score and save stages of the news pipeline, one
// line per source. Scored impacts are handed to the composer through the
// impact queue before the durable save is even enqueued, so sentiment reacts
// ahead of the disk.
type Service struct {
	cfg     *config.Config
	weights *config.Weights
	repo    *Repository
	store   articleUpserter
	dedup   *Dedup
	scorer  Scorer
	impacts *queue.ImpactQueue
	loc     *time.Location

	lines []*sourceLine

	wg sync.WaitGroup
}

// NewService wires the news stages. scorer may be nil, which disables the
// whole stage (useful when no provider key is configured).
func NewService(cfg *config.Config, weights *config.Weights, db *gorm.DB, scorer Scorer, impacts *queue.ImpactQueue, loc *time.Location) *Service {
	repo := NewRepository(db)
	return &Service{
		cfg:     cfg,
		weights: weights,
		repo:    repo,
		store:   repo,
		dedup:   NewDedup(),
		scorer:  scorer,
		impacts: impacts,
		loc:     loc,
	}
}

// Dedup exposes the seen-article cache for the cron pruner.
func (s *Service) Dedup() *Dedup { return s.dedup }

// Repository exposes the articles repository for the read API and analyzer.
func (s *Service) Repository() *Repository { return s.repo }

// AddCollector registers a collector with its own queue pair and worker
// pair.
func (s *Service) AddCollector(c Collector) {
	s.lines = append(s.lines, newSourceLine(c))
}

// SetupCollectors registers the collectors the configuration enables.
func (s *Service) SetupCollectors() {
	if s.cfg.CompanyNewsEnabled() && s.cfg.CompanyNewsAPIKey != "" {
		s.AddCollector(NewCompanyCollector(s.cfg.CompanyNewsAPIKey, "", s.weights, s.loc))
	}
	if s.cfg.MarketNewsEnabled() && s.cfg.MarketNewsAPIKey != "" {
		s.AddCollector(NewMarketCollector(s.cfg.MarketNewsAPIKey, "", s.weights, s.loc))
	}
	if s.cfg.RSSNewsEnabled() {
		feeds, err := LoadRSSFeeds(s.cfg.RSSFeedsConfigPath)
		if err != nil {
			zaplogger.Error("RSSNEWS feed config unreadable, collector disabled", zaplogger.Fields{
				"error": err.Error(),
			})
		} else {
			s.AddCollector(NewRSSCollector(feeds, s.loc))
		}
	}
}

// Start launches each source line: its collector, one scoring worker and one
// save worker. They stop when ctx is cancelled; Wait blocks until the save
// queues have drained. Without a scorer the whole news stage stays down:
// collecting articles nobody will score just churns the queues.
func (s *Service) Start(ctx context.Context) {
	if s.scorer == nil {
		zaplogger.Warn("No sentiment provider configured, news stage disabled")
		return
	}

	for _, line := range s.lines {
		line := line
		s.wg.Add(3)
		go func() {
			defer s.wg.Done()
			zaplogger.Info("News collector started", zaplogger.Fields{"source": line.source})
			runCollector(ctx, line.collector, func(articles []Article) {
				s.admit(line, articles)
			})
		}()
		go func() {
			defer s.wg.Done()
			s.runScorer(ctx, line)
		}()
		go func() {
			defer s.wg.Done()
			s.runSaver(ctx, line)
		}()
	}
}

// Wait blocks until every collector and worker has exited.
func (s *Service) Wait() {
	s.wg.Wait()
}

// admit deduplicates freshly fetched articles and enqueues them on the
// line's scoring queue.
func (s *Service) admit(line *sourceLine, articles []Article) {
	for i := range articles {
		a := articles[i]
		if !s.dedup.MarkIfNew(a.Hash) {
			continue
		}
		metrics.ArticlesFetched.WithLabelValues(a.Source).Inc()
		if !queue.TryPut(line.toScore, a) {
			// Unmark so the story is retried once the backlog clears.
			s.dedup.Unmark(a.Hash)
			zaplogger.Warn("NEWSSCORING QUEUE_FULL dropping article", zaplogger.Fields{
				"source":   a.Source,
				"headline": a.Headline,
			})
			continue
		}
		metrics.QueueDepth.WithLabelValues(line.source + "_to_score").Set(float64(len(line.toScore)))
	}
}
