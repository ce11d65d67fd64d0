// Package pipeline orchestrates the per-session components: it waits for the
// market to open, starts everything in dependency order, and drains the
// queues at the close.
package pipeline

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/finsig/sentimentd/aggregator"
	"github.com/finsig/sentimentd/config"
	"github.com/finsig/sentimentd/markethours"
	"github.com/finsig/sentimentd/news"
	"github.com/finsig/sentimentd/sentiment"
	"github.com/finsig/sentimentd/shared/queue"
	"github.com/finsig/sentimentd/shared/zaplogger"
	"github.com/finsig/sentimentd/stream"
)

// impactQueueCap bounds the scored-impacts queue between the scoring workers
// and the composer.
const impactQueueCap = 500

// Pipeline supervises the tick and news processing for one instrument across
// market sessions.
type Pipeline struct {
	cfg     *config.Config
	db      *gorm.DB
	weights *config.Weights
	clock   *markethours.Clock

	mu      sync.Mutex
	newsSvc *news.Service
}

// New creates the pipeline supervisor.
func New(cfg *config.Config, db *gorm.DB, weights *config.Weights, clock *markethours.Clock) *Pipeline {
	return &Pipeline{cfg: cfg, db: db, weights: weights, clock: clock}
}

// NewsService returns the currently running news service, or nil between
// sessions. The cron service uses it to prune the dedup cache.
func (p *Pipeline) NewsService() *news.Service {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.newsSvc
}

// Run supervises sessions until ctx ends: block until open, run a session
// until the close, drain, repeat.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		if err := p.clock.BlockUntilOpen(ctx); err != nil {
			return err
		}
		if err := p.runSession(ctx); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// runSession runs one market session end to end. It returns nil at the
// session close and the context error when the process is stopping.
func (p *Pipeline) runSession(ctx context.Context) error {
	symbol := p.cfg.InstrumentSymbol
	zaplogger.Info("Session starting", zaplogger.Fields{"symbol": symbol})

	var sessCtx context.Context
	var cancel context.CancelFunc
	if p.clock.Skip {
		sessCtx, cancel = context.WithCancel(ctx)
	} else {
		sessCtx, cancel = context.WithDeadline(ctx, p.clock.TodayClose(time.Now()))
	}
	defer cancel()

	agg, err := aggregator.New(symbol, aggregator.NewRepository(p.db))
	if err != nil {
		return err
	}

	impacts := queue.NewImpactQueue(impactQueueCap)

	scorer, err := news.NewScorer(p.cfg)
	if err != nil {
		zaplogger.Warn("Sentiment provider unavailable, news scoring disabled", zaplogger.Fields{
			"error": err.Error(),
		})
		scorer = nil
	}

	newsSvc := news.NewService(p.cfg, p.weights, p.db, scorer, impacts, p.clock.Location())
	newsSvc.SetupCollectors()
	p.mu.Lock()
	p.newsSvc = newsSvc
	p.mu.Unlock()

	composer := sentiment.NewComposer(symbol, sentiment.NewRepository(p.db), impacts, p.cfg.SnapshotFreshSeconds())

	var wg sync.WaitGroup

	// Start order: consumers before producers, so nothing emits into a
	// component that is not yet listening.
	wg.Add(1)
	go func() {
		defer wg.Done()
		composer.Run(sessCtx, agg.Candles())
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		agg.Run(sessCtx)
	}()

	newsSvc.Start(sessCtx)

	if p.cfg.TickStreamAPIKey != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := stream.NewClient(p.cfg.TickStreamURL, p.cfg.TickStreamAPIKey, symbol, agg.AddTick).Run(sessCtx)
			if err == stream.ErrAuthenticationFailed {
				zaplogger.Error("Tick stream disabled for this session")
			}
		}()
	} else {
		zaplogger.Warn("No tick stream API key configured, price stream disabled")
	}

	<-sessCtx.Done()
	zaplogger.Info("Session ending, draining queues", zaplogger.Fields{"symbol": symbol})

	wg.Wait()
	newsSvc.Wait()

	p.mu.Lock()
	p.newsSvc = nil
	p.mu.Unlock()

	zaplogger.Info("Session ended", zaplogger.Fields{"symbol": symbol})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}
