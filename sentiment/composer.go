package sentiment

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"gorm.io/datatypes"

	"github.com/finsig/sentimentd/aggregator"
	"github.com/finsig/sentimentd/metrics"
	"github.com/finsig/sentimentd/shared/queue"
	"github.com/finsig/sentimentd/shared/zaplogger"
)

const (
	// decayRatePerSecond compounds to the documented 3.83% news decay per
	// minute.
	decayRatePerSecond = 0.0383 / 60

	// newsZeroEpsilon snaps tiny residues to zero so decay terminates.
	newsZeroEpsilon = 0.01

	// momentumWindow is the candle lookback for micro-momentum.
	momentumWindow = 30

	// momentumScale converts a 30-second percentage move into score space.
	momentumScale = 15

	techBaseWeight  = 0.8
	techMicroWeight = 0.2

	// Component weights of the composite score.
	weightNews      = 0.35
	weightReddit    = 0.20
	weightTechnical = 0.25
	weightAnalyst   = 0.20

	// closesKeep bounds the retained close history.
	closesKeep = 120
)

// Store is what the composer and analyzer need from the dual-table adapter.
type Store interface {
	LatestSnapshot(symbol string) (*SecondSnapshot, error)
	LatestMinuteRow(symbol string) (*MinuteRow, error)
	SaveSnapshot(snap *SecondSnapshot) error
	SaveMinuteRow(row *MinuteRow) error
}

// Composer produces one sentiment snapshot per finalized second candle. It
// decays the news component, folds in freshly scored impacts, derives
// micro-momentum from recent closes and blends everything into the
// composite.
type Composer struct {
	symbol      string
	repo        Store
	impacts     *queue.ImpactQueue
	freshWindow time.Duration

	closes []float64

	// Running state: news carries the post-impact value so decay resumes
	// from it; techBase carries the unblended technical base so repeated
	// blending does not compound.
	haveState  bool
	news       float64
	techBase   float64
	baseSecond int64
}

// NewComposer creates a composer for the symbol. freshSeconds is the
// snapshot age under which cached news/technical survive as the base
// instead of re-reading the minute row.
func NewComposer(symbol string, repo Store, impacts *queue.ImpactQueue, freshSeconds int) *Composer {
	return &Composer{
		symbol:      symbol,
		repo:        repo,
		impacts:     impacts,
		freshWindow: time.Duration(freshSeconds) * time.Second,
	}
}

// Run consumes finalized second candles until the channel closes. On
// shutdown it keeps composing whatever the aggregator already finalized, so
// the last seconds of a session still get their snapshots.
func (c *Composer) Run(ctx context.Context, candles <-chan aggregator.SecondCandle) {
	zaplogger.Info("Sentiment composer started", zaplogger.Fields{"symbol": c.symbol})
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case candle, ok := <-candles:
					if !ok {
						return
					}
					c.Compose(candle)
				case <-time.After(time.Second):
					return
				}
			}
		case candle, ok := <-candles:
			if !ok {
				return
			}
			c.Compose(candle)
		}
	}
}

// Compose builds and persists the snapshot for one finalized second.
func (c *Composer) Compose(candle aggregator.SecondCandle) SecondSnapshot {
	bucket := candle.BucketSecond

	minuteRow, err := c.repo.LatestMinuteRow(c.symbol)
	if err != nil {
		zaplogger.Warn("Minute row read failed", zaplogger.Fields{"error": err.Error()})
	}

	baseNews, baseTech, baseSecond := c.loadBase(bucket, minuteRow)

	// Decay compounds per elapsed second since the base was established.
	elapsed := bucket - baseSecond
	if elapsed < 0 {
		elapsed = 0
	}
	news := baseNews * math.Pow(1-decayRatePerSecond, float64(elapsed))

	drained := c.impacts.Drain()
	for _, impact := range drained {
		news += impact
	}
	news = clip100(news)
	if math.Abs(news) < newsZeroEpsilon {
		news = 0
	}

	c.closes = append(c.closes, candle.Close)
	if len(c.closes) > closesKeep {
		c.closes = c.closes[len(c.closes)-closesKeep:]
	}
	micro := c.microMomentum()

	technical := techBaseWeight*baseTech + techMicroWeight*micro

	var reddit, analyst float64
	if minuteRow != nil {
		reddit = minuteRow.RedditScore
		analyst = minuteRow.AnalystScore
	}

	composite := clip100(weightNews*news + weightReddit*reddit +
		weightTechnical*technical + weightAnalyst*analyst)

	indicators, _ := json.Marshal(map[string]interface{}{
		"impacts_applied": len(drained),
		"base_news":       baseNews,
		"decay_elapsed":   elapsed,
	})

	snap := SecondSnapshot{
		InstrumentSymbol: c.symbol,
		BucketSecond:     bucket,
		NewsScore:        news,
		RedditScore:      reddit,
		TechnicalScore:   technical,
		AnalystScore:     analyst,
		CompositeScore:   composite,
		Open:             candle.Open,
		High:             candle.High,
		Low:              candle.Low,
		Price:            candle.Close,
		Volume:           candle.Volume,
		TickCount:        candle.TickCount,
		MicroMomentum:    micro,
		Indicators:       datatypes.JSON(indicators),
	}

	if err := c.repo.SaveSnapshot(&snap); err == nil {
		metrics.SnapshotsWritten.Inc()
	}
	metrics.CompositeScore.Set(composite)

	c.haveState = true
	c.news = news
	c.techBase = baseTech
	c.baseSecond = bucket

	return snap
}

// loadBase resolves the news/technical base for this second. The stored
// snapshot is consulted every second: the minute analyzer mirrors its
// re-based scores into a snapshot, and one newer than the running state must
// win or the minute re-base would never reach a live composer. Otherwise the
// running state holds while fresh, then a fresh stored snapshot (restart),
// then the minute row.
func (c *Composer) loadBase(bucket int64, minuteRow *MinuteRow) (baseNews, baseTech float64, baseSecond int64) {
	freshSecs := int64(c.freshWindow / time.Second)

	snap, err := c.repo.LatestSnapshot(c.symbol)
	if err != nil {
		zaplogger.Warn("Snapshot read failed", zaplogger.Fields{"error": err.Error()})
	}
	snapFresh := snap != nil && bucket-snap.BucketSecond <= freshSecs

	if c.haveState && bucket-c.baseSecond <= freshSecs {
		if snapFresh && snap.BucketSecond > c.baseSecond {
			return snap.NewsScore, snap.TechnicalScore, snap.BucketSecond
		}
		return c.news, c.techBase, c.baseSecond
	}

	if snapFresh {
		return snap.NewsScore, snap.TechnicalScore, snap.BucketSecond
	}

	if minuteRow != nil {
		return minuteRow.NewsScore, minuteRow.TechnicalScore, minuteRow.MinuteTime.Unix()
	}
	return 0, 0, bucket
}

// microMomentum computes the scaled 30-second price velocity. It needs a
// full lookback window of candles; with fewer it reports zero.
func (c *Composer) microMomentum() float64 {
	if len(c.closes) < momentumWindow {
		return 0
	}
	past := c.closes[len(c.closes)-momentumWindow]
	if past == 0 {
		return 0
	}
	now := c.closes[len(c.closes)-1]
	pct := (now - past) / past * 100
	return clip100(pct * momentumScale)
}

// clip100 clips a score into [-100, +100].
func clip100(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < -100 {
		return -100
	}
	return v
}
