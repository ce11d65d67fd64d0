package sentiment

import (
	"encoding/json"
	"math"
	"time"

	"gorm.io/datatypes"

	"github.com/finsig/sentimentd/news"
	"github.com/finsig/sentimentd/shared/zaplogger"
)

// analyzerBatchLimit bounds how many unanalyzed articles one minute pass
// folds in.
const analyzerBatchLimit = 500

// ArticleStore is what the analyzer needs from the article repository.
type ArticleStore interface {
	GetUnanalyzed(limit int) ([]news.Article, error)
	MarkAnalyzed(hashes []string) error
}

// Analyzer produces the minute-resolution analysis row. Each pass folds the
// weighted contributions of articles not yet analyzed into the news
// component and carries the remaining components forward.
type Analyzer struct {
	symbol       string
	repo         Store
	articles     ArticleStore
	freshSeconds int64
}

// NewAnalyzer creates a minute analyzer for the symbol.
func NewAnalyzer(symbol string, repo Store, articles ArticleStore, freshSeconds int) *Analyzer {
	return &Analyzer{
		symbol:       symbol,
		repo:         repo,
		articles:     articles,
		freshSeconds: int64(freshSeconds),
	}
}

// RunOnce executes one minute pass at the given instant.
func (a *Analyzer) RunOnce(now time.Time) error {
	minute := now.Truncate(time.Minute)

	batch, err := a.articles.GetUnanalyzed(analyzerBatchLimit)
	if err != nil {
		return err
	}

	snap, err := a.repo.LatestSnapshot(a.symbol)
	if err != nil {
		return err
	}
	prev, err := a.repo.LatestMinuteRow(a.symbol)
	if err != nil {
		return err
	}

	snapFresh := snap != nil && now.Unix()-snap.BucketSecond <= a.freshSeconds
	baseNews, technical, reddit, analyst := a.resolveBase(now, snap, prev)

	// The news delta is the average article contribution, bounded like a
	// single impact so one noisy minute cannot swing the base.
	var delta float64
	if len(batch) > 0 {
		var sum float64
		for _, art := range batch {
			sum += art.WeightedContribution
		}
		delta = sum / float64(len(batch))
		if delta > 25 {
			delta = 25
		}
		if delta < -25 {
			delta = -25
		}
	}

	newsScore := clip100(baseNews + delta)
	if math.Abs(newsScore) < newsZeroEpsilon {
		newsScore = 0
	}

	composite := clip100(weightNews*newsScore + weightReddit*reddit +
		weightTechnical*technical + weightAnalyst*analyst)

	indicators, _ := json.Marshal(map[string]interface{}{
		"article_delta": delta,
		"base_news":     baseNews,
	})

	// Articles folded into earlier rows keep contributing through the carried
	// base; the counts record both populations.
	cached := 0
	if prev != nil {
		cached = prev.ArticleCount
	}
	var price float64
	if snap != nil {
		price = snap.Price
	}

	row := &MinuteRow{
		InstrumentSymbol: a.symbol,
		MinuteTime:       minute,
		NewsScore:        newsScore,
		RedditScore:      reddit,
		TechnicalScore:   technical,
		AnalystScore:     analyst,
		CompositeScore:   composite,
		Label:            SentimentLabel(composite),
		ArticleCount:     cached + len(batch),
		CachedCount:      cached,
		NewCount:         len(batch),
		Price:            price,
		Indicators:       datatypes.JSON(indicators),
	}
	if err := a.repo.SaveMinuteRow(row); err != nil {
		return err
	}

	// While the per-second loop is live, mirror the re-based scores into a
	// snapshot so a composer restart resumes from the post-analysis base
	// instead of the pre-analysis one.
	if snapFresh {
		mirror := SecondSnapshot{
			InstrumentSymbol: a.symbol,
			BucketSecond:     now.Unix(),
			NewsScore:        newsScore,
			RedditScore:      reddit,
			TechnicalScore:   technical,
			AnalystScore:     analyst,
			CompositeScore:   composite,
			Price:            snap.Price,
			MicroMomentum:    snap.MicroMomentum,
			Indicators:       datatypes.JSON(indicators),
		}
		if err := a.repo.SaveSnapshot(&mirror); err != nil {
			zaplogger.Warn("Minute snapshot mirror failed", zaplogger.Fields{"error": err.Error()})
		}
	}

	hashes := make([]string, len(batch))
	for i, art := range batch {
		hashes[i] = art.Hash
	}
	if err := a.articles.MarkAnalyzed(hashes); err != nil {
		return err
	}

	zaplogger.Info("Minute analysis written", zaplogger.Fields{
		"symbol":    a.symbol,
		"minute":    minute.Format(time.RFC3339),
		"articles":  len(batch),
		"news":      newsScore,
		"composite": composite,
	})
	return nil
}

// resolveBase picks the component bases. A fresh snapshot already carries
// composer decay, so the analyzer must not decay it again; a stale base
// decays for the elapsed seconds instead.
func (a *Analyzer) resolveBase(now time.Time, snap *SecondSnapshot, prev *MinuteRow) (baseNews, technical, reddit, analyst float64) {
	if prev != nil {
		reddit = prev.RedditScore
		analyst = prev.AnalystScore
	}

	if snap != nil && now.Unix()-snap.BucketSecond <= a.freshSeconds {
		return snap.NewsScore, snap.TechnicalScore, reddit, analyst
	}

	if snap != nil {
		elapsed := now.Unix() - snap.BucketSecond
		baseNews = snap.NewsScore * math.Pow(1-decayRatePerSecond, float64(elapsed))
		return baseNews, snap.TechnicalScore, reddit, analyst
	}

	if prev != nil {
		elapsed := now.Unix() - prev.MinuteTime.Unix()
		if elapsed < 0 {
			elapsed = 0
		}
		baseNews = prev.NewsScore * math.Pow(1-decayRatePerSecond, float64(elapsed))
		return baseNews, prev.TechnicalScore, reddit, analyst
	}

	return 0, 0, reddit, analyst
}
