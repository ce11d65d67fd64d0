package sentiment

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsig/sentimentd/news"
)

func TestAnalyzerAveragesContributions(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 5, 30, 0, time.UTC)
	store := &fakeStore{
		snapshot: &SecondSnapshot{
			InstrumentSymbol: "QLD",
			BucketSecond:     now.Add(-10 * time.Second).Unix(),
			NewsScore:        30.0,
			TechnicalScore:   50.0,
		},
		minute: &MinuteRow{
			InstrumentSymbol: "QLD",
			MinuteTime:       now.Add(-time.Minute).Truncate(time.Minute),
			RedditScore:      20.0,
			AnalystScore:     10.0,
			ArticleCount:     7,
		},
		articles: []news.Article{
			{Hash: "a1", WeightedContribution: 12.0},
			{Hash: "a2", WeightedContribution: -3.0},
			{Hash: "a3", WeightedContribution: 6.0},
		},
	}
	a := NewAnalyzer("QLD", store, store, 70)

	require.NoError(t, a.RunOnce(now))
	require.Len(t, store.rows, 1)
	row := store.rows[0]

	// Fresh snapshot: its news is the base with no extra decay, plus the
	// mean contribution of the batch.
	assert.InDelta(t, 30.0+5.0, row.NewsScore, 1e-9)
	assert.Equal(t, 50.0, row.TechnicalScore)
	assert.Equal(t, 20.0, row.RedditScore)
	assert.Equal(t, 10.0, row.AnalystScore)
	assert.Equal(t, 10, row.ArticleCount, "cached plus new")
	assert.Equal(t, 3, row.NewCount)
	assert.Equal(t, 7, row.CachedCount)
	assert.Equal(t, now.Truncate(time.Minute), row.MinuteTime)

	// 0.35*35 + 0.20*20 + 0.25*50 + 0.20*10 = 30.75, past the bullish line.
	assert.InDelta(t, 30.75, row.CompositeScore, 1e-9)
	assert.Equal(t, LabelBullish, row.Label)

	assert.ElementsMatch(t, []string{"a1", "a2", "a3"}, store.analyzed)

	// A live per-second loop means the minute base is also mirrored into a
	// snapshot at the analysis instant.
	require.Len(t, store.saved, 1)
	assert.Equal(t, now.Unix(), store.saved[0].BucketSecond)
	assert.InDelta(t, row.NewsScore, store.saved[0].NewsScore, 1e-9)
	assert.Equal(t, row.CompositeScore, store.saved[0].CompositeScore)
}

func TestAnalyzerClipsDelta(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 5, 0, 0, time.UTC)
	store := &fakeStore{
		articles: []news.Article{
			{Hash: "a1", WeightedContribution: 25.0},
			{Hash: "a2", WeightedContribution: 25.0},
		},
	}
	a := NewAnalyzer("QLD", store, store, 70)

	require.NoError(t, a.RunOnce(now))
	require.Len(t, store.rows, 1)
	// With no base, news equals the delta, itself capped like an impact.
	assert.LessOrEqual(t, store.rows[0].NewsScore, 25.0)
}

func TestAnalyzerDecaysStaleSnapshot(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 5, 0, 0, time.UTC)
	store := &fakeStore{
		snapshot: &SecondSnapshot{
			InstrumentSymbol: "QLD",
			BucketSecond:     now.Add(-100 * time.Second).Unix(),
			NewsScore:        30.0,
		},
	}
	a := NewAnalyzer("QLD", store, store, 70)

	require.NoError(t, a.RunOnce(now))
	require.Len(t, store.rows, 1)
	expected := 30.0 * math.Pow(1-decayRatePerSecond, 100)
	assert.InDelta(t, expected, store.rows[0].NewsScore, 1e-9)
	assert.Empty(t, store.saved, "stale snapshot means no mirror write")
}

func TestAnalyzerNoArticles(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 5, 0, 0, time.UTC)
	store := &fakeStore{}
	a := NewAnalyzer("QLD", store, store, 70)

	require.NoError(t, a.RunOnce(now))
	require.Len(t, store.rows, 1)
	assert.Zero(t, store.rows[0].NewsScore)
	assert.Zero(t, store.rows[0].ArticleCount)
	assert.Equal(t, LabelNeutral, store.rows[0].Label)
	assert.Empty(t, store.analyzed)
}

func TestSentimentLabel(t *testing.T) {
	assert.Equal(t, LabelBullish, SentimentLabel(30))
	assert.Equal(t, LabelBullish, SentimentLabel(72.5))
	assert.Equal(t, LabelBearish, SentimentLabel(-30))
	assert.Equal(t, LabelBearish, SentimentLabel(-99))
	assert.Equal(t, LabelNeutral, SentimentLabel(29.99))
	assert.Equal(t, LabelNeutral, SentimentLabel(-29.99))
	assert.Equal(t, LabelNeutral, SentimentLabel(0))
}
