package sentiment

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsig/sentimentd/aggregator"
	"github.com/finsig/sentimentd/news"
	"github.com/finsig/sentimentd/shared/queue"
)

type fakeStore struct {
	snapshot *SecondSnapshot
	minute   *MinuteRow
	saved    []SecondSnapshot
	rows     []MinuteRow
	articles []news.Article
	analyzed []string
}

func (f *fakeStore) LatestSnapshot(symbol string) (*SecondSnapshot, error) { return f.snapshot, nil }
func (f *fakeStore) LatestMinuteRow(symbol string) (*MinuteRow, error)    { return f.minute, nil }
func (f *fakeStore) SaveSnapshot(snap *SecondSnapshot) error {
	f.saved = append(f.saved, *snap)
	return nil
}
func (f *fakeStore) SaveMinuteRow(row *MinuteRow) error {
	f.rows = append(f.rows, *row)
	return nil
}
func (f *fakeStore) GetUnanalyzed(limit int) ([]news.Article, error) { return f.articles, nil }
func (f *fakeStore) MarkAnalyzed(hashes []string) error {
	f.analyzed = append(f.analyzed, hashes...)
	return nil
}

func baseMinuteRow(at time.Time) *MinuteRow {
	return &MinuteRow{
		InstrumentSymbol: "QLD",
		MinuteTime:       at,
		NewsScore:        40.0,
		RedditScore:      25.0,
		TechnicalScore:   55.0,
		AnalystScore:     30.0,
	}
}

func candleAt(sec int64, close float64) aggregator.SecondCandle {
	return aggregator.SecondCandle{
		Symbol:       "QLD",
		BucketSecond: sec,
		Open:         close,
		High:         close,
		Low:          close,
		Close:        close,
		Volume:       1,
		TickCount:    1,
	}
}

func TestSmoothDecay(t *testing.T) {
	start := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{minute: baseMinuteRow(start)}
	impacts := queue.NewImpactQueue(500)
	c := NewComposer("QLD", store, impacts, 70)

	var snaps []SecondSnapshot
	for i := 1; i <= 60; i++ {
		snaps = append(snaps, c.Compose(candleAt(start.Unix()+int64(i), 85.00)))
	}

	// News decays monotonically from the minute base and follows
	// N * (1-r)^elapsed.
	for i := 1; i < len(snaps); i++ {
		assert.Less(t, snaps[i].NewsScore, snaps[i-1].NewsScore)
	}
	expected60 := 40.0 * math.Pow(1-decayRatePerSecond, 60)
	assert.InDelta(t, expected60, snaps[59].NewsScore, 1e-6)

	// Constant price: micro-momentum stays zero once the window fills, so
	// technical settles at the blend of the base.
	last := snaps[59]
	assert.Zero(t, last.MicroMomentum)
	assert.InDelta(t, 0.8*55.0, last.TechnicalScore, 1e-9)

	// Composite follows the component weights.
	wantComposite := 0.35*last.NewsScore + 0.20*25.0 + 0.25*last.TechnicalScore + 0.20*30.0
	assert.InDelta(t, wantComposite, last.CompositeScore, 1e-9)

	assert.Len(t, store.saved, 60, "one snapshot per composed second")

	// The snapshot carries the second's candle: OHLC, volume and tick count.
	first := store.saved[0]
	assert.Equal(t, 85.00, first.Open)
	assert.Equal(t, 85.00, first.High)
	assert.Equal(t, 85.00, first.Low)
	assert.Equal(t, 85.00, first.Price)
	assert.Equal(t, 1.0, first.Volume)
	assert.Equal(t, 1, first.TickCount)
}

func TestBreakingNewsSpike(t *testing.T) {
	start := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{minute: baseMinuteRow(start)}
	impacts := queue.NewImpactQueue(500)
	c := NewComposer("QLD", store, impacts, 70)

	var newsBefore float64
	for i := 1; i <= 14; i++ {
		snap := c.Compose(candleAt(start.Unix()+int64(i), 85.00))
		newsBefore = snap.NewsScore
	}

	// A constituent article with sentiment +0.9 and weight 0.14.
	impact := 0.9 * 0.14 * 100
	require.InDelta(t, 12.6, impact, 1e-9)
	impacts.Push(impact)

	snap := c.Compose(candleAt(start.Unix()+15, 85.00))
	expected := newsBefore*(1-decayRatePerSecond) + impact
	assert.InDelta(t, expected, snap.NewsScore, 1e-9)
	assert.Greater(t, snap.NewsScore, newsBefore, "news jumps on the spike")

	// Decay resumes from the spiked level.
	next := c.Compose(candleAt(start.Unix()+16, 85.00))
	assert.InDelta(t, snap.NewsScore*(1-decayRatePerSecond), next.NewsScore, 1e-9)
}

func TestMicroMomentum(t *testing.T) {
	start := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{minute: baseMinuteRow(start)}
	c := NewComposer("QLD", store, queue.NewImpactQueue(10), 70)

	// Fewer than 30 candles: micro stays zero.
	for i := 1; i <= 29; i++ {
		snap := c.Compose(candleAt(start.Unix()+int64(i), 85.00))
		assert.Zero(t, snap.MicroMomentum)
	}

	// 30th candle closes 1% higher than the close 30 candles back.
	snap := c.Compose(candleAt(start.Unix()+30, 85.85))
	pct := (85.85 - 85.00) / 85.00 * 100
	assert.InDelta(t, pct*15, snap.MicroMomentum, 1e-9)
}

func TestMicroMomentumClipped(t *testing.T) {
	start := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{minute: baseMinuteRow(start)}
	c := NewComposer("QLD", store, queue.NewImpactQueue(10), 70)

	for i := 1; i <= 29; i++ {
		c.Compose(candleAt(start.Unix()+int64(i), 85.00))
	}
	// A 20% move would scale to 300; it must clip at 100.
	snap := c.Compose(candleAt(start.Unix()+30, 102.00))
	assert.Equal(t, 100.0, snap.MicroMomentum)
}

func TestTinyNewsResidueSnapsToZero(t *testing.T) {
	start := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	minute := baseMinuteRow(start)
	minute.NewsScore = 0.009
	store := &fakeStore{minute: minute}
	c := NewComposer("QLD", store, queue.NewImpactQueue(10), 70)

	snap := c.Compose(candleAt(start.Unix()+1, 85.00))
	assert.Zero(t, snap.NewsScore)
}

func TestComposerAdoptsMirrorSnapshot(t *testing.T) {
	start := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{minute: baseMinuteRow(start)}
	c := NewComposer("QLD", store, queue.NewImpactQueue(10), 70)

	for i := 1; i <= 5; i++ {
		c.Compose(candleAt(start.Unix()+int64(i), 85.00))
	}

	// The minute analyzer re-bases news to 80 and mirrors a snapshot one
	// second after the last composed one. The running state must yield.
	store.snapshot = &SecondSnapshot{
		InstrumentSymbol: "QLD",
		BucketSecond:     start.Unix() + 6,
		NewsScore:        80.0,
		TechnicalScore:   60.0,
	}

	snap := c.Compose(candleAt(start.Unix()+7, 85.00))
	expected := 80.0 * math.Pow(1-decayRatePerSecond, 1)
	assert.InDelta(t, expected, snap.NewsScore, 1e-9)
	assert.InDelta(t, 0.8*60.0, snap.TechnicalScore, 1e-9)

	// Decay continues from the adopted base, not the pre-mirror one.
	next := c.Compose(candleAt(start.Unix()+8, 85.00))
	assert.InDelta(t, snap.NewsScore*(1-decayRatePerSecond), next.NewsScore, 1e-9)
}

func TestRestartResumesFromFreshSnapshot(t *testing.T) {
	start := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{
		minute: baseMinuteRow(start),
		snapshot: &SecondSnapshot{
			InstrumentSymbol: "QLD",
			BucketSecond:     start.Unix() + 100,
			NewsScore:        33.0,
			TechnicalScore:   47.0,
		},
	}
	c := NewComposer("QLD", store, queue.NewImpactQueue(10), 70)

	// 10 seconds after the stored snapshot: snapshot is the base, decayed
	// for the gap.
	snap := c.Compose(candleAt(start.Unix()+110, 85.00))
	expected := 33.0 * math.Pow(1-decayRatePerSecond, 10)
	assert.InDelta(t, expected, snap.NewsScore, 1e-9)
	assert.InDelta(t, 0.8*47.0, snap.TechnicalScore, 1e-9)
}

func TestStaleSnapshotFallsBackToMinuteRow(t *testing.T) {
	start := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{
		minute: baseMinuteRow(start.Add(200 * time.Second)),
		snapshot: &SecondSnapshot{
			InstrumentSymbol: "QLD",
			BucketSecond:     start.Unix(),
			NewsScore:        33.0,
		},
	}
	c := NewComposer("QLD", store, queue.NewImpactQueue(10), 70)

	// The snapshot is 210s old, past the 70s freshness window; the minute
	// row becomes the base.
	snap := c.Compose(candleAt(start.Unix()+210, 85.00))
	expected := 40.0 * math.Pow(1-decayRatePerSecond, 10)
	assert.InDelta(t, expected, snap.NewsScore, 1e-9)
}
