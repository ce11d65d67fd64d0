package aggregator

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	maxSeq  int64
	candles []TickCandle100
}

func (f *fakeStore) MaxCandleNumber(symbol string) (int64, error) {
	return f.maxSeq, nil
}

func (f *fakeStore) Insert(candle *TickCandle100) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candles = append(f.candles, *candle)
	return nil
}

func (f *fakeStore) stored() []TickCandle100 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]TickCandle100, len(f.candles))
	copy(out, f.candles)
	return out
}

func tick(price, volume float64, at time.Time) Tick {
	return Tick{Symbol: "QLD", Price: price, Volume: volume, Timestamp: at}
}

func TestOneCandlePerSecond(t *testing.T) {
	a, err := New("QLD", &fakeStore{})
	require.NoError(t, err)

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	a.AddTick(tick(85.00, 10, base))
	a.AddTick(tick(85.50, 20, base.Add(200*time.Millisecond)))
	a.AddTick(tick(84.75, 5, base.Add(900*time.Millisecond)))
	a.AddTick(tick(86.00, 7, base.Add(time.Second)))

	a.flush(base.Unix() + 1)

	select {
	case c := <-a.Candles():
		assert.Equal(t, base.Unix(), c.BucketSecond)
		assert.Equal(t, 85.00, c.Open)
		assert.Equal(t, 85.50, c.High)
		assert.Equal(t, 84.75, c.Low)
		assert.Equal(t, 84.75, c.Close)
		assert.Equal(t, 35.0, c.Volume)
		assert.Equal(t, 3, c.TickCount)
	default:
		t.Fatal("expected a finalized candle")
	}

	// The next second is still buffered, not finalized.
	select {
	case c := <-a.Candles():
		t.Fatalf("unexpected second candle: %+v", c)
	default:
	}
}

func TestLateTickDropped(t *testing.T) {
	a, err := New("QLD", &fakeStore{})
	require.NoError(t, err)

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	a.AddTick(tick(85.00, 10, base))
	a.flush(base.Unix() + 1)
	<-a.Candles()

	// A straggler for the finalized second must not reopen it.
	a.AddTick(tick(99.99, 1, base.Add(500*time.Millisecond)))
	a.flush(base.Unix() + 2)

	select {
	case c := <-a.Candles():
		t.Fatalf("late tick produced a candle: %+v", c)
	default:
	}

	a.mu.Lock()
	assert.Len(t, a.ticks, 2, "late tick still joins the 100-tick list")
	a.mu.Unlock()
}

func TestFlushEmitsSecondsInOrder(t *testing.T) {
	a, err := New("QLD", &fakeStore{})
	require.NoError(t, err)

	// A reconnect gap leaves many seconds pending in one flush.
	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		a.AddTick(tick(85.0+float64(i), 1, base.Add(time.Duration(i)*time.Second)))
	}
	a.flush(base.Unix() + 10)

	for i := 0; i < 10; i++ {
		select {
		case c := <-a.Candles():
			assert.Equal(t, base.Unix()+int64(i), c.BucketSecond, "candles must arrive in bucket-second order")
		default:
			t.Fatalf("missing candle %d", i)
		}
	}
}

func TestEmitWaitsForSlowConsumer(t *testing.T) {
	a, err := New("QLD", &fakeStore{})
	require.NoError(t, err)

	for i := 0; i < candleChanCap; i++ {
		a.candles <- SecondCandle{BucketSecond: int64(i)}
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		<-a.Candles()
	}()

	// The channel is full, but one slot frees up within the put wait.
	done := make(chan struct{})
	go func() {
		a.emit(SecondCandle{BucketSecond: 9999})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(candlePutWait + time.Second):
		t.Fatal("emit did not complete")
	}

	var last SecondCandle
	for i := 0; i < candleChanCap; i++ {
		last = <-a.Candles()
	}
	assert.Equal(t, int64(9999), last.BucketSecond, "finalized second survives a briefly full channel")
}

func TestHundredTickCandle(t *testing.T) {
	store := &fakeStore{maxSeq: 41}
	a, err := New("QLD", store)
	require.NoError(t, err)

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		at := base.Add(time.Duration(i) * 50 * time.Millisecond)
		a.AddTick(tick(85.0+float64(i)*0.01, 1, at))
	}

	// Persistence is asynchronous.
	require.Eventually(t, func() bool {
		return len(store.stored()) == 1
	}, time.Second, 10*time.Millisecond)

	c := store.stored()[0]
	assert.Equal(t, int64(42), c.CandleNumber, "sequence resumes after the stored maximum")
	assert.Equal(t, 85.00, c.Open)
	assert.InDelta(t, 85.99, c.Close, 1e-9)
	assert.InDelta(t, 85.99, c.High, 1e-9)
	assert.Equal(t, 85.00, c.Low)
	assert.Equal(t, 100.0, c.Volume)
	assert.False(t, c.EndTime.Before(c.StartTime))

	a.mu.Lock()
	assert.Empty(t, a.ticks, "consumed ticks leave the rolling list")
	a.mu.Unlock()
}
