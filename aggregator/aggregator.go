package aggregator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/finsig/sentimentd/metrics"
	"github.com/finsig/sentimentd/shared/zaplogger"
)

const (
	// flushInterval is how often buffered seconds are checked for
	// finalization.
	flushInterval = 100 * time.Millisecond

	// hundredTickSize is the tick count per rolling candle.
	hundredTickSize = 100

	// processedRetention keeps finalized-second markers long enough to
	// classify stragglers as late.
	processedRetention = 5 * time.Minute

	// pruneEvery prunes the processed set every N flush iterations.
	pruneEvery = 60

	// candleChanCap buffers finalized candles toward the composer. Sized to
	// ride out a slow composer second plus a reconnect-gap backlog.
	candleChanCap = 256

	// candlePutWait is how long flush blocks on a full channel before
	// dropping; the composer is the sole consumer and normally drains in
	// well under a second.
	candlePutWait = 2 * time.Second
)

// persistBackoffs are the waits between tick-candle write attempts.
var persistBackoffs = []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}

// secondAccum accumulates ticks for one wall-clock second.
type secondAccum struct {
	open, high, low, close float64
	volume                 float64
	count                  int
}

// CandleStore persists completed 100-tick candles.
type CandleStore interface {
	MaxCandleNumber(symbol string) (int64, error)
	Insert(candle *TickCandle100) error
}

// Aggregator buffers ticks by second under one lock, finalizes each second
// shortly after it closes, and cuts a 100-tick candle whenever the rolling
// tick list fills. A second is finalized exactly once; ticks for an already
// finalized second are dropped as late.
type Aggregator struct {
	symbol string
	store  CandleStore

	mu            sync.Mutex
	buffer        map[int64]*secondAccum
	processed     map[int64]time.Time
	lastFinalized int64
	ticks         []Tick
	candleNumber  int64
	iterations    int

	candles chan SecondCandle
}

// New creates an aggregator for the symbol, resuming the 100-tick sequence
// from the highest stored candle number.
func New(symbol string, store CandleStore) (*Aggregator, error) {
	maxSeq, err := store.MaxCandleNumber(symbol)
	if err != nil {
		return nil, err
	}
	if maxSeq > 0 {
		zaplogger.Info("Resuming 100-tick candle sequence", zaplogger.Fields{
			"symbol":         symbol,
			"last_candle_no": maxSeq,
		})
	}
	return &Aggregator{
		symbol:       symbol,
		store:        store,
		buffer:       make(map[int64]*secondAccum),
		processed:    make(map[int64]time.Time),
		candleNumber: maxSeq,
		ticks:        make([]Tick, 0, hundredTickSize*2),
		candles:      make(chan SecondCandle, candleChanCap),
	}, nil
}

// Candles is the stream of finalized one-second candles.
func (a *Aggregator) Candles() <-chan SecondCandle {
	return a.candles
}

// AddTick folds one tick into the current second's accumulator and the
// rolling 100-tick list. A tick for an already finalized second cannot
// reopen it, but it still joins the 100-tick list: tick candles count
// trades, not clocks.
func (a *Aggregator) AddTick(t Tick) {
	sec := t.Timestamp.Unix()

	a.mu.Lock()
	_, done := a.processed[sec]
	late := done || sec <= a.lastFinalized
	if !late {
		acc, ok := a.buffer[sec]
		if !ok {
			acc = &secondAccum{open: t.Price, high: t.Price, low: t.Price}
			a.buffer[sec] = acc
		}
		if t.Price > acc.high {
			acc.high = t.Price
		}
		if t.Price < acc.low {
			acc.low = t.Price
		}
		acc.close = t.Price
		acc.volume += t.Volume
		acc.count++
	}

	a.ticks = append(a.ticks, t)
	var completed *TickCandle100
	if len(a.ticks) >= hundredTickSize {
		completed = a.cutHundredLocked()
	}
	a.mu.Unlock()

	if late {
		metrics.TicksLate.Inc()
		zaplogger.Debug("Late tick, second already finalized", zaplogger.Fields{
			"symbol": t.Symbol,
			"second": sec,
		})
	} else {
		metrics.TicksReceived.Inc()
	}
	if completed != nil {
		go a.persistHundred(completed)
	}
}

// cutHundredLocked slices the oldest 100 ticks into a candle. Caller holds
// the lock.
func (a *Aggregator) cutHundredLocked() *TickCandle100 {
	window := a.ticks[:hundredTickSize]
	a.candleNumber++
	candle := &TickCandle100{
		Symbol:       a.symbol,
		CandleNumber: a.candleNumber,
		Open:         window[0].Price,
		High:         window[0].Price,
		Low:          window[0].Price,
		Close:        window[hundredTickSize-1].Price,
		StartTime:    window[0].Timestamp,
		EndTime:      window[hundredTickSize-1].Timestamp,
	}
	for _, t := range window {
		if t.Price > candle.High {
			candle.High = t.Price
		}
		if t.Price < candle.Low {
			candle.Low = t.Price
		}
		candle.Volume += t.Volume
	}
	a.ticks = append(a.ticks[:0], a.ticks[hundredTickSize:]...)
	return candle
}

// persistHundred writes a completed candle with bounded retries. The candle
// sequence keeps advancing even if this write ultimately fails; a gap in the
// stored sequence beats blocking the tick path.
func (a *Aggregator) persistHundred(candle *TickCandle100) {
	var err error
	for attempt := 0; attempt <= len(persistBackoffs); attempt++ {
		if err = a.store.Insert(candle); err == nil {
			metrics.HundredTickCandles.Inc()
			return
		}
		if attempt < len(persistBackoffs) {
			time.Sleep(persistBackoffs[attempt])
		}
	}
	zaplogger.Error("Failed to persist 100-tick candle", zaplogger.Fields{
		"symbol":    candle.Symbol,
		"candle_no": candle.CandleNumber,
		"error":     err.Error(),
	})
}

// Run drives the finalize loop until ctx ends, then flushes every buffered
// second.
func (a *Aggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.flush(time.Now().Unix() + 1)
			close(a.candles)
			return
		case <-ticker.C:
			a.flush(time.Now().Unix())
			a.iterations++
			if a.iterations%pruneEvery == 0 {
				a.pruneProcessed()
			}
		}
	}
}

// flush finalizes every buffered second strictly before nowSec and emits the
// candles in bucket-second order. After a stall or reconnect gap several
// seconds can be pending at once; map iteration order must not leak into the
// composer's decay arithmetic or closes history.
func (a *Aggregator) flush(nowSec int64) {
	a.mu.Lock()
	due := make([]int64, 0, len(a.buffer))
	for sec := range a.buffer {
		if sec < nowSec {
			due = append(due, sec)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i] < due[j] })

	finalized := make([]SecondCandle, 0, len(due))
	for _, sec := range due {
		acc := a.buffer[sec]
		finalized = append(finalized, SecondCandle{
			Symbol:       a.symbol,
			BucketSecond: sec,
			Open:         acc.open,
			High:         acc.high,
			Low:          acc.low,
			Close:        acc.close,
			Volume:       acc.volume,
			TickCount:    acc.count,
			FinalizedAt:  time.Now(),
		})
		a.processed[sec] = time.Now()
		if sec > a.lastFinalized {
			a.lastFinalized = sec
		}
		delete(a.buffer, sec)
	}
	a.mu.Unlock()

	for _, c := range finalized {
		metrics.CandlesFinalized.Inc()
		a.emit(c)
	}
}

// emit hands one finalized candle to the composer, waiting briefly when the
// channel is full before giving up on the second.
func (a *Aggregator) emit(c SecondCandle) {
	select {
	case a.candles <- c:
		return
	default:
	}
	select {
	case a.candles <- c:
	case <-time.After(candlePutWait):
		zaplogger.Warn("Candle channel full, dropping finalized second", zaplogger.Fields{
			"symbol": c.Symbol,
			"second": c.BucketSecond,
		})
	}
}

// pruneProcessed drops finalized-second markers older than the retention.
func (a *Aggregator) pruneProcessed() {
	cutoff := time.Now().Add(-processedRetention)
	a.mu.Lock()
	for sec, at := range a.processed {
		if at.Before(cutoff) {
			delete(a.processed, sec)
		}
	}
	a.mu.Unlock()
}
