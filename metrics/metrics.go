// Package metrics registers the Prometheus instruments for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TicksReceived counts raw trade ticks accepted from the stream.
	TicksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentimentd",
		Name:      "ticks_received_total",
		Help:      "Trade ticks accepted from the price stream.",
	})

	// TicksLate counts ticks dropped because their second already finalized.
	TicksLate = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentimentd",
		Name:      "ticks_late_total",
		Help:      "Ticks discarded for arriving after their second was finalized.",
	})

	// CandlesFinalized counts finalized one-second candles.
	CandlesFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentimentd",
		Name:      "candles_finalized_total",
		Help:      "One-second candles finalized by the aggregator.",
	})

	// HundredTickCandles counts completed 100-tick candles.
	HundredTickCandles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentimentd",
		Name:      "hundred_tick_candles_total",
		Help:      "Completed 100-tick candles.",
	})

	// ArticlesFetched counts deduplicated articles accepted per source.
	ArticlesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentimentd",
		Name:      "articles_fetched_total",
		Help:      "New articles accepted after deduplication, by source.",
	}, []string{"source"})

	// ArticlesScored counts scoring outcomes by result.
	ArticlesScored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentimentd",
		Name:      "articles_scored_total",
		Help:      "Scoring attempts by outcome (scored, undefined, error).",
	}, []string{"outcome"})

	// ArticlesSaved counts durable save outcomes.
	ArticlesSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sentimentd",
		Name:      "articles_saved_total",
		Help:      "Article save attempts by outcome (success, failed, deadline_exceeded).",
	}, []string{"outcome"})

	// ImpactsDropped counts impacts evicted from a full impact queue.
	ImpactsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentimentd",
		Name:      "impacts_dropped_total",
		Help:      "Scored impacts evicted because the impact queue was full.",
	})

	// QueueDepth reports the current depth of each bounded queue.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sentimentd",
		Name:      "queue_depth",
		Help:      "Current depth of a bounded pipeline queue.",
	}, []string{"queue"})

	// StreamReconnects counts websocket reconnect attempts.
	StreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentimentd",
		Name:      "stream_reconnects_total",
		Help:      "Reconnect attempts made by the price stream client.",
	})

	// StreamConnected reports 1 while the price stream is connected.
	StreamConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sentimentd",
		Name:      "stream_connected",
		Help:      "1 while the price stream websocket is connected.",
	})

	// SnapshotsWritten counts per-second sentiment snapshots persisted.
	SnapshotsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sentimentd",
		Name:      "snapshots_written_total",
		Help:      "Per-second sentiment snapshots written.",
	})

	// CompositeScore reports the latest composite sentiment score.
	CompositeScore = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sentimentd",
		Name:      "composite_score",
		Help:      "Latest composite sentiment score in [-100, 100].",
	})
)
