package news

import (
	"context"
	"strings"
	"time"

	"github.com/finsig/sentimentd/metrics"
	"github.com/finsig/sentimentd/shared/queue"
	"github.com/finsig/sentimentd/shared/zaplogger"
)

// scoreBatchMax bounds how many queued articles are scored in one provider
// call.
const scoreBatchMax = 16

// impactCap bounds a single article's contribution to the news score.
const impactCap = 25.0

// runScorer is a source line's scoring worker. It batches queued articles,
// scores them, pushes the resulting impacts to the composer and then
// enqueues the durable save. Undefined scores release the dedup mark so the
// article can be re-fetched and retried.
func (s *Service) runScorer(ctx context.Context, line *sourceLine) {
	zaplogger.Info("News scoring worker started", zaplogger.Fields{"source": line.source})
	for {
		first, ok := queue.PollGet(ctx, line.toScore, time.Second)
		if !ok {
			if ctx.Err() != nil {
				zaplogger.Info("News scoring worker stopped", zaplogger.Fields{"source": line.source})
				return
			}
			continue
		}
		batch := collectBatch(line.toScore, first)
		metrics.QueueDepth.WithLabelValues(line.source + "_to_score").Set(float64(len(line.toScore)))
		s.scoreBatch(ctx, line, batch)
	}
}

// collectBatch drains up to scoreBatchMax-1 more articles without blocking.
func collectBatch(toScore chan Article, first Article) []Article {
	batch := []Article{first}
	for len(batch) < scoreBatchMax {
		select {
		case a := <-toScore:
			batch = append(batch, a)
		default:
			return batch
		}
	}
	return batch
}

func (s *Service) scoreBatch(ctx context.Context, line *sourceLine, batch []Article) {
	texts := make([]string, len(batch))
	for i, a := range batch {
		texts[i] = scoringText(a)
	}

	results, err := ScoreWithRetry(ctx, s.scorer, texts)
	if err != nil {
		// The whole batch failed transport-wise. Release every mark so the
		// articles come around again.
		for _, a := range batch {
			s.dedup.Unmark(a.Hash)
		}
		metrics.ArticlesScored.WithLabelValues("error").Add(float64(len(batch)))
		zaplogger.Error("NEWSSCORING batch failed", zaplogger.Fields{
			"source":   line.source,
			"provider": s.scorer.Name(),
			"count":    len(batch),
			"error":    err.Error(),
		})
		return
	}

	for i := range batch {
		a := batch[i]
		if i >= len(results) || !results[i].Defined {
			s.dedup.Unmark(a.Hash)
			metrics.ArticlesScored.WithLabelValues("undefined").Inc()
			zaplogger.Debug("NEWSSCORING undefined score, released for retry", zaplogger.Fields{
				"source":   a.Source,
				"headline": a.Headline,
			})
			continue
		}

		a.Sentiment = results[i].Sentiment
		weight := s.weights.WeightFor(a.Symbol)
		a.Impact = clipImpact(a.Sentiment * weight * 100)
		a.WeightedContribution = a.Impact
		metrics.ArticlesScored.WithLabelValues("scored").Inc()

		// The composer sees the impact before the save queue does, so
		// sentiment never waits on the database.
		if s.impacts.Push(a.Impact) {
			metrics.ImpactsDropped.Inc()
		}
		metrics.QueueDepth.WithLabelValues("scored_impacts").Set(float64(s.impacts.Len()))

		if !queue.TryPut(line.toSave, saveJob{article: a, enqueuedAt: time.Now()}) {
			zaplogger.Warn("SAVEQUEUE QUEUE_FULL dropping scored article", zaplogger.Fields{
				"source":   a.Source,
				"headline": a.Headline,
			})
			continue
		}
		metrics.QueueDepth.WithLabelValues(line.source + "_to_save").Set(float64(len(line.toSave)))
	}
}

// scoringText joins headline and summary into the provider input.
func scoringText(a Article) string {
	if a.Summary == "" {
		return a.Headline
	}
	return strings.TrimSpace(a.Headline) + ". " + strings.TrimSpace(a.Summary)
}

// clipImpact clips an impact into [-impactCap, +impactCap].
func clipImpact(v float64) float64 {
	if v > impactCap {
		return impactCap
	}
	if v < -impactCap {
		return -impactCap
	}
	return v
}
