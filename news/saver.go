package news

import (
	"context"
	"fmt"
	"time"

	"github.com/finsig/sentimentd/metrics"
	"github.com/finsig/sentimentd/shared/queue"
	"github.com/finsig/sentimentd/shared/zaplogger"
)

// saveDeadline bounds how long one article may spend between save enqueue
// and a completed write. The clock starts at enqueue: an article that sat in
// a backed-up queue for a minute is already stale and its impact has long
// been applied.
const saveDeadline = 60 * time.Second

// saveBackoffs are the waits between the three save attempts.
var saveBackoffs = []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}

// saveJob is one scored article awaiting a durable write.
type saveJob struct {
	article    Article
	enqueuedAt time.Time
}

// runSaver is a source line's durable-save worker. On shutdown it keeps
// draining the line's save queue under one final deadline before printing
// the per-source summary, so scored articles are not lost to a restart.
func (s *Service) runSaver(ctx context.Context, line *sourceLine) {
	zaplogger.Info("News save worker started", zaplogger.Fields{"source": line.source})
	var succeeded, failed, deadlineExceeded int

	for {
		job, ok := queue.PollGet(ctx, line.toSave, time.Second)
		if !ok {
			if ctx.Err() != nil {
				s.drainSaves(line, &succeeded, &failed, &deadlineExceeded)
				zaplogger.Info(fmt.Sprintf("NEWSSAVING %s summary: SUCCESS %d | FAILED %d | DEADLINE %d",
					line.source, succeeded, failed, deadlineExceeded))
				return
			}
			continue
		}
		metrics.QueueDepth.WithLabelValues(line.source + "_to_save").Set(float64(len(line.toSave)))
		s.saveOne(job, &succeeded, &failed, &deadlineExceeded)
	}
}

// drainSaves empties the line's save queue after shutdown begins. Each job
// still carries its own enqueue-time deadline.
func (s *Service) drainSaves(line *sourceLine, succeeded, failed, deadlineExceeded *int) {
	for {
		select {
		case job := <-line.toSave:
			s.saveOne(job, succeeded, failed, deadlineExceeded)
		default:
			return
		}
	}
}

// saveOne sanitizes and upserts one article with bounded retries. The
// deadline is measured from enqueue time, not processing time.
func (s *Service) saveOne(job saveJob, succeeded, failed, deadlineExceeded *int) {
	a := job.article
	sanitizeArticle(&a, time.Now())

	var lastErr error
	for attempt := 0; attempt <= len(saveBackoffs); attempt++ {
		if time.Since(job.enqueuedAt) > saveDeadline {
			*deadlineExceeded++
			metrics.ArticlesSaved.WithLabelValues("deadline_exceeded").Inc()
			zaplogger.Warn("NEWSSAVING DEADLINE_EXCEEDED", zaplogger.Fields{
				"hash":     a.Hash,
				"headline": a.Headline,
				"queued":   time.Since(job.enqueuedAt).String(),
			})
			return
		}
		if lastErr = s.store.Upsert(&a); lastErr == nil {
			*succeeded++
			metrics.ArticlesSaved.WithLabelValues("success").Inc()
			zaplogger.Debug("NEWSSAVING saved", zaplogger.Fields{
				"hash":   a.Hash,
				"source": a.Source,
				"impact": a.Impact,
			})
			return
		}
		if attempt < len(saveBackoffs) {
			time.Sleep(saveBackoffs[attempt])
		}
	}

	*failed++
	metrics.ArticlesSaved.WithLabelValues("failed").Inc()
	zaplogger.Error("NEWSSAVING SAVE_FAILED_ALL_ATTEMPTS", zaplogger.Fields{
		"hash":     a.Hash,
		"headline": a.Headline,
		"error":    lastErr.Error(),
	})
}
