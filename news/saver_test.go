package news

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/finsig/sentimentd/shared/queue"
)

type fakeUpserter struct {
	calls int
	fail  int
}

func (f *fakeUpserter) Upsert(a *Article) error {
	f.calls++
	if f.calls <= f.fail {
		return errors.New("connection reset")
	}
	return nil
}

func TestSaveDeadlineFromEnqueueTime(t *testing.T) {
	s := newTestService(&stubScorer{}, queue.NewImpactQueue(10))
	store := &fakeUpserter{}
	s.store = store

	var succeeded, failed, deadlineExceeded int

	// An article that sat in a backed-up queue past the deadline is dropped
	// without touching the database; its impact was applied at scoring time.
	stale := saveJob{
		article:    Article{Hash: "h1", Headline: "old story"},
		enqueuedAt: time.Now().Add(-saveDeadline - time.Second),
	}
	s.saveOne(stale, &succeeded, &failed, &deadlineExceeded)
	assert.Equal(t, 1, deadlineExceeded)
	assert.Zero(t, store.calls, "expired job must not reach the store")

	// A fresh job saves normally.
	fresh := saveJob{
		article:    Article{Hash: "h2", Headline: "new story"},
		enqueuedAt: time.Now(),
	}
	s.saveOne(fresh, &succeeded, &failed, &deadlineExceeded)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, store.calls)
}

func TestSaveRetriesTransientErrors(t *testing.T) {
	s := newTestService(&stubScorer{}, queue.NewImpactQueue(10))
	store := &fakeUpserter{fail: 2}
	s.store = store

	var succeeded, failed, deadlineExceeded int
	job := saveJob{
		article:    Article{Hash: "h1", Headline: "flaky save"},
		enqueuedAt: time.Now(),
	}
	s.saveOne(job, &succeeded, &failed, &deadlineExceeded)

	assert.Equal(t, 1, succeeded, "third attempt lands")
	assert.Equal(t, 3, store.calls)
	assert.Zero(t, failed)
}

func TestSaveFailsAfterAllAttempts(t *testing.T) {
	s := newTestService(&stubScorer{}, queue.NewImpactQueue(10))
	store := &fakeUpserter{fail: 10}
	s.store = store

	var succeeded, failed, deadlineExceeded int
	job := saveJob{
		article:    Article{Hash: "h1", Headline: "doomed save"},
		enqueuedAt: time.Now(),
	}
	s.saveOne(job, &succeeded, &failed, &deadlineExceeded)

	assert.Equal(t, 1, failed)
	assert.Equal(t, 4, store.calls, "initial attempt plus three retries")
	assert.Zero(t, succeeded)
}
