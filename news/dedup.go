package news

import (
	"sync"
	"time"
)

const (
	dedupTTL     = time.Hour
	dedupMaxSize = 5000
)

// Dedup is the shared seen-article cache. A hash is marked when its article
// is enqueued for scoring and unmarked if scoring ends undefined, so the
// story can be re-fetched and retried later. Entries expire after an hour.
type Dedup struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDedup creates an empty cache.
func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]time.Time)}
}

// MarkIfNew marks hash as seen and returns true if it was not already
// present. The check and mark are one atomic step so two collectors racing
// on the same story admit it exactly once.
func (d *Dedup) MarkIfNew(hash string) bool {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	if exp, ok := d.seen[hash]; ok && now.Before(exp) {
		return false
	}
	if len(d.seen) >= dedupMaxSize {
		d.evictExpiredLocked(now)
	}
	d.seen[hash] = now.Add(dedupTTL)
	return true
}

// Unmark forgets a hash so the article can be admitted again.
func (d *Dedup) Unmark(hash string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, hash)
}

// Prune drops expired entries. Called hourly by the cron service.
func (d *Dedup) Prune() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	before := len(d.seen)
	d.evictExpiredLocked(time.Now())
	return before - len(d.seen)
}

// Len returns the number of live entries.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func (d *Dedup) evictExpiredLocked(now time.Time) {
	for h, exp := range d.seen {
		if !now.Before(exp) {
			delete(d.seen, h)
		}
	}
	// Still over the cap with nothing expired: drop oldest-expiring entries.
	for len(d.seen) >= dedupMaxSize {
		var oldest string
		var oldestExp time.Time
		for h, exp := range d.seen {
			if oldest == "" || exp.Before(oldestExp) {
				oldest, oldestExp = h, exp
			}
		}
		delete(d.seen, oldest)
	}
}
