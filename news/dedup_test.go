package news

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupIdempotence(t *testing.T) {
	d := NewDedup()
	assert.True(t, d.MarkIfNew("abc"), "first sighting is new")
	assert.False(t, d.MarkIfNew("abc"), "second sighting is a duplicate")
	assert.True(t, d.MarkIfNew("def"))
	assert.Equal(t, 2, d.Len())
}

func TestDedupUnmark(t *testing.T) {
	d := NewDedup()
	assert.True(t, d.MarkIfNew("abc"))
	d.Unmark("abc")
	assert.True(t, d.MarkIfNew("abc"), "unmarked hash is admitted again")
}

func TestDedupCapEviction(t *testing.T) {
	d := NewDedup()
	for i := 0; i < dedupMaxSize; i++ {
		d.MarkIfNew(fmt.Sprintf("h%d", i))
	}
	assert.Equal(t, dedupMaxSize, d.Len())

	// One more admission must not grow the cache past the cap.
	assert.True(t, d.MarkIfNew("overflow"))
	assert.LessOrEqual(t, d.Len(), dedupMaxSize)
}

func TestArticleHash(t *testing.T) {
	h := ArticleHash(SourceCompany, "https://x.test/a", "Apple beats estimates")
	assert.Len(t, h, 32)
	assert.Regexp(t, "^[0-9a-f]{32}$", h)

	// Stable across calls.
	assert.Equal(t, h, ArticleHash(SourceCompany, "https://x.test/a", "Apple beats estimates"))

	// Source, URL and headline all participate.
	assert.NotEqual(t, h, ArticleHash(SourceMarket, "https://x.test/a", "Apple beats estimates"))
	assert.NotEqual(t, h, ArticleHash(SourceCompany, "https://x.test/b", "Apple beats estimates"))
	assert.NotEqual(t, h, ArticleHash(SourceCompany, "https://x.test/a", "Apple misses estimates"))

	// Only the headline prefix matters, so trailing edits collapse.
	long := "This headline is certainly much longer than fifty characters in total"
	edited := long + " (updated)"
	assert.Equal(t,
		ArticleHash(SourceRSS, "https://x.test/c", long),
		ArticleHash(SourceRSS, "https://x.test/c", edited))
}
