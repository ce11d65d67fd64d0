package news

import (
	"math"
	"strings"
	"time"
	"unicode"
)

// Field length caps applied before persistence.
const (
	maxHeadlineLen = 500
	maxSummaryLen  = 2000
	maxURLLen      = 500
)

const floatCap = 1e10

// sanitizeText strips null bytes and control characters (keeping tab and
// newlines), normalises whitespace runs and truncates to max runes.
func sanitizeText(s string, max int) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		if r == 0 || (unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r') {
			continue
		}
		if unicode.IsSpace(r) {
			if lastSpace {
				continue
			}
			b.WriteRune(' ')
			lastSpace = true
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	out := strings.TrimSpace(b.String())
	runes := []rune(out)
	if len(runes) > max {
		out = string(runes[:max])
	}
	return out
}

// safeFloat replaces NaN and infinities with 0 and clips magnitude so a
// provider glitch cannot poison a numeric column.
func safeFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f > floatCap {
		return floatCap
	}
	if f < -floatCap {
		return -floatCap
	}
	return f
}

// safeURL keeps only printable non-space characters and truncates.
func safeURL(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) && !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > maxURLLen {
		out = out[:maxURLLen]
	}
	return out
}

// safeTime rejects timestamps outside a sane year range, substituting now.
func safeTime(t time.Time, now time.Time) time.Time {
	if t.IsZero() || t.Year() < 1900 || t.Year() > 2100 {
		return now
	}
	return t
}

// sanitizeArticle applies every field guard in place, returning the article
// for chaining.
func sanitizeArticle(a *Article, now time.Time) *Article {
	a.Headline = sanitizeText(a.Headline, maxHeadlineLen)
	a.Summary = sanitizeText(a.Summary, maxSummaryLen)
	a.URL = safeURL(a.URL)
	a.PublishTime = safeTime(a.PublishTime, now)
	a.Sentiment = safeFloat(a.Sentiment)
	a.Impact = safeFloat(a.Impact)
	a.WeightedContribution = safeFloat(a.WeightedContribution)
	return a
}
