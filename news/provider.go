package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/finsig/sentimentd/config"
	"github.com/finsig/sentimentd/shared/zaplogger"
)

// ScoreResult is the outcome of scoring one text. Defined is false when the
// provider could not produce a score; an undefined score is never coerced to
// zero, since zero means neutral and absent means unknown.
type ScoreResult struct {
	Sentiment float64
	Defined   bool
}

// Scorer scores article texts in [-1, +1].
type Scorer interface {
	Name() string
	Score(ctx context.Context, texts []string) ([]ScoreResult, error)
}

// Per-attempt timeouts grow so a slow provider gets more room on retry.
var (
	attemptTimeouts = []time.Duration{30 * time.Second, 45 * time.Second, 60 * time.Second}
	attemptBackoffs = []time.Duration{5 * time.Second, 10 * time.Second}
)

// ScoreWithRetry calls the scorer up to three times with growing timeouts.
// Transport-level failures are retried; a nil error with per-text undefined
// results is final.
func ScoreWithRetry(ctx context.Context, s Scorer, texts []string) ([]ScoreResult, error) {
	var lastErr error
	for attempt := 0; attempt < len(attemptTimeouts); attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeouts[attempt])
		results, err := s.Score(attemptCtx, texts)
		cancel()
		if err == nil {
			return results, nil
		}
		lastErr = err
		zaplogger.Warn("Scoring attempt failed", zaplogger.Fields{
			"provider": s.Name(),
			"attempt":  attempt + 1,
			"error":    err.Error(),
		})
		if attempt < len(attemptBackoffs) {
			timer := time.NewTimer(attemptBackoffs[attempt])
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return nil, fmt.Errorf("scoring failed after %d attempts: %w", len(attemptTimeouts), lastErr)
}

// NewScorer builds the configured provider. A missing API key is an error;
// the caller disables scoring rather than running with a broken provider.
func NewScorer(cfg *config.Config) (Scorer, error) {
	switch cfg.SentimentProvider {
	case "fast":
		if cfg.SentimentKeyFast == "" {
			return nil, fmt.Errorf("SENTIMENT_API_KEY_FAST is required for the fast provider")
		}
		return NewFastScorer(cfg.SentimentKeyFast, ""), nil
	case "accurate":
		if cfg.SentimentKeyAccurate == "" {
			return nil, fmt.Errorf("SENTIMENT_API_KEY_ACCURATE is required for the accurate provider")
		}
		return NewAccurateScorer(cfg.SentimentKeyAccurate, ""), nil
	default:
		return nil, fmt.Errorf("unknown sentiment provider %q", cfg.SentimentProvider)
	}
}

// clamp1 clips a sentiment into [-1, +1].
func clamp1(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// --- fast provider: batched financial-text classifier ---

const defaultFastURL = "https://api-inference.huggingface.co/models/ProsusAI/finbert"

// FastScorer scores a whole batch in one inference call. The model returns
// per-label probabilities; the score is positive minus negative.
type FastScorer struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewFastScorer creates the batched classifier scorer. An empty baseURL uses
// the hosted inference endpoint; tests point it at a local server.
func NewFastScorer(apiKey, baseURL string) *FastScorer {
	if baseURL == "" {
		baseURL = defaultFastURL
	}
	return &FastScorer{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Name returns the provider name
func (s *FastScorer) Name() string { return "fast" }

type fastLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Score classifies all texts in one request.
func (s *FastScorer) Score(ctx context.Context, texts []string) ([]ScoreResult, error) {
	body, err := json.Marshal(map[string]interface{}{"inputs": texts})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fast provider returned %d: %s", resp.StatusCode, string(msg))
	}

	var out [][]fastLabel
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode fast provider response: %w", err)
	}

	results := make([]ScoreResult, len(texts))
	for i := range texts {
		if i >= len(out) {
			break
		}
		var pos, neg float64
		found := false
		for _, l := range out[i] {
			switch strings.ToLower(l.Label) {
			case "positive":
				pos, found = l.Score, true
			case "negative":
				neg, found = l.Score, true
			case "neutral":
				found = true
			}
		}
		if found {
			results[i] = ScoreResult{Sentiment: clamp1(pos - neg), Defined: true}
		}
	}
	return results, nil
}

// --- accurate provider: per-article chat completion ---

const defaultAccurateURL = "https://api.openai.com/v1/chat/completions"

// accurateFanout bounds concurrent completion requests per batch.
const accurateFanout = 10

const accuratePrompt = "Rate the sentiment of this financial news for the referenced stock " +
	"as a single number between -1.0 (very negative) and 1.0 (very positive). " +
	"Respond with only the number."

// AccurateScorer scores each text with its own chat completion, fanning out
// a bounded number of concurrent requests.
type AccurateScorer struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewAccurateScorer creates the completion-based scorer. An empty baseURL
// uses the hosted endpoint; tests point it at a local server.
func NewAccurateScorer(apiKey, baseURL string) *AccurateScorer {
	if baseURL == "" {
		baseURL = defaultAccurateURL
	}
	return &AccurateScorer{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   "gpt-4o-mini",
		client:  &http.Client{},
	}
}

// Name returns the provider name
func (s *AccurateScorer) Name() string { return "accurate" }

// Score fans texts out to per-text completions. A text whose completion
// fails or cannot be parsed comes back undefined rather than zero.
func (s *AccurateScorer) Score(ctx context.Context, texts []string) ([]ScoreResult, error) {
	results := make([]ScoreResult, len(texts))
	sem := make(chan struct{}, accurateFanout)
	var wg sync.WaitGroup

	for i, text := range texts {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }()
			v, err := s.scoreOne(ctx, text)
			if err != nil {
				zaplogger.Debug("Completion scoring failed for one text", zaplogger.Fields{
					"error": err.Error(),
				})
				return
			}
			results[i] = ScoreResult{Sentiment: clamp1(v), Defined: true}
		}(i, text)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (s *AccurateScorer) scoreOne(ctx context.Context, text string) (float64, error) {
	payload := map[string]interface{}{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "system", "content": accuratePrompt},
			{"role": "user", "content": text},
		},
		"temperature": 0,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("accurate provider returned %d: %s", resp.StatusCode, string(msg))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	if len(out.Choices) == 0 {
		return 0, fmt.Errorf("accurate provider returned no choices")
	}
	return strconv.ParseFloat(strings.TrimSpace(out.Choices[0].Message.Content), 64)
}
