// Package ai classifies trend sentiment and writes a run summary with one
// batched generative call, falling back to a deterministic keyword
// heuristic whenever the call fails or returns something unparseable.
package ai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/subhadip/trendpulse/internal/cache"
	"github.com/subhadip/trendpulse/pkg/models"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

const (
	noTrendsSummary  = "No trends to analyze."
	parseMissSummary = "Unable to generate summary."
	errorSummary     = "Error generating summary. Please try again later."
)

var (
	positivePattern = regexp.MustCompile(`(?i)great|good|excellent|amazing|love|awesome|fantastic|happy|best|perfect|recommend`)
	negativePattern = regexp.MustCompile(`(?i)bad|terrible|awful|horrible|hate|worst|poor|disappointed|negative|issue|problem|fail`)

	sentimentsLine = regexp.MustCompile(`SENTIMENTS:\s*(.*)`)
	summaryBlock   = regexp.MustCompile(`(?s)SUMMARY:\s*(.*)`)
)

// Result pairs one sentiment per input item, in input order, with the run
// summary.
type Result struct {
	Sentiments []models.Sentiment `json:"sentiments"`
	Summary    string             `json:"summary"`
}

// ClassifySentiment is the deterministic fallback classifier. Strictly
// more positive keyword hits than negative wins POSITIVE, strictly more
// negative wins NEGATIVE, ties (including none at all) are NEUTRAL.
func ClassifySentiment(text string) models.Sentiment {
	positives := len(positivePattern.FindAllString(text, -1))
	negatives := len(negativePattern.FindAllString(text, -1))
	switch {
	case positives > negatives:
		return models.SentimentPositive
	case negatives > positives:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// HTTPClient is the subset of *http.Client the processor needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Processor batches every item of one aggregation run into a single
// completion call.
type Processor struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient HTTPClient

	resultCache cache.Cache
	cacheTTL    time.Duration
}

// Option configures the Processor.
type Option func(*Processor)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc HTTPClient) Option {
	return func(p *Processor) { p.httpClient = hc }
}

// WithBaseURL sets a custom API base URL (useful for testing).
func WithBaseURL(u string) Option {
	return func(p *Processor) { p.baseURL = u }
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(p *Processor) { p.model = model }
}

// WithResultCache caches successful completions by content hash. Entries
// are stable for identical input, so ttl is typically much longer than the
// whole-query TTL.
func WithResultCache(c cache.Cache, ttl time.Duration) Option {
	return func(p *Processor) {
		p.resultCache = c
		p.cacheTTL = ttl
	}
}

// NewProcessor creates a sentiment and summary processor.
func NewProcessor(apiKey string, opts ...Option) *Processor {
	p := &Processor{
		apiKey:     apiKey,
		model:      "gemini-1.5-flash",
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process classifies every item and summarizes the batch. The returned
// sentiment list always matches the input length and order; a short or
// missing model response is padded from the fallback classifier.
func (p *Processor) Process(ctx context.Context, items []models.Trend) Result {
	if len(items) == 0 {
		return Result{Sentiments: []models.Sentiment{}, Summary: noTrendsSummary}
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Title + " " + clip(item.Content, 100)
	}

	// Safety net first: this is the result whenever the call goes wrong.
	fallback := make([]models.Sentiment, len(items))
	for i, text := range texts {
		fallback[i] = ClassifySentiment(text)
	}

	cacheKey := contentKey(texts)
	if p.resultCache != nil {
		if raw, ok := p.resultCache.Get(ctx, cacheKey); ok {
			var cached Result
			if err := json.Unmarshal(raw, &cached); err == nil && len(cached.Sentiments) == len(items) {
				return cached
			}
		}
	}

	if p.apiKey == "" {
		slog.Warn("ai: api key not configured, using fallback classifier")
		return Result{Sentiments: fallback, Summary: errorSummary}
	}

	completion, err := p.generate(ctx, buildPrompt(texts))
	if err != nil {
		slog.Warn("ai: completion call failed", "error", err)
		return Result{Sentiments: fallback, Summary: errorSummary}
	}

	result, parsed := parseCompletion(completion, fallback)
	if parsed && p.resultCache != nil {
		if raw, err := json.Marshal(result); err == nil {
			p.resultCache.Set(ctx, cacheKey, raw, p.cacheTTL)
		}
	}
	return result
}

// parseCompletion extracts the sentiments line and summary block. Both
// extractions are independent and tolerant; parsed reports whether the
// sentiments line was usable.
func parseCompletion(completion string, fallback []models.Sentiment) (Result, bool) {
	sentiments := fallback
	parsed := false

	if m := sentimentsLine.FindStringSubmatch(completion); len(m) > 1 && strings.TrimSpace(m[1]) != "" {
		tokens := strings.Split(m[1], ",")
		extracted := make([]models.Sentiment, 0, len(tokens))
		for _, token := range tokens {
			extracted = append(extracted, classifyToken(token))
		}
		// Pad a short list from the fallback, cap a long one.
		if len(extracted) < len(fallback) {
			extracted = append(extracted, fallback[len(extracted):]...)
		}
		sentiments = extracted[:len(fallback)]
		parsed = true
	}

	summary := parseMissSummary
	if m := summaryBlock.FindStringSubmatch(completion); len(m) > 1 && strings.TrimSpace(m[1]) != "" {
		summary = strings.TrimSpace(m[1])
	}

	return Result{Sentiments: sentiments, Summary: summary}, parsed
}

func classifyToken(token string) models.Sentiment {
	token = strings.ToUpper(strings.TrimSpace(token))
	switch {
	case strings.Contains(token, "POSITIVE"):
		return models.SentimentPositive
	case strings.Contains(token, "NEGATIVE"):
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func buildPrompt(texts []string) string {
	var b strings.Builder
	b.WriteString(`I need two things:
1. Sentiment analysis for each of the following texts (respond with ONLY "POSITIVE", "NEUTRAL", or "NEGATIVE" for each, in order, separated by commas)
2. A summary of the key takeaways from all texts (3-5 bullet points)

Here are the texts:
`)
	for i, text := range texts {
		fmt.Fprintf(&b, "Text %d: %s\n\n", i+1, clip(text, 150))
	}
	b.WriteString(`Format your response exactly like this:
SENTIMENTS: POSITIVE, NEGATIVE, NEUTRAL, ...
SUMMARY:
• First point
• Second point
• Third point`)
	return b.String()
}

func (p *Processor) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:     0.2,
			MaxOutputTokens: 800,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion endpoint returned status %d: %s", resp.StatusCode, respBody)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("completion response contained no candidates")
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}

func contentKey(texts []string) string {
	sum := sha256.Sum256([]byte(strings.Join(texts, "\n")))
	return "ai:" + hex.EncodeToString(sum[:])
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}
