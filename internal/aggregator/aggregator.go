// Package aggregator orchestrates one trend search: cache check, parallel
// source fetch, batched sentiment/summary processing, persistence, result
// assembly and a detached cache write.
package aggregator

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/subhadip/trendpulse/internal/ai"
	"github.com/subhadip/trendpulse/internal/cache"
	"github.com/subhadip/trendpulse/pkg/models"
)

// Source is one search provider. Search never fails; a broken or
// misconfigured provider contributes an empty slice.
type Source interface {
	Platform() models.Platform
	Search(ctx context.Context, query string, limit int) []models.Trend
}

// Processor batches sentiment classification and summarization.
type Processor interface {
	Process(ctx context.Context, items []models.Trend) ai.Result
}

// Store is the write contract the pipeline needs from persistence.
type Store interface {
	SaveSearch(ctx context.Context, query string, userID *string) (*models.Search, error)
	SaveTrends(ctx context.Context, searchID string, trends []models.Trend) ([]models.Trend, error)
}

// Aggregator runs the pipeline. Sources are fetched and assembled in the
// order given to New, which fixes the combined ordering of every result.
type Aggregator struct {
	sources   []Source
	processor Processor
	store     Store
	cache     cache.Cache

	limit        int
	fetchTimeout time.Duration
	searchTTL    time.Duration

	// tracks detached cache writes so callers can drain them on shutdown
	wg sync.WaitGroup
}

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithLimit caps how many items each source contributes.
func WithLimit(n int) Option {
	return func(a *Aggregator) { a.limit = n }
}

// WithFetchTimeout bounds the parallel fetch phase as a whole. A source
// that misses the deadline contributes nothing; the others still count.
func WithFetchTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.fetchTimeout = d }
}

// WithSearchTTL sets how long whole-query results stay cached.
func WithSearchTTL(d time.Duration) Option {
	return func(a *Aggregator) { a.searchTTL = d }
}

// New creates an Aggregator over the given collaborators.
func New(sources []Source, processor Processor, store Store, c cache.Cache, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources:      sources,
		processor:    processor,
		store:        store,
		cache:        c,
		limit:        10,
		fetchTimeout: 15 * time.Second,
		searchTTL:    30 * time.Minute,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate runs one search through the pipeline. It returns a usable
// result even when the AI endpoint, any subset of sources, or persistence
// fails; only context cancellation of the caller itself surfaces upward.
//
// Identical concurrent queries are not deduplicated: both may miss the
// cache and run the full pipeline, last write wins.
func (a *Aggregator) Aggregate(ctx context.Context, query string, userID *string) (*models.AggregationResult, error) {
	key := cache.SearchKey(query)
	if raw, ok := a.cache.Get(ctx, key); ok {
		var cached models.AggregationResult
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		slog.Warn("aggregator: discarding undecodable cache entry", "key", key)
	}

	all, counts := a.fetchAll(ctx, query)

	processed := a.processor.Process(ctx, all)
	for i := range all {
		if i < len(processed.Sentiments) {
			all[i].Sentiment = processed.Sentiments[i]
		}
	}

	// Persistence failures degrade to an unpersisted result instead of
	// failing an otherwise successful aggregation.
	searchID := ""
	persisted := false
	if search, err := a.store.SaveSearch(ctx, query, userID); err != nil {
		slog.Error("aggregator: save search failed", "query", query, "error", err)
	} else if saved, err := a.store.SaveTrends(ctx, search.ID, all); err != nil {
		slog.Error("aggregator: save trends failed", "searchId", search.ID, "error", err)
		searchID = search.ID
	} else {
		searchID = search.ID
		all = saved
		persisted = true
	}

	result := &models.AggregationResult{
		SearchID:  searchID,
		Query:     query,
		Summary:   processed.Summary,
		Trends:    partition(all, counts, a.sources),
		AllTrends: all,
	}

	// Only fully persisted results are cached, so a later identical query
	// can retry persistence instead of replaying a degraded run.
	if persisted {
		if raw, err := json.Marshal(result); err == nil {
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				a.cache.Set(writeCtx, key, raw, a.searchTTL)
			}()
		}
	}

	return result, nil
}

// fetchAll launches every source concurrently and waits for all of them to
// settle. One slow or failing source delays but never aborts the batch,
// and never cancels its siblings.
func (a *Aggregator) fetchAll(ctx context.Context, query string) ([]models.Trend, []int) {
	fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	buckets := make([][]models.Trend, len(a.sources))
	var fetch sync.WaitGroup
	for i, src := range a.sources {
		fetch.Add(1)
		go func(i int, src Source) {
			defer fetch.Done()
			buckets[i] = src.Search(fetchCtx, query, a.limit)
		}(i, src)
	}
	fetch.Wait()

	all := make([]models.Trend, 0)
	counts := make([]int, len(buckets))
	for i, bucket := range buckets {
		counts[i] = len(bucket)
		all = append(all, bucket...)
	}
	return all, counts
}

// partition slices the combined sequence back into platform buckets using
// the per-source counts recorded at fetch time, preserving fetch order.
func partition(all []models.Trend, counts []int, sources []Source) models.PlatformTrends {
	out := models.PlatformTrends{
		Video:     []models.Trend{},
		Forum:     []models.Trend{},
		Microblog: []models.Trend{},
	}
	offset := 0
	for i, src := range sources {
		end := offset + counts[i]
		if end > len(all) {
			end = len(all)
		}
		segment := all[offset:end]
		offset = end

		switch src.Platform() {
		case models.PlatformVideo:
			out.Video = segment
		case models.PlatformForum:
			out.Forum = segment
		case models.PlatformMicroblog:
			out.Microblog = segment
		}
	}
	return out
}

// Wait blocks until every detached cache write has finished.
func (a *Aggregator) Wait() {
	a.wg.Wait()
}
