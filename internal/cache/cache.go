// Package cache fronts the aggregation pipeline with a key-value store.
// Reads degrade to a miss on any failure and writes are best-effort; the
// primary request path must never block or fail on the cache.
package cache

import (
	"context"
	"strings"
	"time"
)

// Cache is the contract both transports satisfy.
type Cache interface {
	// Get returns the cached value and whether it was present. Internal
	// errors are logged and reported as a miss.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores value under key for ttl. Failures are logged and
	// swallowed, never retried.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Invalidate deletes key.
	Invalidate(ctx context.Context, key string)
}

// SearchKey derives the whole-query cache key. Identical queries modulo
// case and surrounding whitespace share one entry.
func SearchKey(query string) string {
	return "search:" + strings.ToLower(strings.TrimSpace(query))
}

// TopTrendsKey is the cache key for the landing-page trending list.
const TopTrendsKey = "top_trends"
