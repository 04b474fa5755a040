package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/subhadip/trendpulse/internal/cache"
	"github.com/subhadip/trendpulse/pkg/models"
)

// Aggregator runs one trend search end to end.
type Aggregator interface {
	Aggregate(ctx context.Context, query string, userID *string) (*models.AggregationResult, error)
}

// SearchStore is the read contract the handlers need from persistence.
type SearchStore interface {
	RecentSearches(ctx context.Context, limit int) ([]models.Search, error)
	TrendsBySearch(ctx context.Context, searchID string) ([]models.Trend, error)
}

// TopicSource lists what is currently hot, for the landing page.
type TopicSource interface {
	HotTopics(ctx context.Context, subreddit string, limit int) ([]models.TrendingTopic, error)
}

type Handler struct {
	agg         Aggregator
	searches    SearchStore
	topics      TopicSource
	cache       cache.Cache
	trendingTTL time.Duration
}

func NewHandler(agg Aggregator, searches SearchStore, topics TopicSource, c cache.Cache, trendingTTL time.Duration) *Handler {
	return &Handler{
		agg:         agg,
		searches:    searches,
		topics:      topics,
		cache:       c,
		trendingTTL: trendingTTL,
	}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	v1 := r.Group("/v1")
	{
		v1.GET("/search", h.Search)
		v1.GET("/trending-topics", h.TrendingTopics)
		v1.GET("/searches/recent", h.RecentSearches)
		v1.GET("/searches/:id/trends", h.TrendsBySearch)
	}
}

// Search: GET /v1/search?q=...
// The caller's identity, when known, arrives in the X-User-ID header.
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter is required"})
		return
	}

	var userID *string
	if id := c.GetHeader("X-User-ID"); id != "" {
		userID = &id
	}

	result, err := h.agg.Aggregate(c.Request.Context(), query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trends"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// TrendingTopics: GET /v1/trending-topics
// Serves the cached list when fresh, otherwise scrapes the hot listing and
// falls back to a canned list so the landing page never renders empty.
func (h *Handler) TrendingTopics(c *gin.Context) {
	ctx := c.Request.Context()

	if raw, ok := h.cache.Get(ctx, cache.TopTrendsKey); ok {
		var cached []models.TrendingTopic
		if err := json.Unmarshal(raw, &cached); err == nil && len(cached) > 0 {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	topics, err := h.topics.HotTopics(ctx, "technology", 10)
	if err != nil || len(topics) == 0 {
		c.JSON(http.StatusOK, mockTrendingTopics)
		return
	}

	if raw, err := json.Marshal(topics); err == nil {
		h.cache.Set(ctx, cache.TopTrendsKey, raw, h.trendingTTL)
	}
	c.JSON(http.StatusOK, topics)
}

// RecentSearches: GET /v1/searches/recent?limit=5
func (h *Handler) RecentSearches(c *gin.Context) {
	limit := parseLimit(c.DefaultQuery("limit", "5"))
	searches, err := h.searches.RecentSearches(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(searches), "limit": limit},
		"data": searches,
	})
}

// TrendsBySearch: GET /v1/searches/:id/trends
// Returns one search's persisted trends, most engaged first.
func (h *Handler) TrendsBySearch(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id parameter"})
		return
	}
	trends, err := h.searches.TrendsBySearch(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{"count": len(trends)},
		"data": trends,
	})
}

// parseLimit ensures a sane integer limit, with bounds
func parseLimit(s string) int {
	l, err := strconv.Atoi(s)
	if err != nil || l <= 0 {
		return 5
	}
	if l > 50 {
		return 50
	}
	return l
}

// Served whenever the hot listing is unreachable or empty.
var mockTrendingTopics = []models.TrendingTopic{
	{ID: 1, Name: "Apple unveils new AI features for iOS 18", Count: 4210},
	{ID: 2, Name: "Tesla announces breakthrough in battery technology", Count: 3845},
	{ID: 3, Name: "Microsoft's quantum computing milestone", Count: 3562},
	{ID: 4, Name: "New cybersecurity threats targeting remote workers", Count: 2987},
	{ID: 5, Name: "SpaceX successfully lands Starship prototype", Count: 2756},
	{ID: 6, Name: "EU passes new tech regulation framework", Count: 2534},
	{ID: 7, Name: "Breakthrough in renewable energy storage", Count: 2187},
	{ID: 8, Name: "AI generates novel protein structures for medicine", Count: 1876},
	{ID: 9, Name: "Open-source AI model surpasses commercial options", Count: 1654},
	{ID: 10, Name: "Major tech companies commit to carbon neutrality", Count: 1432},
}
