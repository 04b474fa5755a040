package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"github.com/subhadip/trendpulse/pkg/models"
)

type fakeAggregator struct {
	result *models.AggregationResult
	err    error
	calls  int
	userID *string
}

func (f *fakeAggregator) Aggregate(ctx context.Context, query string, userID *string) (*models.AggregationResult, error) {
	f.calls++
	f.userID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSearchStore struct {
	searches []models.Search
	trends   []models.Trend
	err      error
}

func (f *fakeSearchStore) RecentSearches(ctx context.Context, limit int) ([]models.Search, error) {
	return f.searches, f.err
}

func (f *fakeSearchStore) TrendsBySearch(ctx context.Context, searchID string) ([]models.Trend, error) {
	return f.trends, f.err
}

type fakeTopicSource struct {
	topics []models.TrendingTopic
	err    error
	calls  int
}

func (f *fakeTopicSource) HotTopics(ctx context.Context, subreddit string, limit int) ([]models.TrendingTopic, error) {
	f.calls++
	return f.topics, f.err
}

type memCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemCache() *memCache { return &memCache{m: map[string][]byte{}} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

func (c *memCache) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

func newTestRouter(agg Aggregator, searches SearchStore, topics TopicSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(agg, searches, topics, newMemCache(), time.Hour)
	RegisterRoutes(r, h)
	return r
}

func aggregationFixture() *models.AggregationResult {
	return &models.AggregationResult{
		SearchID: "search-1",
		Query:    "Tesla",
		Summary:  "• a solid quarter",
		Trends: models.PlatformTrends{
			Video:     []models.Trend{{ID: "t1", Title: "v1", Platform: models.PlatformVideo}},
			Forum:     []models.Trend{},
			Microblog: []models.Trend{},
		},
		AllTrends: []models.Trend{{ID: "t1", Title: "v1", Platform: models.PlatformVideo}},
	}
}

func TestSearch_MissingQuery(t *testing.T) {
	r := newTestRouter(&fakeAggregator{}, &fakeSearchStore{}, &fakeTopicSource{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/search", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch_ReturnsAggregation(t *testing.T) {
	agg := &fakeAggregator{result: aggregationFixture()}
	r := newTestRouter(agg, &fakeSearchStore{}, &fakeTopicSource{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/search?q=Tesla", nil)
	req.Header.Set("X-User-ID", "user-42")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, agg.calls)
	if agg.userID == nil || *agg.userID != "user-42" {
		t.Errorf("aggregator saw userID %v, want user-42", agg.userID)
	}

	var res models.AggregationResult
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "search-1", res.SearchID)
	assert.Equal(t, "Tesla", res.Query)
	assert.Equal(t, 1, len(res.AllTrends))
	assert.Equal(t, 1, len(res.Trends.Video))
}

func TestSearch_PipelineFailure(t *testing.T) {
	agg := &fakeAggregator{err: errors.New("boom")}
	r := newTestRouter(agg, &fakeSearchStore{}, &fakeTopicSource{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/search?q=Tesla", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var res map[string]string
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "Failed to fetch trends", res["error"])
}

func TestTrendingTopics_FallbackOnError(t *testing.T) {
	topics := &fakeTopicSource{err: errors.New("reddit down")}
	r := newTestRouter(&fakeAggregator{}, &fakeSearchStore{}, topics)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/trending-topics", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res []models.TrendingTopic
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 10, len(res))
	assert.Equal(t, "Apple unveils new AI features for iOS 18", res[0].Name)
}

func TestTrendingTopics_CachesLiveListing(t *testing.T) {
	topics := &fakeTopicSource{topics: []models.TrendingTopic{
		{ID: 1, Name: "Real headline", Count: 4210},
	}}
	r := newTestRouter(&fakeAggregator{}, &fakeSearchStore{}, topics)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/v1/trending-topics", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		var res []models.TrendingTopic
		json.Unmarshal(w.Body.Bytes(), &res)
		assert.Equal(t, 1, len(res))
		assert.Equal(t, "Real headline", res[0].Name)
	}

	// Second request is served from cache.
	assert.Equal(t, 1, topics.calls)
}

func TestRecentSearches(t *testing.T) {
	store := &fakeSearchStore{searches: []models.Search{
		{ID: "search-1", Query: "Tesla"},
		{ID: "search-2", Query: "Apple"},
	}}
	r := newTestRouter(&fakeAggregator{}, store, &fakeTopicSource{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/searches/recent?limit=5", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Meta struct {
			Count int `json:"count"`
		} `json:"meta"`
		Data []models.Search `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 2, res.Meta.Count)
	assert.Equal(t, "Tesla", res.Data[0].Query)
}

func TestTrendsBySearch(t *testing.T) {
	store := &fakeSearchStore{trends: []models.Trend{
		{ID: "t1", Title: "big", Engagement: 500, Platform: models.PlatformForum},
		{ID: "t2", Title: "small", Engagement: 10, Platform: models.PlatformVideo},
	}}
	r := newTestRouter(&fakeAggregator{}, store, &fakeTopicSource{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/searches/search-1/trends", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Data []models.Trend `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 2, len(res.Data))
	assert.Equal(t, "t1", res.Data[0].ID)
}

func TestTrendsBySearch_StoreError(t *testing.T) {
	store := &fakeSearchStore{err: errors.New("db unavailable")}
	r := newTestRouter(&fakeAggregator{}, store, &fakeTopicSource{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/searches/search-1/trends", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
