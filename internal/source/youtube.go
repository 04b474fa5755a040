package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/subhadip/trendpulse/pkg/models"
)

const defaultYouTubeBaseURL = "https://www.googleapis.com"

// YouTubeClient searches the YouTube Data API v3. Results are fetched in
// two calls: a search for matching video IDs, then a videos lookup for the
// statistics the engagement score needs.
type YouTubeClient struct {
	apiKey     string
	baseURL    string
	httpClient HTTPClient
}

// YouTubeOption configures the YouTubeClient.
type YouTubeOption func(*YouTubeClient)

// WithYouTubeHTTPClient sets a custom HTTP client.
func WithYouTubeHTTPClient(hc HTTPClient) YouTubeOption {
	return func(c *YouTubeClient) { c.httpClient = hc }
}

// WithYouTubeBaseURL sets a custom base URL (useful for testing).
func WithYouTubeBaseURL(u string) YouTubeOption {
	return func(c *YouTubeClient) { c.baseURL = u }
}

// NewYouTubeClient creates a YouTube search adapter.
func NewYouTubeClient(apiKey string, opts ...YouTubeOption) *YouTubeClient {
	c := &YouTubeClient{
		apiKey:     apiKey,
		baseURL:    defaultYouTubeBaseURL,
		httpClient: defaultHTTPClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Platform reports which bucket this adapter's trends belong to.
func (c *YouTubeClient) Platform() models.Platform { return models.PlatformVideo }

// Search returns up to limit normalized video trends for the query.
func (c *YouTubeClient) Search(ctx context.Context, query string, limit int) []models.Trend {
	if c.apiKey == "" {
		slog.Warn("youtube: api key not configured, skipping source")
		return nil
	}

	searchURL := fmt.Sprintf("%s/youtube/v3/search?part=snippet&q=%s&type=video&maxResults=%d&key=%s",
		c.baseURL, url.QueryEscape(query), limit, c.apiKey)

	var search ytSearchResponse
	if err := c.getJSON(ctx, searchURL, &search); err != nil {
		slog.Warn("youtube: search request failed", "error", err)
		return nil
	}
	if len(search.Items) == 0 {
		return nil
	}

	ids := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	videosURL := fmt.Sprintf("%s/youtube/v3/videos?part=snippet,statistics&id=%s&key=%s",
		c.baseURL, strings.Join(ids, ","), c.apiKey)

	var videos ytVideosResponse
	if err := c.getJSON(ctx, videosURL, &videos); err != nil {
		slog.Warn("youtube: videos request failed", "error", err)
		return nil
	}

	trends := make([]models.Trend, 0, len(videos.Items))
	for _, item := range videos.Items {
		publishedAt, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		views := parseCount(item.Statistics.ViewCount)
		likes := parseCount(item.Statistics.LikeCount)
		comments := parseCount(item.Statistics.CommentCount)

		author := item.Snippet.ChannelTitle
		trends = append(trends, models.Trend{
			Title:       item.Snippet.Title,
			Content:     item.Snippet.Description,
			URL:         fmt.Sprintf("https://www.youtube.com/watch?v=%s", item.ID),
			Platform:    models.PlatformVideo,
			AuthorName:  &author,
			PublishedAt: publishedAt,
			Engagement:  views + likes + comments,
			Sentiment:   models.SentimentNeutral,
		})
	}
	return trends
}

func (c *YouTubeClient) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("youtube api returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Statistics counts arrive as strings; missing or garbled counts read as 0.
func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

type ytSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type ytVideosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}
