package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/subhadip/trendpulse/pkg/models"
)

const (
	defaultRedditAuthURL = "https://www.reddit.com"
	defaultRedditAPIURL  = "https://oauth.reddit.com"
)

// RedditClient searches Reddit through the OAuth API. A client-credentials
// token is fetched per call; Reddit rejects requests without a descriptive
// User-Agent, so one is mandatory.
type RedditClient struct {
	clientID   string
	secret     string
	userAgent  string
	authURL    string
	apiURL     string
	httpClient HTTPClient
}

// RedditOption configures the RedditClient.
type RedditOption func(*RedditClient)

// WithRedditHTTPClient sets a custom HTTP client.
func WithRedditHTTPClient(hc HTTPClient) RedditOption {
	return func(c *RedditClient) { c.httpClient = hc }
}

// WithRedditAuthURL sets a custom token endpoint base (useful for testing).
func WithRedditAuthURL(u string) RedditOption {
	return func(c *RedditClient) { c.authURL = u }
}

// WithRedditAPIURL sets a custom API base (useful for testing).
func WithRedditAPIURL(u string) RedditOption {
	return func(c *RedditClient) { c.apiURL = u }
}

// NewRedditClient creates a Reddit search adapter.
func NewRedditClient(clientID, secret, userAgent string, opts ...RedditOption) *RedditClient {
	c := &RedditClient{
		clientID:   clientID,
		secret:     secret,
		userAgent:  userAgent,
		authURL:    defaultRedditAuthURL,
		apiURL:     defaultRedditAPIURL,
		httpClient: defaultHTTPClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Platform reports which bucket this adapter's trends belong to.
func (c *RedditClient) Platform() models.Platform { return models.PlatformForum }

// Search returns up to limit normalized forum trends for the query.
func (c *RedditClient) Search(ctx context.Context, query string, limit int) []models.Trend {
	if c.clientID == "" || c.secret == "" {
		slog.Warn("reddit: credentials not configured, skipping source")
		return nil
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		slog.Warn("reddit: token request failed", "error", err)
		return nil
	}

	searchURL := fmt.Sprintf("%s/search?q=%s&sort=relevance&limit=%d",
		c.apiURL, url.QueryEscape(query), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		slog.Warn("reddit: create request failed", "error", err)
		return nil
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("reddit: search request failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("reddit: search returned non-ok status", "status", resp.StatusCode)
		return nil
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		slog.Warn("reddit: decode response failed", "error", err)
		return nil
	}
	if len(listing.Data.Children) == 0 {
		return nil
	}

	trends := make([]models.Trend, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		content := post.SelfText
		if content == "" {
			content = post.Title
		}
		author := post.Author
		trends = append(trends, models.Trend{
			Title:       post.Title,
			Content:     content,
			URL:         "https://www.reddit.com" + post.Permalink,
			Platform:    models.PlatformForum,
			AuthorName:  &author,
			PublishedAt: time.Unix(int64(post.CreatedUTC), 0).UTC(),
			Engagement:  post.Score + post.NumComments,
			Sentiment:   models.SentimentNeutral,
		})
	}
	return trends
}

// HotTopics fetches the hot listing of a subreddit without authentication,
// for the landing-page trending list. Unlike Search it returns an error so
// the caller can fall back to its canned list.
func (c *RedditClient) HotTopics(ctx context.Context, subreddit string, limit int) ([]models.TrendingTopic, error) {
	if subreddit == "" {
		subreddit = "technology"
	}
	u := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", c.authURL, subreddit, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit hot listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit hot listing returned status %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode hot listing: %w", err)
	}

	topics := make([]models.TrendingTopic, 0, len(listing.Data.Children))
	for i, child := range listing.Data.Children {
		topics = append(topics, models.TrendingTopic{
			ID:    i + 1,
			Name:  truncate(child.Data.Title, 50),
			Count: child.Data.Score,
		})
	}
	return topics, nil
}

func (c *RedditClient) accessToken(ctx context.Context) (string, error) {
	tokenURL := c.authURL + "/api/v1/access_token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL,
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.secret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return parsed.AccessToken, nil
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title       string  `json:"title"`
				SelfText    string  `json:"selftext"`
				Author      string  `json:"author"`
				CreatedUTC  float64 `json:"created_utc"`
				Score       int64   `json:"score"`
				NumComments int64   `json:"num_comments"`
				Permalink   string  `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}
