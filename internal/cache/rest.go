package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient is the subset of *http.Client the REST transport needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTCache talks to an Upstash-style serverless redis over stateless
// HTTPS calls. It is interchangeable with RedisCache behind the Cache
// contract.
type RESTCache struct {
	baseURL    string
	token      string
	httpClient HTTPClient
}

// RESTOption configures the RESTCache.
type RESTOption func(*RESTCache)

// WithRESTHTTPClient sets a custom HTTP client.
func WithRESTHTTPClient(hc HTTPClient) RESTOption {
	return func(c *RESTCache) { c.httpClient = hc }
}

// NewRESTCache creates a REST cache client for the given endpoint.
func NewRESTCache(baseURL, token string, opts ...RESTOption) *RESTCache {
	c := &RESTCache{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements Cache.
func (c *RESTCache) Get(ctx context.Context, key string) ([]byte, bool) {
	u := fmt.Sprintf("%s/get/%s", c.baseURL, url.PathEscape(key))
	result, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		slog.Warn("cache: rest get failed", "key", key, "error", err)
		return nil, false
	}
	if result == nil {
		return nil, false
	}
	var val string
	if err := json.Unmarshal(result, &val); err != nil {
		slog.Warn("cache: rest get returned unexpected payload", "key", key, "error", err)
		return nil, false
	}
	return []byte(val), true
}

// Set implements Cache.
func (c *RESTCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	u := fmt.Sprintf("%s/set/%s?EX=%d", c.baseURL, url.PathEscape(key), int(ttl.Seconds()))
	if _, err := c.do(ctx, http.MethodPost, u, value); err != nil {
		slog.Warn("cache: rest set failed", "key", key, "error", err)
	}
}

// Invalidate implements Cache.
func (c *RESTCache) Invalidate(ctx context.Context, key string) {
	u := fmt.Sprintf("%s/del/%s", c.baseURL, url.PathEscape(key))
	if _, err := c.do(ctx, http.MethodPost, u, nil); err != nil {
		slog.Warn("cache: rest del failed", "key", key, "error", err)
	}
}

// do issues one REST command and returns the raw "result" field, which is
// null for absent keys.
func (c *RESTCache) do(ctx context.Context, method, u string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cache endpoint returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if string(parsed.Result) == "null" {
		return nil, nil
	}
	return parsed.Result, nil
}
