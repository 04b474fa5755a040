package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	twitter "github.com/g8rswimmer/go-twitter/v2"
	"github.com/subhadip/trendpulse/pkg/models"
)

const defaultTwitterHost = "https://api.twitter.com"

// TwitterClient searches recent tweets through the v2 API. Tweets have no
// title of their own, so one is derived from the first 100 runes of the
// text.
type TwitterClient struct {
	bearerToken string
	host        string
	httpClient  *http.Client
}

// TwitterOption configures the TwitterClient.
type TwitterOption func(*TwitterClient)

// WithTwitterHTTPClient sets a custom HTTP client.
func WithTwitterHTTPClient(hc *http.Client) TwitterOption {
	return func(c *TwitterClient) { c.httpClient = hc }
}

// WithTwitterHost sets a custom API host (useful for testing).
func WithTwitterHost(host string) TwitterOption {
	return func(c *TwitterClient) { c.host = host }
}

// NewTwitterClient creates a Twitter search adapter.
func NewTwitterClient(bearerToken string, opts ...TwitterOption) *TwitterClient {
	c := &TwitterClient{
		bearerToken: bearerToken,
		host:        defaultTwitterHost,
		httpClient:  defaultHTTPClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Platform reports which bucket this adapter's trends belong to.
func (c *TwitterClient) Platform() models.Platform { return models.PlatformMicroblog }

// Search returns up to limit normalized microblog trends for the query.
func (c *TwitterClient) Search(ctx context.Context, query string, limit int) []models.Trend {
	if c.bearerToken == "" {
		slog.Warn("twitter: bearer token not configured, skipping source")
		return nil
	}

	// The recent-search endpoint rejects max_results outside 10..100.
	maxResults := limit
	if maxResults < 10 {
		maxResults = 10
	}
	if maxResults > 100 {
		maxResults = 100
	}

	client := &twitter.Client{
		Authorizer: bearerAuthorizer{token: c.bearerToken},
		Client:     c.httpClient,
		Host:       c.host,
	}

	resp, err := client.TweetRecentSearch(ctx, query, twitter.TweetRecentSearchOpts{
		MaxResults: maxResults,
		Expansions: []twitter.Expansion{twitter.ExpansionAuthorID},
		TweetFields: []twitter.TweetField{
			twitter.TweetFieldCreatedAt,
			twitter.TweetFieldPublicMetrics,
		},
		UserFields: []twitter.UserField{
			twitter.UserFieldName,
			twitter.UserFieldUserName,
		},
	})
	if err != nil {
		slog.Warn("twitter: recent search failed", "error", err)
		return nil
	}
	if resp.Raw == nil || len(resp.Raw.Tweets) == 0 {
		return nil
	}

	users := map[string]*twitter.UserObj{}
	if resp.Raw.Includes != nil {
		for _, u := range resp.Raw.Includes.Users {
			users[u.ID] = u
		}
	}

	trends := make([]models.Trend, 0, len(resp.Raw.Tweets))
	for i, tweet := range resp.Raw.Tweets {
		if tweet == nil {
			continue
		}
		if limit > 0 && i >= limit {
			break
		}

		username := ""
		if u, ok := users[tweet.AuthorID]; ok {
			username = u.UserName
		}
		author := "@" + username

		var engagement int64
		if m := tweet.PublicMetrics; m != nil {
			engagement = int64(m.Retweets + m.Replies + m.Likes + m.Quotes)
		}

		publishedAt, _ := time.Parse(time.RFC3339, tweet.CreatedAt)

		trends = append(trends, models.Trend{
			Title:       truncate(tweet.Text, 100),
			Content:     tweet.Text,
			URL:         fmt.Sprintf("https://twitter.com/%s/status/%s", username, tweet.ID),
			Platform:    models.PlatformMicroblog,
			AuthorName:  &author,
			PublishedAt: publishedAt,
			Engagement:  engagement,
			Sentiment:   models.SentimentNeutral,
		})
	}
	return trends
}

type bearerAuthorizer struct {
	token string
}

func (a bearerAuthorizer) Add(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.token)
}
