package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries every environment-driven setting the service reads.
type Config struct {
	Port        string
	DatabaseURL string
	RedisAddr   string

	// Upstash-style REST cache; when URL is set it takes precedence over
	// the redis transport.
	UpstashURL   string
	UpstashToken string

	YouTubeAPIKey      string
	RedditClientID     string
	RedditSecret       string
	RedditUserAgent    string
	TwitterBearerToken string

	GeminiAPIKey string
	GeminiModel  string

	MaxResultsPerPlatform int
	FetchTimeout          time.Duration
	SearchTTL             time.Duration
	TrendingTTL           time.Duration
	AIResultTTL           time.Duration
}

func envOrDefault(key, d string) string {
	v := os.Getenv(key)
	if v == "" {
		return d
	}
	return v
}

func envDuration(key string, d time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return d
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return d
	}
	return parsed
}

func envInt(key string, d int) int {
	v := os.Getenv(key)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return d
	}
	return n
}

// Load reads configuration from the environment, applying defaults that
// match a local docker-compose setup.
func Load() Config {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			envOrDefault("DB_USER", "trendpulse"),
			envOrDefault("DB_PASS", "trendpulse"),
			envOrDefault("DB_HOST", "localhost"),
			envOrDefault("DB_PORT", "5432"),
			envOrDefault("DB_NAME", "trendpulse_db"),
		)
	}

	return Config{
		Port:        envOrDefault("PORT", "8080"),
		DatabaseURL: dbURL,
		RedisAddr:   envOrDefault("REDIS_ADDR", "localhost:6379"),

		UpstashURL:   os.Getenv("UPSTASH_REDIS_REST_URL"),
		UpstashToken: os.Getenv("UPSTASH_REDIS_REST_TOKEN"),

		YouTubeAPIKey:      os.Getenv("YOUTUBE_API_KEY"),
		RedditClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		RedditSecret:       os.Getenv("REDDIT_SECRET"),
		RedditUserAgent:    envOrDefault("REDDIT_USER_AGENT", "trendpulse/1.0 (by u/trendpulse)"),
		TwitterBearerToken: os.Getenv("TWITTER_BEARER_TOKEN"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  envOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),

		MaxResultsPerPlatform: envInt("MAX_RESULTS_PER_PLATFORM", 10),
		FetchTimeout:          envDuration("FETCH_TIMEOUT", 15*time.Second),
		SearchTTL:             envDuration("SEARCH_CACHE_TTL", 30*time.Minute),
		TrendingTTL:           envDuration("TRENDING_CACHE_TTL", time.Hour),
		AIResultTTL:           envDuration("AI_CACHE_TTL", 24*time.Hour),
	}
}
