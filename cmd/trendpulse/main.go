package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/subhadip/trendpulse/internal/aggregator"
	"github.com/subhadip/trendpulse/internal/ai"
	"github.com/subhadip/trendpulse/internal/api"
	"github.com/subhadip/trendpulse/internal/cache"
	"github.com/subhadip/trendpulse/internal/config"
	"github.com/subhadip/trendpulse/internal/source"
	"github.com/subhadip/trendpulse/internal/store"
)

func main() {
	godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	// simple ping + wait (db might be starting in docker)
	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		log.Printf("waiting for db: attempt %d, err: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatalf("could not connect to db: %v", err)
	}

	if err := store.RunMigrations(db); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	repo := store.NewPgStore(db)

	// The two cache transports are interchangeable; REST wins when an
	// Upstash endpoint is configured.
	var kv cache.Cache
	if cfg.UpstashURL != "" {
		kv = cache.NewRESTCache(cfg.UpstashURL, cfg.UpstashToken)
	} else {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warning: redis ping failed: %v", err)
		}
		kv = cache.NewRedisCache(rdb)
	}

	reddit := source.NewRedditClient(cfg.RedditClientID, cfg.RedditSecret, cfg.RedditUserAgent)
	sources := []aggregator.Source{
		source.NewYouTubeClient(cfg.YouTubeAPIKey),
		reddit,
		source.NewTwitterClient(cfg.TwitterBearerToken),
	}

	processor := ai.NewProcessor(cfg.GeminiAPIKey,
		ai.WithModel(cfg.GeminiModel),
		ai.WithResultCache(kv, cfg.AIResultTTL),
	)

	agg := aggregator.New(sources, processor, repo, kv,
		aggregator.WithLimit(cfg.MaxResultsPerPlatform),
		aggregator.WithFetchTimeout(cfg.FetchTimeout),
		aggregator.WithSearchTTL(cfg.SearchTTL),
	)
	defer agg.Wait()

	handler := api.NewHandler(agg, repo, reddit, kv, cfg.TrendingTTL)

	router := gin.Default()
	router.Use(cors.Default())
	api.RegisterRoutes(router, handler)

	log.Printf("listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
