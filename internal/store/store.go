package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/subhadip/trendpulse/pkg/models"
)

// PgStore persists searches and their trends in Postgres. Rows are only
// ever created and read; the aggregation core never updates or deletes.
type PgStore struct {
	db *sqlx.DB
}

// NewPgStore wraps an open database handle.
func NewPgStore(db *sql.DB) *PgStore {
	return &PgStore{db: sqlx.NewDb(db, "postgres")}
}

// RunMigrations ensures the tables exist.
func RunMigrations(db *sql.DB) error {
	initSQL := `
CREATE TABLE IF NOT EXISTS searches(
  id UUID PRIMARY KEY,
  query TEXT NOT NULL,
  user_id TEXT,
  created_at TIMESTAMP NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS trends(
  id UUID PRIMARY KEY,
  search_id UUID NOT NULL REFERENCES searches(id),
  title TEXT,
  content TEXT,
  url TEXT,
  platform TEXT,
  author_name TEXT,
  published_at TIMESTAMP,
  engagement BIGINT DEFAULT 0,
  sentiment TEXT
);

CREATE INDEX IF NOT EXISTS idx_searches_created ON searches(created_at);
CREATE INDEX IF NOT EXISTS idx_trends_search ON trends(search_id);
CREATE INDEX IF NOT EXISTS idx_trends_engagement ON trends(engagement);
`
	_, err := db.Exec(initSQL)
	return err
}

// SaveSearch creates one search record. userID is nil for anonymous
// searches.
func (p *PgStore) SaveSearch(ctx context.Context, query string, userID *string) (*models.Search, error) {
	search := &models.Search{
		ID:        uuid.New().String(),
		Query:     query,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO searches (id, query, user_id, created_at) VALUES ($1,$2,$3,$4)`,
		search.ID, search.Query, search.UserID, search.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert search: %w", err)
	}
	return search, nil
}

// SaveTrends assigns identities to the trends and inserts them in one
// transaction, returning the identified copies in input order.
func (p *PgStore) SaveTrends(ctx context.Context, searchID string, trends []models.Trend) ([]models.Trend, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	stmt := `
INSERT INTO trends (id, search_id, title, content, url, platform, author_name, published_at, engagement, sentiment)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`
	saved := make([]models.Trend, len(trends))
	for i, trend := range trends {
		trend.ID = uuid.New().String()
		trend.SearchID = searchID
		if trend.PublishedAt.IsZero() {
			trend.PublishedAt = time.Now().UTC()
		}

		_, err := tx.ExecContext(ctx, stmt,
			trend.ID,
			trend.SearchID,
			trend.Title,
			trend.Content,
			trend.URL,
			trend.Platform,
			trend.AuthorName,
			trend.PublishedAt,
			trend.Engagement,
			trend.Sentiment,
		)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("insert trend url=%s: %w", trend.URL, err)
		}
		saved[i] = trend
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return saved, nil
}

// TrendsBySearch returns one search's persisted trends, most engaged
// first.
func (p *PgStore) TrendsBySearch(ctx context.Context, searchID string) ([]models.Trend, error) {
	rows := []models.Trend{}
	query := `
SELECT id, search_id, title, content, url, platform, author_name, published_at, engagement, sentiment
FROM trends
WHERE search_id = $1
ORDER BY engagement DESC
`
	err := p.db.SelectContext(ctx, &rows, query, searchID)
	return rows, err
}

// RecentSearches returns the latest searches, newest first.
func (p *PgStore) RecentSearches(ctx context.Context, limit int) ([]models.Search, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	rows := []models.Search{}
	query := `
SELECT id, query, user_id, created_at
FROM searches
ORDER BY created_at DESC
LIMIT $1
`
	err := p.db.SelectContext(ctx, &rows, query, limit)
	return rows, err
}
