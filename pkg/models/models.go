package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Platform identifies which kind of source a trend came from.
type Platform string

const (
	PlatformVideo     Platform = "VIDEO"
	PlatformForum     Platform = "FORUM"
	PlatformMicroblog Platform = "MICROBLOG"
)

// Sentiment is the classification attached to a trend before persistence.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

// Scan implements sql.Scanner so platform columns read back as Platform.
func (p *Platform) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		*p = Platform(v)
	case string:
		*p = Platform(v)
	default:
		return fmt.Errorf("models: cannot scan type %T into Platform", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (p Platform) Value() (driver.Value, error) {
	return string(p), nil
}

// Scan implements sql.Scanner.
func (s *Sentiment) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		*s = Sentiment(v)
	case string:
		*s = Sentiment(v)
	default:
		return fmt.Errorf("models: cannot scan type %T into Sentiment", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (s Sentiment) Value() (driver.Value, error) {
	return string(s), nil
}

// Trend is the normalized record every source adapter produces. Sentiment
// starts as NEUTRAL and is overwritten by the processor before persistence.
type Trend struct {
	ID          string    `db:"id" json:"id,omitempty"`
	SearchID    string    `db:"search_id" json:"-"`
	Title       string    `db:"title" json:"title"`
	Content     string    `db:"content" json:"content"`
	URL         string    `db:"url" json:"url"`
	Platform    Platform  `db:"platform" json:"platform"`
	AuthorName  *string   `db:"author_name" json:"authorName"`
	PublishedAt time.Time `db:"published_at" json:"publishedAt"`
	Engagement  int64     `db:"engagement" json:"engagement"`
	Sentiment   Sentiment `db:"sentiment" json:"sentiment"`
}

// Search is one aggregation run. UserID is nil for anonymous searches.
type Search struct {
	ID        string    `db:"id" json:"id"`
	Query     string    `db:"query" json:"query"`
	UserID    *string   `db:"user_id" json:"userId,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// PlatformTrends partitions one run's trends by source, in fetch order.
type PlatformTrends struct {
	Video     []Trend `json:"video"`
	Forum     []Trend `json:"forum"`
	Microblog []Trend `json:"microblog"`
}

// AggregationResult is the transient payload returned (and cached) for one
// search. AllTrends is the combined fetch-order sequence; Trends holds the
// same items sliced back into platform buckets.
type AggregationResult struct {
	SearchID  string         `json:"searchId"`
	Query     string         `json:"query"`
	Summary   string         `json:"summary"`
	Trends    PlatformTrends `json:"trends"`
	AllTrends []Trend        `json:"allTrends"`
}

// TrendingTopic is one entry on the landing-page trending list.
type TrendingTopic struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}
