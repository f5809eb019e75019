package domain

import "time"

// Domain contains core models shared across the ingestion pipeline.

// Article is the transient, in-memory representation of a feed item as it
// moves through the pipeline. It is never persisted as its own entity; a
// stored article becomes a Post.
type Article struct {
	Title       string
	URL         string
	PublishedAt *time.Time
	BodyHTML    string
	ImageURL    string
}

// NewsSource is a crawlable feed origin. Created idempotently (keyed by slug)
// on the first ingestion run; last_crawled_at is touched on crawl completion.
type NewsSource struct {
	ID               int64      `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Slug             string     `db:"slug" json:"slug"`
	HomepageURL      string     `db:"homepage_url" json:"homepage_url"`
	RSSURL           string     `db:"rss_url" json:"rss_url"`
	IsActive         bool       `db:"is_active" json:"is_active"`
	CrawlIntervalMin int64      `db:"crawl_interval_min" json:"crawl_interval_min"`
	LastCrawledAt    *time.Time `db:"last_crawled_at" json:"last_crawled_at"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Post types and statuses written by the pipeline.
const (
	PostTypeNews     = "news"
	PostTypeUserPost = "user_post"

	PostStatusPublished = "published"
)

// Post is the subset of the posts table the pipeline writes. LinkURL holds the
// canonical source URL and is the dedup key: at most one Post exists per
// distinct link_url.
type Post struct {
	ID           int64      `db:"id" json:"id"`
	Type         string     `db:"type" json:"type"`
	Title        string     `db:"title" json:"title"`
	Slug         string     `db:"slug" json:"slug"`
	BodyHTML     *string    `db:"body_html" json:"body_html"`
	LinkURL      *string    `db:"link_url" json:"link_url"`
	ImageURL     *string    `db:"image_url" json:"image_url"`
	Status       string     `db:"status" json:"status"`
	NewsSourceID *int64     `db:"news_source_id" json:"news_source_id"`
	PublishedAt  *time.Time `db:"published_at" json:"published_at"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Result aggregates the outcome of one ingestion run. Callers must inspect the
// counts, not just the error list, to know partial progress: a run with errors
// may still have created posts.
type Result struct {
	Source  string   `json:"source"`
	Fetched int      `json:"fetched"`
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}
