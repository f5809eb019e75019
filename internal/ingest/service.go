// Package ingest drives a single crawl of a news source: fetch the feed,
// parse it, enrich thin articles, persist new posts, and fan out events.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/bloggle-hq/bloggle-ingest/internal/cache"
	"github.com/bloggle-hq/bloggle-ingest/internal/domain"
	"github.com/bloggle-hq/bloggle-ingest/internal/feed"
	"github.com/bloggle-hq/bloggle-ingest/internal/logger"
	"github.com/bloggle-hq/bloggle-ingest/internal/sources"
	"github.com/bloggle-hq/bloggle-ingest/pkg/httpclient"
	"github.com/bloggle-hq/bloggle-ingest/pkg/publishers"
)

const defaultPullItems = 30

// Store is the persistence surface the service depends on.
type Store interface {
	EnsureNewsSource(ctx context.Context, src sources.Source) (domain.NewsSource, error)
	PostExistsByLink(ctx context.Context, linkURL string) (bool, error)
	CreateNewsPost(ctx context.Context, source domain.NewsSource, art domain.Article) (domain.Post, error)
	TouchSourceCrawled(ctx context.Context, sourceID int64, at time.Time) error
}

// Enricher fills in missing article details from the article page.
type Enricher interface {
	Enrich(ctx context.Context, headers map[string]string, art domain.Article) domain.Article
}

// EventSink receives an event for every stored post.
type EventSink interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
	Size() int
}

// Service pulls articles from a source feed into the posts store.
type Service struct {
	store    Store
	client   httpclient.Client
	enricher Enricher
	seen     cache.SeenCache
	sink     EventSink
	log      logger.Logger
}

// New builds a Service. seen, sink and log may be nil.
func New(store Store, client httpclient.Client, enricher Enricher, seen cache.SeenCache, sink EventSink, log logger.Logger) *Service {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Service{
		store:    store,
		client:   client,
		enricher: enricher,
		seen:     seen,
		sink:     sink,
		log:      log,
	}
}

// Pull runs one crawl of the source, storing at most limit new posts.
//
// Fetch and parse failures abort the run; a failure on a single article is
// recorded in Result.Errors and does not stop the remaining articles.
func (s *Service) Pull(ctx context.Context, src sources.Source, limit int) (domain.Result, error) {
	if limit <= 0 {
		limit = defaultPullItems
	}

	result := domain.Result{Source: src.Slug}

	source, err := s.store.EnsureNewsSource(ctx, src)
	if err != nil {
		return result, fmt.Errorf("ensure source %q: %w", src.Slug, err)
	}

	body, err := httpclient.GetString(ctx, s.client, src.RSSURL, sources.Headers(src, sources.AcceptRSS))
	if err != nil {
		return result, fmt.Errorf("fetch feed %q: %w", src.RSSURL, err)
	}

	articles, err := feed.Parse(body, limit)
	if err != nil {
		return result, fmt.Errorf("parse feed %q: %w", src.RSSURL, err)
	}
	result.Fetched = len(articles)

	htmlHeaders := sources.Headers(src, sources.AcceptHTML)

	for _, art := range articles {
		if s.seenBefore(ctx, art.URL, &result) {
			continue
		}

		if s.enricher != nil {
			art = s.enricher.Enrich(ctx, htmlHeaders, art)
		}

		post, err := s.store.CreateNewsPost(ctx, source, art)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to save %q: %v", art.URL, err))
			continue
		}
		result.Created++
		s.markSeen(art.URL)
		s.publish(ctx, src, post)
	}

	if err := s.store.TouchSourceCrawled(ctx, source.ID, time.Now().UTC()); err != nil {
		s.log.WarnObj("failed to record crawl time", "ingest_touch_error", map[string]any{
			"source": src.Slug,
			"error":  err.Error(),
		})
	}

	s.log.InfoObj("source pull finished", "ingest_pull", map[string]any{
		"source":  src.Slug,
		"fetched": result.Fetched,
		"created": result.Created,
		"skipped": result.Skipped,
		"errors":  len(result.Errors),
	})
	return result, nil
}

// seenBefore reports whether the URL is already stored, consulting the local
// cache first. A cache or lookup failure never blocks the article; the slower
// database path decides.
func (s *Service) seenBefore(ctx context.Context, url string, result *domain.Result) bool {
	if s.seen != nil {
		if hit, err := s.seen.SeenURL(url); err == nil && hit {
			result.Skipped++
			return true
		}
	}

	exists, err := s.store.PostExistsByLink(ctx, url)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to save %q: %v", url, err))
		return true
	}
	if exists {
		result.Skipped++
		s.markSeen(url)
		return true
	}
	return false
}

// markSeen records the URL in the cache once the database knows about it.
func (s *Service) markSeen(url string) {
	if s.seen == nil {
		return
	}
	if err := s.seen.MarkURL(url); err != nil {
		s.log.WarnObj("failed to mark url as seen", "ingest_cache_error", map[string]any{
			"url":   url,
			"error": err.Error(),
		})
	}
}

// publish fans out the stored post. Delivery failures are logged, never
// surfaced in Result.Errors; the post is already persisted.
func (s *Service) publish(ctx context.Context, src sources.Source, post domain.Post) {
	if s.sink == nil || s.sink.Size() == 0 {
		return
	}

	evt := publishers.NewEvent(src.Slug, src.Name, post)
	if _, err := s.sink.Publish(ctx, evt); err != nil {
		s.log.WarnObj("event fanout incomplete", "ingest_publish_error", map[string]any{
			"source": src.Slug,
			"slug":   post.Slug,
			"error":  err.Error(),
		})
	}
}
