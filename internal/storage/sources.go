package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bloggle-hq/bloggle-ingest/internal/domain"
	"github.com/bloggle-hq/bloggle-ingest/internal/sources"
)

// EnsureNewsSource returns the news_sources row for the registry entry,
// creating it if absent. Lookup is keyed by slug; an existing row is returned
// as-is and not updated from the registry.
func (s *Store) EnsureNewsSource(ctx context.Context, src sources.Source) (domain.NewsSource, error) {
	existing, err := s.newsSourceBySlug(ctx, src.Slug)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.NewsSource{}, fmt.Errorf("lookup news source %q: %w", src.Slug, err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO news_sources (name, slug, homepage_url, rss_url, is_active, crawl_interval_min, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		src.Name, src.Slug, src.HomepageURL, src.RSSURL, src.ActiveValue(), src.CrawlIntervalMin, now, now,
	)
	if err != nil {
		// A concurrent run may have inserted the row between the lookup
		// and the insert; the slug unique index makes that visible here.
		if row, lookupErr := s.newsSourceBySlug(ctx, src.Slug); lookupErr == nil {
			return row, nil
		}
		return domain.NewsSource{}, fmt.Errorf("create news source %q: %w", src.Slug, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.NewsSource{}, fmt.Errorf("news source id: %w", err)
	}

	return domain.NewsSource{
		ID:               id,
		Name:             src.Name,
		Slug:             src.Slug,
		HomepageURL:      src.HomepageURL,
		RSSURL:           src.RSSURL,
		IsActive:         src.ActiveValue(),
		CrawlIntervalMin: src.CrawlIntervalMin,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (s *Store) newsSourceBySlug(ctx context.Context, slug string) (domain.NewsSource, error) {
	var row domain.NewsSource
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, slug, homepage_url, rss_url, is_active, crawl_interval_min,
		       last_crawled_at, created_at, updated_at
		FROM news_sources WHERE slug = ?`, slug)
	return row, err
}

// TouchSourceCrawled records a completed crawl for the source.
func (s *Store) TouchSourceCrawled(ctx context.Context, sourceID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE news_sources SET last_crawled_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("touch news source %d: %w", sourceID, err)
	}
	return nil
}
