package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/bloggle-hq/bloggle-ingest/internal/domain"
)

// PostExistsByLink reports whether a post with the exact link_url exists.
// This is the dedup check the ingest driver runs before enrichment.
func (s *Store) PostExistsByLink(ctx context.Context, linkURL string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM posts WHERE link_url = ?`, linkURL)
	if err != nil {
		return false, fmt.Errorf("post existence check: %w", err)
	}
	return count > 0, nil
}

// CreateNewsPost stores the article as a published news post belonging to the
// source.
func (s *Store) CreateNewsPost(ctx context.Context, source domain.NewsSource, art domain.Article) (domain.Post, error) {
	slug, err := s.generateSlug(ctx, art.Title)
	if err != nil {
		return domain.Post{}, err
	}

	now := time.Now().UTC()
	post := domain.Post{
		Type:         domain.PostTypeNews,
		Title:        art.Title,
		Slug:         slug,
		Status:       domain.PostStatusPublished,
		NewsSourceID: &source.ID,
		PublishedAt:  art.PublishedAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	post.LinkURL = &art.URL
	if art.BodyHTML != "" {
		post.BodyHTML = &art.BodyHTML
	}
	if art.ImageURL != "" {
		post.ImageURL = &art.ImageURL
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (type, title, slug, body_html, link_url, image_url, status, news_source_id, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.Type, post.Title, post.Slug, post.BodyHTML, post.LinkURL, post.ImageURL,
		post.Status, post.NewsSourceID, post.PublishedAt, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return domain.Post{}, fmt.Errorf("insert post: %w", err)
	}

	post.ID, err = res.LastInsertId()
	if err != nil {
		return domain.Post{}, fmt.Errorf("post id: %w", err)
	}
	return post, nil
}

// ListNewsPosts returns published news posts, newest first.
func (s *Store) ListNewsPosts(ctx context.Context, limit, offset int) ([]domain.Post, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	posts := []domain.Post{}
	err := s.db.SelectContext(ctx, &posts, `
		SELECT id, type, title, slug, body_html, link_url, image_url, status,
		       news_source_id, published_at, created_at, updated_at
		FROM posts
		WHERE type = ? AND status = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		domain.PostTypeNews, domain.PostStatusPublished, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list news posts: %w", err)
	}
	return posts, nil
}

func (s *Store) slugExists(ctx context.Context, slug string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM posts WHERE slug = ?`, slug)
	if err != nil {
		return false, fmt.Errorf("slug existence check: %w", err)
	}
	return count > 0, nil
}
