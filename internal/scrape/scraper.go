// Package scrape fetches article pages and extracts body and image details
// the feed did not supply.
package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bloggle-hq/bloggle-ingest/internal/domain"
	"github.com/bloggle-hq/bloggle-ingest/internal/htmltext"
	"github.com/bloggle-hq/bloggle-ingest/internal/logger"
	"github.com/bloggle-hq/bloggle-ingest/pkg/httpclient"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB

	// defaultDetailTimeout bounds a per-article page fetch. It is shorter
	// than the listing timeout because it runs once per candidate inside
	// the ingest loop and must not let one slow article stall the run.
	defaultDetailTimeout = 10 * time.Second
)

// Scraper fetches article pages and extracts body/image details.
type Scraper struct {
	client httpclient.Client
	log    logger.Logger
}

// NewScraper constructs a scraper with the provided HTTP client (or a default
// detail-fetch client).
func NewScraper(client httpclient.Client, log logger.Logger) *Scraper {
	if client == nil {
		client = httpclient.NewRestyClient(defaultDetailTimeout)
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Scraper{client: client, log: log}
}

// NeedsBody reports whether the article's inline body is insufficient: empty,
// a title echo, or shorter than the minimum normalized length.
func NeedsBody(art domain.Article) bool {
	bodyText := htmltext.Normalize(art.BodyHTML)
	if bodyText == "" {
		return true
	}
	if bodyText == htmltext.Normalize(art.Title) {
		return true
	}
	return htmltext.NormalizedLen(art.BodyHTML) < minBodyTextLen
}

// NeedsDetails reports whether the article's own page must be fetched: the
// body is insufficient, or (independently) the image is missing.
func NeedsDetails(art domain.Article) bool {
	if NeedsBody(art) {
		return true
	}
	return strings.TrimSpace(art.ImageURL) == ""
}

// Enrich fetches the article page and merges extracted details into the
// article. It is best-effort: on any fetch or parse failure the input article
// is returned unchanged.
func (s *Scraper) Enrich(ctx context.Context, headers map[string]string, art domain.Article) domain.Article {
	if !NeedsDetails(art) {
		return art
	}

	details, err := s.fetchDetails(ctx, headers, art.URL)
	if err != nil {
		s.log.WarnObj("article detail fetch failed", "detail_error", map[string]any{
			"url":   art.URL,
			"error": err.Error(),
		})
		return art
	}

	if NeedsBody(art) && details.BodyHTML != "" {
		art.BodyHTML = details.BodyHTML
	}
	if strings.TrimSpace(art.ImageURL) == "" && details.ImageURL != "" {
		art.ImageURL = details.ImageURL
	}

	// The merged result may newly echo the title or carry a duplicate
	// inline image, so both rules are re-applied here.
	bodyText := htmltext.Normalize(art.BodyHTML)
	if bodyText != "" && bodyText == htmltext.Normalize(art.Title) {
		art.BodyHTML = ""
	}
	if art.ImageURL != "" && art.BodyHTML != "" {
		art.BodyHTML = htmltext.StripFirstImageTag(art.BodyHTML)
	}

	return art
}

func (s *Scraper) fetchDetails(ctx context.Context, headers map[string]string, url string) (pageDetails, error) {
	body, err := httpclient.GetString(ctx, s.client, url, headers)
	if err != nil {
		return pageDetails{}, err
	}
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return pageDetails{}, fmt.Errorf("parse article html: %w", err)
	}

	return parseArticleHTML(doc), nil
}
