// Package feed parses RSS documents into bounded candidate article lists.
package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bloggle-hq/bloggle-ingest/internal/domain"
	"github.com/bloggle-hq/bloggle-ingest/internal/htmltext"
)

// ParseError reports a document that could not be read as an RSS feed.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse feed: %v", e.Err)
	}
	return "parse feed: missing channel/item structure"
}

func (e *ParseError) Unwrap() error { return e.Err }

// rssItem mirrors one <item> element, including the content and media
// extension fields the pipeline cares about.
type rssItem struct {
	Title       string     `xml:"title"`
	Link        string     `xml:"link"`
	PubDate     string     `xml:"pubDate"`
	Description string     `xml:"description"`
	Encoded     string     `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	Media       []urlAttr  `xml:"http://search.yahoo.com/mrss/ content"`
	Thumbnails  []urlAttr  `xml:"http://search.yahoo.com/mrss/ thumbnail"`
	Enclosures  []urlAttr  `xml:"enclosure"`
}

type urlAttr struct {
	URL string `xml:"url,attr"`
}

// Parse reads an RSS document and returns at most maxItems candidate
// articles in feed order. Decoding is streaming: once maxItems candidates are
// accumulated the rest of the document is not read. Items whose title or link
// is empty after trimming are skipped silently and do not count toward the
// bound.
func Parse(body string, maxItems int) ([]domain.Article, error) {
	dec := xml.NewDecoder(strings.NewReader(body))
	dec.Strict = false

	var (
		articles   []domain.Article
		sawChannel bool
		sawItem    bool
	)

	for maxItems <= 0 || len(articles) < maxItems {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch strings.ToLower(start.Name.Local) {
		case "channel":
			sawChannel = true
		case "item":
			sawItem = true
			var item rssItem
			if err := dec.DecodeElement(&item, &start); err != nil {
				return nil, &ParseError{Err: err}
			}
			if art, ok := buildArticle(item); ok {
				articles = append(articles, art)
			}
		}
	}

	if !sawChannel || !sawItem {
		return nil, &ParseError{}
	}

	return articles, nil
}

// buildArticle converts a decoded item into a candidate article, applying the
// inline body/image reconciliation rules. ok is false when the item must be
// skipped.
func buildArticle(item rssItem) (domain.Article, bool) {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return domain.Article{}, false
	}

	body := strings.TrimSpace(item.Encoded)
	if body == "" {
		body = strings.TrimSpace(item.Description)
	}

	image := inlineImage(item)
	if image == "" && body != "" {
		image = htmltext.FirstImageSrc(body)
	}
	if image != "" && body != "" {
		body = htmltext.StripFirstImageTag(body)
	}

	if body != "" {
		bodyText := htmltext.Normalize(body)
		if bodyText != "" && bodyText == htmltext.Normalize(title) {
			body = ""
		}
	}

	return domain.Article{
		Title:       title,
		URL:         link,
		PublishedAt: ParseDate(item.PubDate),
		BodyHTML:    body,
		ImageURL:    image,
	}, true
}

// inlineImage picks the first non-empty structured image URL: media:content,
// then media:thumbnail, then a generic enclosure.
func inlineImage(item rssItem) string {
	for _, group := range [][]urlAttr{item.Media, item.Thumbnails, item.Enclosures} {
		for _, entry := range group {
			if url := strings.TrimSpace(entry.URL); url != "" {
				return url
			}
		}
	}
	return ""
}

// dateLayouts are tried in order for non-numeric date strings.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a publish date permissively: numeric values are Unix epoch
// seconds, anything else is tried against common layouts. Unparsable or empty
// input yields nil, never an error.
func ParseDate(value string) *time.Time {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}

	if epoch, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		t := time.Unix(epoch, 0).UTC()
		return &t
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			utc := t.UTC()
			return &utc
		}
	}

	return nil
}
