package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bloggle-hq/bloggle-ingest/internal/htmltext"
)

// minBodyTextLen is the normalized-text length an extracted body must reach to
// be considered a real article body.
const minBodyTextLen = 60

// bodySelectors are tried most-specific first; a bare <article> is the last
// resort.
var bodySelectors = []string{
	"div[class*='article-body']",
	"div[class*='article__body']",
	"div[class*='article-content']",
	"div[class*='article__content']",
	"div[class*='post-content']",
	"div[class*='post-body']",
	"div[class*='entry-content']",
	"article",
}

// noiseSelector matches subtrees stripped from a body candidate before its
// text length is measured.
const noiseSelector = "script, style, figure, img, picture, source, svg, video, iframe, aside, nav, header, footer"

// metaImageKeys are checked in priority order for the page's main image.
var metaImageKeys = []string{"og:image", "twitter:image", "twitter:image:src"}

// pageDetails is what an article page yields: both fields may be empty.
type pageDetails struct {
	BodyHTML string
	ImageURL string
}

// extractMetaImage returns the first non-empty og/twitter meta image URL.
func extractMetaImage(doc *goquery.Document) string {
	for _, key := range metaImageKeys {
		sel := "meta[property='" + key + "'], meta[name='" + key + "']"
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			if val, ok := node.Attr("content"); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					found = trimmed
					return false
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// extractBody walks the selector list and returns the first candidate element
// whose cleaned text reaches minBodyTextLen, along with an image URL captured
// from the element's raw markup before noise stripping. Returning ("", "") is
// the normal "extraction failed" outcome, not an error.
func extractBody(doc *goquery.Document) (string, string) {
	for _, selector := range bodySelectors {
		nodes := doc.Find(selector)
		if nodes.Length() == 0 {
			continue
		}

		var bodyHTML, bodyImage string
		nodes.EachWithBreak(func(_ int, node *goquery.Selection) bool {
			rawHTML, err := node.Html()
			if err != nil {
				return true
			}

			imageURL := htmltext.FirstImageSrc(rawHTML)

			node.Find(noiseSelector).Remove()
			cleanHTML, err := node.Html()
			if err != nil {
				return true
			}
			cleanHTML = strings.TrimSpace(cleanHTML)

			if htmltext.NormalizedLen(cleanHTML) >= minBodyTextLen {
				bodyHTML = cleanHTML
				bodyImage = imageURL
				return false
			}
			return true
		})

		if bodyHTML != "" {
			return bodyHTML, bodyImage
		}
	}

	return "", ""
}

// parseArticleHTML extracts the main image and body from a fetched article
// page. Image resolution order: meta tag, body-local capture, first <img> in
// the cleaned body. A body whose normalized text is still under the minimum
// after merging is discarded.
func parseArticleHTML(doc *goquery.Document) pageDetails {
	imageURL := extractMetaImage(doc)

	bodyHTML, bodyImage := extractBody(doc)

	if imageURL == "" && bodyImage != "" {
		imageURL = bodyImage
	}
	if imageURL == "" && bodyHTML != "" {
		imageURL = htmltext.FirstImageSrc(bodyHTML)
	}

	if bodyHTML != "" && htmltext.NormalizedLen(bodyHTML) < minBodyTextLen {
		bodyHTML = ""
	}

	return pageDetails{BodyHTML: bodyHTML, ImageURL: imageURL}
}
