package feed

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

const feedHeader = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
<title>Vijesti</title>`

const feedFooter = `</channel></rss>`

func TestParseReturnsItemsInFeedOrder(t *testing.T) {
	body := feedHeader + `
<item><title>First</title><link>https://example.com/1</link><pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate></item>
<item><title>Second</title><link>https://example.com/2</link></item>
<item><title>Third</title><link>https://example.com/3</link></item>
` + feedFooter

	articles, err := Parse(body, 10)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(articles))
	}
	for i, want := range []string{"First", "Second", "Third"} {
		if articles[i].Title != want {
			t.Fatalf("article %d title %q, want %q", i, articles[i].Title, want)
		}
	}
	if articles[0].PublishedAt == nil {
		t.Fatalf("expected parsed pubDate on first article")
	}
	if articles[1].PublishedAt != nil {
		t.Fatalf("expected nil pubDate when absent")
	}
}

func TestParseBoundsOutput(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(feedHeader)
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&sb, `<item><title>T%d</title><link>https://example.com/%d</link></item>`, i, i)
	}
	sb.WriteString(feedFooter)

	articles, err := Parse(sb.String(), 5)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(articles) != 5 {
		t.Fatalf("expected 5 articles, got %d", len(articles))
	}
}

func TestParseSkipsItemsWithEmptyTitleOrLink(t *testing.T) {
	body := feedHeader + `
<item><title>  </title><link>https://example.com/1</link></item>
<item><title>Kept</title><link> </link></item>
<item><title>Real</title><link>https://example.com/3</link></item>
` + feedFooter

	articles, err := Parse(body, 10)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "Real" {
		t.Fatalf("expected only the valid item, got %#v", articles)
	}
}

func TestParsePrefersEncodedContentOverDescription(t *testing.T) {
	body := feedHeader + `
<item>
  <title>Story</title>
  <link>https://example.com/s</link>
  <description>short description</description>
  <content:encoded><![CDATA[<p>full rich body text that is clearly longer</p>]]></content:encoded>
</item>` + feedFooter

	articles, err := Parse(body, 10)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(articles[0].BodyHTML, "full rich body") {
		t.Fatalf("expected encoded content, got %q", articles[0].BodyHTML)
	}
}

func TestParseImagePriorityAndFirstImgStrip(t *testing.T) {
	body := feedHeader + `
<item>
  <title>Story</title>
  <link>https://example.com/s</link>
  <media:content url="https://cdn.example/media.jpg"/>
  <enclosure url="https://cdn.example/enclosure.jpg" type="image/jpeg"/>
  <description><![CDATA[<img src="https://cdn.example/inline.jpg"><p>body text for the story</p>]]></description>
</item>` + feedFooter

	articles, err := Parse(body, 10)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	art := articles[0]
	if art.ImageURL != "https://cdn.example/media.jpg" {
		t.Fatalf("expected media:content image, got %q", art.ImageURL)
	}
	if strings.Contains(art.BodyHTML, "<img") {
		t.Fatalf("expected first img stripped from body, got %q", art.BodyHTML)
	}
}

func TestParseFallsBackToInlineBodyImage(t *testing.T) {
	body := feedHeader + `
<item>
  <title>Story</title>
  <link>https://example.com/s</link>
  <description><![CDATA[<img src="https://cdn.example/inline.jpg"><p>body text for the story</p>]]></description>
</item>` + feedFooter

	articles, err := Parse(body, 10)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if articles[0].ImageURL != "https://cdn.example/inline.jpg" {
		t.Fatalf("expected inline image fallback, got %q", articles[0].ImageURL)
	}
}

func TestParseSuppressesTitleEchoBody(t *testing.T) {
	body := feedHeader + `
<item>
  <title>Same Headline</title>
  <link>https://example.com/s</link>
  <description><![CDATA[<b>Same  Headline</b>]]></description>
</item>` + feedFooter

	articles, err := Parse(body, 10)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if articles[0].BodyHTML != "" {
		t.Fatalf("expected title-echo body discarded, got %q", articles[0].BodyHTML)
	}
}

func TestParseRejectsNonFeedDocuments(t *testing.T) {
	for _, body := range []string{
		"not xml at all <<<",
		"<html><body>a page</body></html>",
		"<rss><channel><title>empty</title></channel></rss>",
	} {
		if _, err := Parse(body, 10); err == nil {
			t.Fatalf("expected ParseError for %q", body)
		}
	}
}

func TestParseDate(t *testing.T) {
	if got := ParseDate("1136214245"); got == nil || got.Unix() != 1136214245 {
		t.Fatalf("epoch parse failed: %v", got)
	}

	got := ParseDate("Mon, 02 Jan 2006 15:04:05 +0000")
	if got == nil || !got.Equal(time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)) {
		t.Fatalf("rfc1123z parse failed: %v", got)
	}

	if ParseDate("") != nil || ParseDate("not a date") != nil {
		t.Fatalf("expected nil for unparsable input")
	}
}
