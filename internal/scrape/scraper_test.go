package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bloggle-hq/bloggle-ingest/internal/domain"
	"github.com/bloggle-hq/bloggle-ingest/pkg/httpclient"
)

// stubHTTPResponse implements httpclient.Response.
type stubHTTPResponse struct {
	body       []byte
	statusCode int
}

func (s stubHTTPResponse) Body() []byte    { return s.body }
func (s stubHTTPResponse) StatusCode() int { return s.statusCode }

// stubHTTPClient returns a single response or error and counts calls.
type stubHTTPClient struct {
	resp  httpclient.Response
	err   error
	calls int
}

func (s *stubHTTPClient) Get(_ context.Context, _ string, _ map[string]string) (httpclient.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

const sufficientBody = "<p>Dovoljno dugačak sadržaj članka koji sasvim sigurno prelazi prag od šezdeset znakova teksta.</p>"

func TestNeedsBody(t *testing.T) {
	cases := []struct {
		name string
		art  domain.Article
		want bool
	}{
		{"empty body", domain.Article{Title: "T"}, true},
		{"title echo", domain.Article{Title: "Same Headline", BodyHTML: "<b>same headline</b>"}, true},
		{"too short", domain.Article{Title: "T", BodyHTML: "<p>short</p>"}, true},
		{"sufficient", domain.Article{Title: "T", BodyHTML: sufficientBody}, false},
	}
	for _, tc := range cases {
		if got := NeedsBody(tc.art); got != tc.want {
			t.Fatalf("%s: NeedsBody=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestNeedsDetailsRequiresImageToo(t *testing.T) {
	art := domain.Article{Title: "T", BodyHTML: sufficientBody}
	if !NeedsDetails(art) {
		t.Fatalf("expected details needed when image missing")
	}
	art.ImageURL = "https://cdn.example/a.jpg"
	if NeedsDetails(art) {
		t.Fatalf("expected no details needed when body and image present")
	}
}

func TestEnrichSkipsFetchWhenSufficient(t *testing.T) {
	client := &stubHTTPClient{resp: stubHTTPResponse{statusCode: 200, body: []byte("x")}}
	scraper := NewScraper(client, nil)

	art := domain.Article{
		Title:    "T",
		URL:      "https://example.com/a",
		BodyHTML: sufficientBody,
		ImageURL: "https://cdn.example/a.jpg",
	}
	got := scraper.Enrich(context.Background(), nil, art)
	if client.calls != 0 {
		t.Fatalf("expected no detail fetch, got %d calls", client.calls)
	}
	if got != art {
		t.Fatalf("expected article unchanged")
	}
}

func TestEnrichMergesBodyAndImage(t *testing.T) {
	page := `
<html>
<head><meta property="og:image" content="https://cdn.example/og.jpg"></head>
<body><div class="article-body">` + sufficientBody + `</div></body>
</html>`
	client := &stubHTTPClient{resp: stubHTTPResponse{statusCode: 200, body: []byte(page)}}
	scraper := NewScraper(client, nil)

	art := domain.Article{Title: "T", URL: "https://example.com/a"}
	got := scraper.Enrich(context.Background(), nil, art)
	if client.calls != 1 {
		t.Fatalf("expected one detail fetch, got %d", client.calls)
	}
	if !strings.Contains(got.BodyHTML, "Dovoljno dugačak") {
		t.Fatalf("expected body merged, got %q", got.BodyHTML)
	}
	if got.ImageURL != "https://cdn.example/og.jpg" {
		t.Fatalf("expected image merged, got %q", got.ImageURL)
	}
}

func TestEnrichKeepsSufficientBodyFetchesImageOnly(t *testing.T) {
	page := `
<html>
<head><meta property="og:image" content="https://cdn.example/og.jpg"></head>
<body><div class="article-body"><p>Potpuno drugačiji sadržaj stranice koji također prelazi prag od šezdeset znakova.</p></div></body>
</html>`
	client := &stubHTTPClient{resp: stubHTTPResponse{statusCode: 200, body: []byte(page)}}
	scraper := NewScraper(client, nil)

	art := domain.Article{Title: "T", URL: "https://example.com/a", BodyHTML: sufficientBody}
	got := scraper.Enrich(context.Background(), nil, art)
	if got.BodyHTML != sufficientBody {
		t.Fatalf("expected original body kept, got %q", got.BodyHTML)
	}
	if got.ImageURL != "https://cdn.example/og.jpg" {
		t.Fatalf("expected image adopted, got %q", got.ImageURL)
	}
}

func TestEnrichSwallowsFetchFailures(t *testing.T) {
	client := &stubHTTPClient{err: errors.New("connection refused")}
	scraper := NewScraper(client, nil)

	art := domain.Article{Title: "T", URL: "https://example.com/a"}
	if got := scraper.Enrich(context.Background(), nil, art); got != art {
		t.Fatalf("expected article unchanged on fetch failure")
	}

	client = &stubHTTPClient{resp: stubHTTPResponse{statusCode: 503, body: []byte("oops")}}
	scraper = NewScraper(client, nil)
	if got := scraper.Enrich(context.Background(), nil, art); got != art {
		t.Fatalf("expected article unchanged on bad status")
	}
}

func TestEnrichStripsMergedFirstImage(t *testing.T) {
	page := `
<html><body><div class="article-body"><img src="https://cdn.example/lead.jpg">` + sufficientBody + `</div></body></html>`
	client := &stubHTTPClient{resp: stubHTTPResponse{statusCode: 200, body: []byte(page)}}
	scraper := NewScraper(client, nil)

	art := domain.Article{Title: "T", URL: "https://example.com/a"}
	got := scraper.Enrich(context.Background(), nil, art)
	if got.ImageURL != "https://cdn.example/lead.jpg" {
		t.Fatalf("expected body-local image, got %q", got.ImageURL)
	}
	if strings.Contains(got.BodyHTML, "<img") {
		t.Fatalf("expected merged body without img tag, got %q", got.BodyHTML)
	}
}
