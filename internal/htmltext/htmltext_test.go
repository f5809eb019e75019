package htmltext

import "testing"

func TestNormalizeStripsTagsAndEntities(t *testing.T) {
	got := Normalize("<p>Hello&nbsp;&amp;   <b>World</b></p>")
	if got != "hello & world" {
		t.Fatalf("Normalize returned %q", got)
	}
}

func TestNormalizeFoldsCase(t *testing.T) {
	if Normalize("<h1>BREAKING News</h1>") != Normalize("breaking news") {
		t.Fatalf("expected case-insensitive equality")
	}
}

func TestNormalizedLenCountsRunes(t *testing.T) {
	if got := NormalizedLen("<p>čćžšđ</p>"); got != 5 {
		t.Fatalf("NormalizedLen returned %d", got)
	}
}

func TestFirstImageSrc(t *testing.T) {
	html := `<p>text</p><img alt="x" src="https://cdn.example/a.jpg"><img src="/b.jpg">`
	if got := FirstImageSrc(html); got != "https://cdn.example/a.jpg" {
		t.Fatalf("FirstImageSrc returned %q", got)
	}
	if got := FirstImageSrc("<p>no images</p>"); got != "" {
		t.Fatalf("expected empty src, got %q", got)
	}
}

func TestStripFirstImageTagRemovesOnlyFirst(t *testing.T) {
	html := `<img src="a.jpg"><p>body</p><img src="b.jpg">`
	got := StripFirstImageTag(html)
	if got != `<p>body</p><img src="b.jpg">` {
		t.Fatalf("StripFirstImageTag returned %q", got)
	}

	plain := "<p>untouched</p>"
	if got := StripFirstImageTag(plain); got != plain {
		t.Fatalf("expected input unchanged, got %q", got)
	}
}
