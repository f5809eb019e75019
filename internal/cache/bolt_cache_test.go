package cache

import (
	"testing"
	"time"
)

func TestBoltCacheMarksAndExpiresURLs(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		EntryTTL:        1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	cacheRaw, err := openBolt(dir+"/seen.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	c := cacheRaw.(*boltCache)
	defer c.Close()

	const url = "https://www.klix.ba/vijesti/x/1"

	seen, err := c.SeenURL(url)
	if err != nil || seen {
		t.Fatalf("expected unseen url, seen=%v err=%v", seen, err)
	}

	if err := c.MarkURL(url); err != nil {
		t.Fatalf("MarkURL: %v", err)
	}

	seen, err = c.SeenURL(url)
	if err != nil || !seen {
		t.Fatalf("expected url marked as seen, got seen=%v err=%v", seen, err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	c.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	seen, err = c.SeenURL(url)
	if err != nil {
		t.Fatalf("SeenURL after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestNewSupportsNoop(t *testing.T) {
	c, err := New("none", "", Options{})
	if err != nil {
		t.Fatalf("New none: %v", err)
	}
	if err := c.MarkURL("x"); err != nil {
		t.Fatalf("noop cache MarkURL: %v", err)
	}
	seen, err := c.SeenURL("x")
	if err != nil || seen {
		t.Fatalf("noop cache should never report seen")
	}
}
