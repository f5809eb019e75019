package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bloggle-hq/bloggle-ingest/internal/domain"
	"github.com/bloggle-hq/bloggle-ingest/internal/sources"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "bloggle.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func klixSource() sources.Source {
	return sources.Source{
		Slug:             "klix-ba",
		Name:             "Klix.ba",
		HomepageURL:      "https://www.klix.ba",
		RSSURL:           "https://www.klix.ba/rss",
		CrawlIntervalMin: 15,
	}
}

func TestEnsureNewsSourceIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.EnsureNewsSource(ctx, klixSource())
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	require.Equal(t, "klix-ba", first.Slug)
	require.True(t, first.IsActive)

	second, err := store.EnsureNewsSource(ctx, klixSource())
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestCreateNewsPostAndDedup(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	source, err := store.EnsureNewsSource(ctx, klixSource())
	require.NoError(t, err)

	published := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	art := domain.Article{
		Title:       "Neki naslov vijesti",
		URL:         "https://www.klix.ba/vijesti/neki-naslov/1",
		PublishedAt: &published,
		BodyHTML:    "<p>tijelo</p>",
		ImageURL:    "https://cdn.klix.ba/a.jpg",
	}

	exists, err := store.PostExistsByLink(ctx, art.URL)
	require.NoError(t, err)
	require.False(t, exists)

	post, err := store.CreateNewsPost(ctx, source, art)
	require.NoError(t, err)
	require.Equal(t, domain.PostTypeNews, post.Type)
	require.Equal(t, domain.PostStatusPublished, post.Status)
	require.NotNil(t, post.LinkURL)
	require.Equal(t, art.URL, *post.LinkURL)
	require.True(t, strings.HasPrefix(post.Slug, "neki-naslov-vijesti-"))

	exists, err = store.PostExistsByLink(ctx, art.URL)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestCreateNewsPostNullableFields(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	source, err := store.EnsureNewsSource(ctx, klixSource())
	require.NoError(t, err)

	post, err := store.CreateNewsPost(ctx, source, domain.Article{
		Title: "Samo naslov",
		URL:   "https://www.klix.ba/vijesti/samo-naslov/2",
	})
	require.NoError(t, err)
	require.Nil(t, post.BodyHTML)
	require.Nil(t, post.ImageURL)
	require.Nil(t, post.PublishedAt)
}

func TestListNewsPostsNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	source, err := store.EnsureNewsSource(ctx, klixSource())
	require.NoError(t, err)

	for i, url := range []string{
		"https://www.klix.ba/vijesti/a/1",
		"https://www.klix.ba/vijesti/b/2",
		"https://www.klix.ba/vijesti/c/3",
	} {
		_, err := store.CreateNewsPost(ctx, source, domain.Article{
			Title: "Vijest " + string(rune('A'+i)),
			URL:   url,
		})
		require.NoError(t, err)
	}

	posts, err := store.ListNewsPosts(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "Vijest C", posts[0].Title)

	rest, err := store.ListNewsPosts(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, "Vijest A", rest[0].Title)
}

func TestSlugify(t *testing.T) {
	require.Equal(t, "hello-world", slugify("Hello, World!"))
	require.Equal(t, "a-b-c", slugify("  a  b  c  "))
	require.Equal(t, "", slugify("šđčćž"))
}

func TestTryAcquireLockMutualExclusion(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ok, _, err := store.TryAcquireLock(ctx, RefreshLockKey, 90*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, remaining, err := store.TryAcquireLock(ctx, RefreshLockKey, 90*time.Second)
	require.NoError(t, err)
	require.False(t, ok)
	require.GreaterOrEqual(t, remaining, time.Second)
	require.LessOrEqual(t, remaining, 90*time.Second)
}

func TestTryAcquireLockTakesOverExpiredEntry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ok, _, err := store.TryAcquireLock(ctx, RefreshLockKey, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(1100 * time.Millisecond)

	ok, _, err = store.TryAcquireLock(ctx, RefreshLockKey, 90*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
}
