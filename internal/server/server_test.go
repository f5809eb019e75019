package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bloggle-hq/bloggle-ingest/internal/domain"
	"github.com/bloggle-hq/bloggle-ingest/internal/sources"
)

type stubStore struct {
	locked    bool
	remaining time.Duration
	lockErr   error
	posts     []domain.Post
	listErr   error
}

func (s *stubStore) TryAcquireLock(context.Context, string, time.Duration) (bool, time.Duration, error) {
	if s.lockErr != nil {
		return false, 0, s.lockErr
	}
	if s.locked {
		return false, s.remaining, nil
	}
	return true, 0, nil
}

func (s *stubStore) ListNewsPosts(context.Context, int, int) ([]domain.Post, error) {
	return s.posts, s.listErr
}

type stubPuller struct {
	lastLimit int
	lastSlug  string
	result    domain.Result
	err       error
}

func (p *stubPuller) Pull(_ context.Context, src sources.Source, limit int) (domain.Result, error) {
	p.lastLimit = limit
	p.lastSlug = src.Slug
	return p.result, p.err
}

func testRegistry(t *testing.T) *sources.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	raw := `
sources:
  - slug: klix-ba
    name: Klix.ba
    homepage_url: https://www.klix.ba
    rss_url: https://www.klix.ba/rss
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	reg, err := sources.LoadRegistry(path)
	require.NoError(t, err)
	return reg
}

func newTestServer(t *testing.T, store *stubStore, puller *stubPuller) *Server {
	t.Helper()
	return New(store, puller, testRegistry(t), Options{
		RefreshLockTTL:  90 * time.Second,
		RefreshMaxItems: 10,
	}, nil)
}

func doRequest(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRefreshSuccess(t *testing.T) {
	puller := &stubPuller{result: domain.Result{Fetched: 3, Created: 2, Skipped: 1}}
	s := newTestServer(t, &stubStore{}, puller)

	rec := doRequest(s, http.MethodPost, "/news/refresh", []byte(`{"limit":5}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp["status"])
	require.EqualValues(t, 3, resp["fetched"])
	require.EqualValues(t, 2, resp["created"])
	require.EqualValues(t, 1, resp["skipped"])
	require.Equal(t, 5, puller.lastLimit)
	require.Equal(t, "klix-ba", puller.lastSlug)
}

func TestRefreshClampsLimit(t *testing.T) {
	puller := &stubPuller{}
	s := newTestServer(t, &stubStore{}, puller)

	rec := doRequest(s, http.MethodPost, "/news/refresh", []byte(`{"limit":99}`))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 10, puller.lastLimit)

	rec = doRequest(s, http.MethodPost, "/news/refresh", []byte(`{"limit":-3}`))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, puller.lastLimit)

	// Missing body falls back to the configured maximum.
	rec = doRequest(s, http.MethodPost, "/news/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 10, puller.lastLimit)
}

func TestRefreshLockedReturns429(t *testing.T) {
	store := &stubStore{locked: true, remaining: 42 * time.Second}
	puller := &stubPuller{}
	s := newTestServer(t, store, puller)

	rec := doRequest(s, http.MethodPost, "/news/refresh", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 42, resp["retry_after"])
	require.Equal(t, "Refresh locked. Try again in 42 seconds.", resp["message"])
	require.Equal(t, 0, puller.lastLimit)
}

func TestRefreshLockedReportsAtLeastOneSecond(t *testing.T) {
	store := &stubStore{locked: true, remaining: 200 * time.Millisecond}
	s := newTestServer(t, store, &stubPuller{})

	rec := doRequest(s, http.MethodPost, "/news/refresh", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 1, resp["retry_after"])
}

func TestRefreshPullFailure(t *testing.T) {
	puller := &stubPuller{err: errors.New("feed unreachable")}
	s := newTestServer(t, &stubStore{}, puller)

	rec := doRequest(s, http.MethodPost, "/news/refresh", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Unable to refresh Klix.ba news.", resp["message"])
}

func TestRefreshUnknownSource(t *testing.T) {
	s := newTestServer(t, &stubStore{}, &stubPuller{})

	rec := doRequest(s, http.MethodPost, "/news/refresh", []byte(`{"source":"nope"}`))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListNews(t *testing.T) {
	store := &stubStore{posts: []domain.Post{
		{ID: 2, Title: "Druga"},
		{ID: 1, Title: "Prva"},
	}}
	s := newTestServer(t, store, &stubPuller{})

	rec := doRequest(s, http.MethodGet, "/news/?limit=2&page=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data  []domain.Post `json:"data"`
		Page  int           `json:"page"`
		Limit int           `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	require.Equal(t, 1, resp.Page)
	require.Equal(t, 2, resp.Limit)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &stubStore{}, &stubPuller{})

	rec := doRequest(s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
