// Package server exposes the ingestion HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bloggle-hq/bloggle-ingest/internal/domain"
	"github.com/bloggle-hq/bloggle-ingest/internal/logger"
	"github.com/bloggle-hq/bloggle-ingest/internal/sources"
	"github.com/bloggle-hq/bloggle-ingest/internal/storage"
)

const (
	defaultListPageSize = 20
	maxListPageSize     = 100
)

// Store is the persistence surface the handlers depend on.
type Store interface {
	TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, time.Duration, error)
	ListNewsPosts(ctx context.Context, limit, offset int) ([]domain.Post, error)
}

// Puller runs one ingestion pass for a source.
type Puller interface {
	Pull(ctx context.Context, src sources.Source, limit int) (domain.Result, error)
}

// Options bundles the tunables the server needs from configuration.
type Options struct {
	RefreshLockTTL  time.Duration
	RefreshMaxItems int
}

// Server is the ingestion HTTP server.
type Server struct {
	store   Store
	puller  Puller
	sources *sources.Registry
	router  chi.Router
	log     logger.Logger
	opts    Options
}

// New creates a server with routes mounted.
func New(store Store, puller Puller, reg *sources.Registry, opts Options, log logger.Logger) *Server {
	if log == nil {
		log = &logger.NopLogger{}
	}
	if opts.RefreshLockTTL <= 0 {
		opts.RefreshLockTTL = 90 * time.Second
	}
	if opts.RefreshMaxItems <= 0 {
		opts.RefreshMaxItems = 10
	}

	s := &Server{
		store:   store,
		puller:  puller,
		sources: reg,
		log:     log,
		opts:    opts,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Route("/news", func(r chi.Router) {
		r.Get("/", s.handleListNews)
		r.Post("/refresh", s.handleRefresh)
	})

	s.router = r
}

// Handler returns the mounted router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger logs each request with latency and status.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.InfoObj("http request", "http_request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListNews returns stored news posts, newest first.
func (s *Server) handleListNews(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListPageSize)
	if limit < 1 {
		limit = 1
	}
	if limit > maxListPageSize {
		limit = maxListPageSize
	}
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}

	posts, err := s.store.ListNewsPosts(r.Context(), limit, (page-1)*limit)
	if err != nil {
		s.log.ErrorObj("list news failed", "http_list_error", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Unable to load news."})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  posts,
		"page":  page,
		"limit": limit,
	})
}

type refreshRequest struct {
	Limit  int    `json:"limit"`
	Source string `json:"source"`
}

// handleRefresh triggers a single locked ingestion run. The lock is taken
// before anything else; concurrent callers inside the TTL window get a 429
// with the remaining hold time.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	acquired, remaining, err := s.store.TryAcquireLock(r.Context(), storage.RefreshLockKey, s.opts.RefreshLockTTL)
	if err != nil {
		s.log.ErrorObj("refresh lock failed", "http_refresh_error", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Unable to refresh news."})
		return
	}
	if !acquired {
		secs := int(remaining / time.Second)
		if secs < 1 {
			secs = 1
		}
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"message":     fmt.Sprintf("Refresh locked. Try again in %d seconds.", secs),
			"retry_after": secs,
		})
		return
	}

	var req refreshRequest
	if r.Body != nil {
		// Absent or malformed bodies fall back to defaults.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	limit := req.Limit
	if limit == 0 {
		limit = s.opts.RefreshMaxItems
	}
	if limit < 1 {
		limit = 1
	}
	if limit > s.opts.RefreshMaxItems {
		limit = s.opts.RefreshMaxItems
	}

	src, ok := s.resolveSource(req.Source)
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"message": fmt.Sprintf("Unknown news source %q.", req.Source),
		})
		return
	}

	result, err := s.puller.Pull(r.Context(), src, limit)
	if err != nil {
		s.log.ErrorObj("refresh pull failed", "http_refresh_error", map[string]any{
			"source": src.Slug,
			"error":  err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message": fmt.Sprintf("Unable to refresh %s news.", src.Name),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"fetched": result.Fetched,
		"created": result.Created,
		"skipped": result.Skipped,
	})
}

// resolveSource picks the requested source, defaulting to the first registered.
func (s *Server) resolveSource(slug string) (sources.Source, bool) {
	slug = strings.TrimSpace(slug)
	if slug != "" {
		return s.sources.BySlug(slug)
	}
	all := s.sources.All()
	if len(all) == 0 {
		return sources.Source{}, false
	}
	return all[0], true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
