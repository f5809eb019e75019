// Package app assembles the ingestion runtimes from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bloggle-hq/bloggle-ingest/internal/cache"
	"github.com/bloggle-hq/bloggle-ingest/internal/config"
	"github.com/bloggle-hq/bloggle-ingest/internal/ingest"
	"github.com/bloggle-hq/bloggle-ingest/internal/logger"
	"github.com/bloggle-hq/bloggle-ingest/internal/scrape"
	"github.com/bloggle-hq/bloggle-ingest/internal/server"
	"github.com/bloggle-hq/bloggle-ingest/internal/sources"
	"github.com/bloggle-hq/bloggle-ingest/internal/storage"
	"github.com/bloggle-hq/bloggle-ingest/pkg/httpclient"
	"github.com/bloggle-hq/bloggle-ingest/pkg/publishers"
)

// Ingestd represents the ingestion daemon runtime. It owns the HTTP API, the
// crawl scheduler, and the shared storage handles.
type Ingestd struct {
	cfg        *config.Config
	sourcesReg *sources.Registry
	fanout     *publishers.Fanout
	service    *ingest.Service
	store      *storage.Store
	seen       cache.SeenCache
	srv        *server.Server
	scheduler  *scheduler
	log        logger.Logger
}

// NewIngestd builds the daemon runtime from config files.
func NewIngestd(ctx context.Context, cfg *config.Config, log logger.Logger) (*Ingestd, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sourcesReg, err := sources.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}
	sourceList := sourcesReg.All()
	slugs := make([]string, 0, len(sourceList))
	for _, src := range sourceList {
		slugs = append(slugs, src.Slug)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(slugs),
		"slugs": slugs,
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	log.InfoObj("storage opened", "storage_config", map[string]any{
		"path": cfg.DatabasePath,
	})

	seen, err := openSeenCache(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	scraper := scrape.NewScraper(httpclient.NewRestyClient(cfg.DetailTimeout), log)
	feedClient := httpclient.NewRestyClient(cfg.FetchTimeout)
	service := ingest.New(store, feedClient, scraper, seen, fanout, log)

	srv := server.New(store, service, sourcesReg, server.Options{
		RefreshLockTTL:  cfg.RefreshLockTTL,
		RefreshMaxItems: cfg.RefreshMaxItems,
	}, log)

	d := &Ingestd{
		cfg:        cfg,
		sourcesReg: sourcesReg,
		fanout:     fanout,
		service:    service,
		store:      store,
		seen:       seen,
		srv:        srv,
		log:        log,
	}
	if cfg.SchedulerEnabled {
		d.scheduler = newScheduler(service, store, sourcesReg, cfg, log)
	}
	return d, nil
}

// buildFanout loads and instantiates publishers. An empty path disables fanout.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if path == "" {
		return publishers.NewFanout(nil), nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, cfg := range enabled {
		summaries = append(summaries, map[string]string{"id": cfg.ID, "type": cfg.Type})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// openSeenCache opens the local seen-URL cache; an empty path disables it.
func openSeenCache(cfg *config.Config) (cache.SeenCache, error) {
	typ := "bbolt"
	if cfg.SeenCachePath == "" {
		typ = "none"
	}
	seen, err := cache.New(typ, cfg.SeenCachePath, cache.Options{
		EntryTTL:        cfg.SeenTTL,
		CleanupInterval: cfg.SeenCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("open seen cache: %w", err)
	}
	return seen, nil
}

// Run serves the HTTP API and the crawl scheduler until the context is cancelled.
func (d *Ingestd) Run(ctx context.Context) error {
	if d == nil || d.srv == nil {
		return fmt.Errorf("ingestd is not initialized")
	}
	defer d.closeAll()

	httpSrv := &http.Server{
		Addr:              d.cfg.HTTPAddr,
		Handler:           d.srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		d.log.InfoObj("http server starting", "http_addr", d.cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if d.scheduler != nil {
		go d.scheduler.run(ctx)
	}

	select {
	case <-ctx.Done():
		d.log.InfoObj("ingestd shutting down", "reason", ctx.Err())
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		d.log.ErrorObj("http shutdown failed", "error", err)
	}
	return nil
}

// closeAll closes the storage handles, logging any errors encountered.
func (d *Ingestd) closeAll() {
	if d == nil {
		return
	}
	if d.seen != nil {
		if err := d.seen.Close(); err != nil {
			d.log.ErrorObj("seen cache close failed", "error", err)
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.log.ErrorObj("storage close failed", "error", err)
		}
	}
}
