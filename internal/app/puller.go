package app

import (
	"context"
	"fmt"

	"github.com/bloggle-hq/bloggle-ingest/internal/cache"
	"github.com/bloggle-hq/bloggle-ingest/internal/config"
	"github.com/bloggle-hq/bloggle-ingest/internal/ingest"
	"github.com/bloggle-hq/bloggle-ingest/internal/logger"
	"github.com/bloggle-hq/bloggle-ingest/internal/scrape"
	"github.com/bloggle-hq/bloggle-ingest/internal/sources"
	"github.com/bloggle-hq/bloggle-ingest/internal/storage"
	"github.com/bloggle-hq/bloggle-ingest/pkg/httpclient"
)

// PullRunner is the one-shot ingestion runtime used by the CLI. It wires the
// same pipeline as the daemon but without the HTTP API or scheduler.
type PullRunner struct {
	Service *ingest.Service
	Sources *sources.Registry

	store *storage.Store
	seen  cache.SeenCache
	log   logger.Logger
}

// NewPullRunner builds the one-shot runtime from config files.
func NewPullRunner(ctx context.Context, cfg *config.Config, log logger.Logger) (*PullRunner, error) {
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

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	seen, err := openSeenCache(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	scraper := scrape.NewScraper(httpclient.NewRestyClient(cfg.DetailTimeout), log)
	feedClient := httpclient.NewRestyClient(cfg.FetchTimeout)
	service := ingest.New(store, feedClient, scraper, seen, fanout, log)

	return &PullRunner{
		Service: service,
		Sources: sourcesReg,
		store:   store,
		seen:    seen,
		log:     log,
	}, nil
}

// Close releases the storage handles.
func (p *PullRunner) Close() {
	if p == nil {
		return
	}
	if p.seen != nil {
		if err := p.seen.Close(); err != nil {
			p.log.ErrorObj("seen cache close failed", "error", err)
		}
	}
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			p.log.ErrorObj("storage close failed", "error", err)
		}
	}
}
