package app

import (
	"context"
	"time"

	"github.com/bloggle-hq/bloggle-ingest/internal/config"
	"github.com/bloggle-hq/bloggle-ingest/internal/ingest"
	"github.com/bloggle-hq/bloggle-ingest/internal/logger"
	"github.com/bloggle-hq/bloggle-ingest/internal/sources"
	"github.com/bloggle-hq/bloggle-ingest/internal/storage"
)

// lockStore is the subset of the store the scheduler needs.
type lockStore interface {
	TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, time.Duration, error)
}

// scheduler crawls active sources on their configured intervals. It shares the
// refresh lock with the HTTP endpoint so a scheduled run and a manual refresh
// never ingest concurrently.
type scheduler struct {
	service  *ingest.Service
	store    lockStore
	sources  *sources.Registry
	tick     time.Duration
	lockTTL  time.Duration
	maxItems int
	lastRun  map[string]time.Time
	log      logger.Logger
}

func newScheduler(service *ingest.Service, store lockStore, reg *sources.Registry, cfg *config.Config, log logger.Logger) *scheduler {
	return &scheduler{
		service:  service,
		store:    store,
		sources:  reg,
		tick:     cfg.SchedulerTickInterval,
		lockTTL:  cfg.RefreshLockTTL,
		maxItems: cfg.PullDefaultItems,
		lastRun:  make(map[string]time.Time),
		log:      log,
	}
}

// run ticks until the context is cancelled, crawling each source that is due.
func (s *scheduler) run(ctx context.Context) {
	s.log.InfoObj("scheduler starting", "scheduler_meta", map[string]any{
		"tick":    s.tick.String(),
		"sources": len(s.sources.All()),
	})

	s.sweep(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.InfoObj("scheduler exiting", "reason", ctx.Err())
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs one pass over the registry, pulling every source that is due.
func (s *scheduler) sweep(ctx context.Context) {
	now := time.Now()
	for _, src := range s.sources.All() {
		if !s.due(src, now) {
			continue
		}
		s.crawl(ctx, src)
		if ctx.Err() != nil {
			return
		}
	}
}

// due reports whether the source should be crawled at the given time.
func (s *scheduler) due(src sources.Source, now time.Time) bool {
	if !src.ActiveValue() {
		return false
	}
	last, ok := s.lastRun[src.Slug]
	if !ok {
		return true
	}
	return now.Sub(last) >= src.CrawlInterval()
}

// crawl takes the shared refresh lock and runs a single pull. When the lock
// is held elsewhere the source stays due and is retried on a later tick.
func (s *scheduler) crawl(ctx context.Context, src sources.Source) {
	acquired, remaining, err := s.store.TryAcquireLock(ctx, storage.RefreshLockKey, s.lockTTL)
	if err != nil {
		s.log.ErrorObj("scheduler lock failed", "scheduler_error", map[string]any{
			"source": src.Slug,
			"error":  err.Error(),
		})
		return
	}
	if !acquired {
		s.log.DebugObj("scheduler skipped; refresh lock held", "scheduler_skip", map[string]any{
			"source":      src.Slug,
			"retry_after": remaining.String(),
		})
		return
	}

	s.lastRun[src.Slug] = time.Now()

	result, err := s.service.Pull(ctx, src, s.maxItems)
	if err != nil {
		s.log.ErrorObj("scheduled pull failed", "scheduler_error", map[string]any{
			"source": src.Slug,
			"error":  err.Error(),
		})
		return
	}

	s.log.InfoObj("scheduled pull finished", "scheduler_result", map[string]any{
		"source":  src.Slug,
		"fetched": result.Fetched,
		"created": result.Created,
		"skipped": result.Skipped,
		"errors":  len(result.Errors),
	})
}
