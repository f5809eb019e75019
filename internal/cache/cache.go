// Package cache provides a local TTL'd seen-URL cache. It is an advisory
// pre-filter in front of the database dedup check: entries are added only
// after the database confirms a URL, so a cold or wiped cache is always safe.
package cache

import (
	"strings"
	"time"
)

// SeenCache tracks canonical URLs that are already persisted.
type SeenCache interface {
	Close() error
	SeenURL(url string) (bool, error)
	MarkURL(url string) error
}

// Options controls retention characteristics for concrete cache implementations.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultEntryTTL        = 5 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// New creates the configured cache backend. An empty type disables caching.
func New(typ, path string, opts Options) (SeenCache, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopCache{}, nil
	default:
		return openBolt(path, opts)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopCache struct{}

func (noopCache) Close() error                 { return nil }
func (noopCache) SeenURL(string) (bool, error) { return false, nil }
func (noopCache) MarkURL(string) error         { return nil }
