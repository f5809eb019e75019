// Package sources contains the pluggable news-source registry (YAML/JSON).
package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source declares one crawlable feed origin. Slug is the idempotency key for
// the persisted news_sources row; IsActive and CrawlIntervalMin govern whether
// the scheduler considers the source due.
type Source struct {
	Slug             string         `json:"slug" yaml:"slug"`
	Name             string         `json:"name" yaml:"name"`
	HomepageURL      string         `json:"homepage_url" yaml:"homepage_url"`
	RSSURL           string         `json:"rss_url" yaml:"rss_url"`
	IsActive         *bool          `json:"is_active" yaml:"is_active"`
	CrawlIntervalMin int64          `json:"crawl_interval_min" yaml:"crawl_interval_min"`
	Config           map[string]any `json:"config" yaml:"config"`
}

type registryFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

// Registry holds the loaded source entries.
type Registry struct {
	sources []Source
	idx     map[string]Source
}

const defaultCrawlIntervalMin = 15

// LoadRegistry loads the source registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	fileReg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(fileReg.Sources) == 0 {
		return nil, errors.New("sources file contains no sources entries")
	}

	reg := &Registry{
		sources: make([]Source, len(fileReg.Sources)),
		idx:     make(map[string]Source, len(fileReg.Sources)),
	}

	for i := range fileReg.Sources {
		src := sanitizeSource(fileReg.Sources[i])
		if err := validateSource(src); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, exists := reg.idx[src.Slug]; exists {
			return nil, fmt.Errorf("duplicate source slug %q", src.Slug)
		}
		reg.sources[i] = src
		reg.idx[src.Slug] = src
	}

	return reg, nil
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg registryFile
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

func sanitizeSource(src Source) Source {
	src.Slug = strings.TrimSpace(src.Slug)
	src.Name = strings.TrimSpace(src.Name)
	src.HomepageURL = strings.TrimSpace(src.HomepageURL)
	src.RSSURL = strings.TrimSpace(src.RSSURL)

	if src.Config == nil {
		src.Config = map[string]any{}
	}
	if src.CrawlIntervalMin <= 0 {
		src.CrawlIntervalMin = defaultCrawlIntervalMin
	}
	if src.IsActive == nil {
		def := true
		src.IsActive = &def
	}

	return src
}

func validateSource(src Source) error {
	if src.Slug == "" {
		return errors.New("slug is required")
	}
	if src.Name == "" {
		return fmt.Errorf("name is required for source %q", src.Slug)
	}
	if src.RSSURL == "" {
		return fmt.Errorf("rss_url is required for source %q", src.Slug)
	}
	if src.HomepageURL == "" {
		return fmt.Errorf("homepage_url is required for source %q", src.Slug)
	}
	return nil
}

// All returns a copy of the loaded sources.
func (r *Registry) All() []Source {
	if r == nil || len(r.sources) == 0 {
		return nil
	}
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// BySlug returns the source entry for the given slug, if loaded.
func (r *Registry) BySlug(slug string) (Source, bool) {
	slug = strings.TrimSpace(slug)
	if r == nil || slug == "" {
		return Source{}, false
	}
	src, ok := r.idx[slug]
	return src, ok
}

// ActiveValue returns the is_active flag defaulting to true.
func (s Source) ActiveValue() bool {
	if s.IsActive == nil {
		return true
	}
	return *s.IsActive
}

// CrawlInterval returns the source's crawl cadence as a duration.
func (s Source) CrawlInterval() time.Duration {
	min := s.CrawlIntervalMin
	if min <= 0 {
		min = defaultCrawlIntervalMin
	}
	return time.Duration(min) * time.Minute
}
