// Package storage persists news sources and posts and hosts the settings-table
// refresh lock. Backed by sqlite through sqlx.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS news_sources (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	name               TEXT NOT NULL,
	slug               TEXT NOT NULL UNIQUE,
	homepage_url       TEXT NOT NULL DEFAULT '',
	rss_url            TEXT NOT NULL DEFAULT '',
	is_active          INTEGER NOT NULL DEFAULT 1,
	crawl_interval_min INTEGER NOT NULL DEFAULT 15,
	last_crawled_at    TIMESTAMP,
	created_at         TIMESTAMP NOT NULL,
	updated_at         TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	type           TEXT NOT NULL DEFAULT 'user_post',
	title          TEXT NOT NULL,
	slug           TEXT NOT NULL UNIQUE,
	body_html      TEXT,
	link_url       TEXT,
	image_url      TEXT,
	status         TEXT NOT NULL DEFAULT 'published',
	news_source_id INTEGER REFERENCES news_sources(id) ON DELETE SET NULL,
	published_at   TIMESTAMP,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posts_link_url ON posts(link_url);
CREATE INDEX IF NOT EXISTS idx_posts_type_status ON posts(type, status);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// Store wraps the application database.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if necessary) the sqlite database at path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
