package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	HTTPAddr       string `mapstructure:"http_addr"`
	DatabasePath   string `mapstructure:"database_path"`
	SeenCachePath  string `mapstructure:"seen_cache_path"`
	SourcesFile    string `mapstructure:"sources_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	RefreshLockTTLSeconds int64         `mapstructure:"refresh_lock_ttl_seconds"`
	RefreshLockTTL        time.Duration `mapstructure:"-"`

	// RefreshMaxItems bounds the refresh endpoint; PullDefaultItems and
	// PullMaxItems bound the scheduled/CLI entry point.
	RefreshMaxItems  int `mapstructure:"refresh_max_items"`
	PullDefaultItems int `mapstructure:"pull_default_items"`
	PullMaxItems     int `mapstructure:"pull_max_items"`

	FetchTimeoutSeconds  int64         `mapstructure:"fetch_timeout_seconds"`
	DetailTimeoutSeconds int64         `mapstructure:"detail_timeout_seconds"`
	FetchTimeout         time.Duration `mapstructure:"-"`
	DetailTimeout        time.Duration `mapstructure:"-"`

	SeenTTLSeconds        int64         `mapstructure:"seen_ttl_seconds"`
	SeenCleanupSeconds    int64         `mapstructure:"seen_cleanup_interval_seconds"`
	SeenTTL               time.Duration `mapstructure:"-"`
	SeenCleanupInterval   time.Duration `mapstructure:"-"`
	SchedulerEnabled      bool          `mapstructure:"scheduler_enabled"`
	SchedulerTickSeconds  int64         `mapstructure:"scheduler_tick_seconds"`
	SchedulerTickInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "bloggle-ingest")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("database_path", "./data/bloggle.db")
	v.SetDefault("seen_cache_path", "./data/seen.db")
	v.SetDefault("sources_file", "./configs/sources.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("refresh_lock_ttl_seconds", 90)
	v.SetDefault("refresh_max_items", 10)
	v.SetDefault("pull_default_items", 30)
	v.SetDefault("pull_max_items", 50)
	v.SetDefault("fetch_timeout_seconds", 15)
	v.SetDefault("detail_timeout_seconds", 10)
	v.SetDefault("seen_ttl_seconds", int64((5*24*time.Hour)/time.Second))
	v.SetDefault("seen_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("scheduler_tick_seconds", 60)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	for name, val := range map[string]int64{
		"refresh_lock_ttl_seconds":      cfg.RefreshLockTTLSeconds,
		"fetch_timeout_seconds":         cfg.FetchTimeoutSeconds,
		"detail_timeout_seconds":        cfg.DetailTimeoutSeconds,
		"seen_ttl_seconds":              cfg.SeenTTLSeconds,
		"seen_cleanup_interval_seconds": cfg.SeenCleanupSeconds,
		"scheduler_tick_seconds":        cfg.SchedulerTickSeconds,
	} {
		if val <= 0 {
			return nil, fmt.Errorf("invalid %s (must be positive seconds)", name)
		}
	}

	if cfg.RefreshMaxItems <= 0 || cfg.PullDefaultItems <= 0 || cfg.PullMaxItems <= 0 {
		return nil, fmt.Errorf("item limits must be positive")
	}
	if cfg.PullDefaultItems > cfg.PullMaxItems {
		return nil, fmt.Errorf("pull_default_items exceeds pull_max_items")
	}

	cfg.RefreshLockTTL = time.Duration(cfg.RefreshLockTTLSeconds) * time.Second
	cfg.FetchTimeout = time.Duration(cfg.FetchTimeoutSeconds) * time.Second
	cfg.DetailTimeout = time.Duration(cfg.DetailTimeoutSeconds) * time.Second
	cfg.SeenTTL = time.Duration(cfg.SeenTTLSeconds) * time.Second
	cfg.SeenCleanupInterval = time.Duration(cfg.SeenCleanupSeconds) * time.Second
	cfg.SchedulerTickInterval = time.Duration(cfg.SchedulerTickSeconds) * time.Second

	return &cfg, nil
}
