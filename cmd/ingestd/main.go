package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bloggle-hq/bloggle-ingest/internal/app"
	"github.com/bloggle-hq/bloggle-ingest/internal/config"
	"github.com/bloggle-hq/bloggle-ingest/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ingestd start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("ingestd starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	daemon, err := app.NewIngestd(ctx, cfg, logger.Std{})
	if err != nil {
		logger.ErrorObj("failed to initialize ingestd", "error", err)
		return err
	}

	if err := daemon.Run(ctx); err != nil {
		return fmt.Errorf("ingestd run: %w", err)
	}

	return nil
}
