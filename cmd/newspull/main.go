package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/bloggle-hq/bloggle-ingest/internal/app"
	"github.com/bloggle-hq/bloggle-ingest/internal/config"
	"github.com/bloggle-hq/bloggle-ingest/internal/logger"
	"github.com/bloggle-hq/bloggle-ingest/internal/sources"
)

func main() {
	cliApp := &cli.App{
		Name:  "newspull",
		Usage: "Pull news articles from configured sources into the posts store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "Source slug (defaults to all active sources)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum feed items per source (0 uses the configured default)",
			},
		},
		Action: pull,
	}

	if err := cliApp.Run(os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			if msg := exitErr.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func pull(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := app.NewPullRunner(ctx, cfg, logger.Std{})
	if err != nil {
		return err
	}
	defer runner.Close()

	targets, err := resolveSources(runner.Sources, c.String("source"))
	if err != nil {
		return err
	}

	limit := clampLimit(c.Int("limit"), cfg)

	failed := 0
	for _, src := range targets {
		if err := pullOne(ctx, runner, src, limit); err != nil {
			failed++
		}
		if ctx.Err() != nil {
			break
		}
	}

	if failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

// pullOne runs a single source and prints its aggregate result. It returns an
// error when the run failed outright or any article could not be saved.
func pullOne(ctx context.Context, runner *app.PullRunner, src sources.Source, limit int) error {
	result, err := runner.Service.Pull(ctx, src, limit)
	if err != nil {
		fmt.Printf("%s: pull failed: %v\n", src.Slug, err)
		return err
	}

	fmt.Printf("%s: fetched %d, created %d, skipped %d\n",
		src.Slug, result.Fetched, result.Created, result.Skipped)
	for _, msg := range result.Errors {
		fmt.Printf("  %s\n", msg)
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("%d article(s) failed", len(result.Errors))
	}
	return nil
}

// resolveSources picks the requested source or all active ones.
func resolveSources(reg *sources.Registry, slug string) ([]sources.Source, error) {
	if slug != "" {
		src, ok := reg.BySlug(slug)
		if !ok {
			return nil, fmt.Errorf("unknown source %q", slug)
		}
		return []sources.Source{src}, nil
	}

	var active []sources.Source
	for _, src := range reg.All() {
		if src.ActiveValue() {
			active = append(active, src)
		}
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("no active sources configured")
	}
	return active, nil
}

// clampLimit applies the configured default and absolute maximum.
func clampLimit(limit int, cfg *config.Config) int {
	if limit <= 0 {
		limit = cfg.PullDefaultItems
	}
	if limit > cfg.PullMaxItems {
		limit = cfg.PullMaxItems
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}
