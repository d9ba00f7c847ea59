package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"

	"github.com/jrr-automobiles/portal/cmd/portalctl/cli"
	"github.com/jrr-automobiles/portal/internal/app"
	"github.com/jrr-automobiles/portal/internal/platform/cache"
	"github.com/jrr-automobiles/portal/internal/platform/db"
	"github.com/jrr-automobiles/portal/jobs"
)

func main() {
	if err := cli.NewRootCmd(load).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("error:"), err)
		os.Exit(1)
	}
}

// load connects to Postgres and Redis using the same environment as the API.
func load(ctx context.Context) (*cli.Deps, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := app.NewLogger(cfg).With(slog.String("component", "portalctl"))

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, err
	}
	redisOpts, err := cache.Options(cfg.RedisAddr)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	rdb := redis.NewClient(redisOpts)
	client, err := jobs.NewClient(jobs.RedisOpt(redisOpts), nil)
	if err != nil {
		_ = rdb.Close()
		pool.Close()
		return nil, nil, err
	}

	services := app.BuildServices(app.ServicesParams{
		Config: cfg,
		Logger: logger,
		Pool:   pool,
		Redis:  rdb,
	})
	release := func() {
		_ = client.Close()
		_ = rdb.Close()
		pool.Close()
	}
	return &cli.Deps{
		Allocator: services.Allocator,
		JobCards:  services.JobCards,
		Enqueuer:  client,
		Registers: services.Registers,
		Migrate:   func() error { return db.Migrate(pool) },
		Location:  cfg.Location(),
		Prefix:    cfg.JobCardPrefix,
	}, release, nil
}
