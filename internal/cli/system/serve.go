package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/feed"
	"github.com/julianstephens/weekcal/internal/logger"
	"github.com/julianstephens/weekcal/internal/server"
)

type ServeCmd struct {
	Listen string `help:"Override the listen address from the server config."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	cfg := ctx.ServerConfig
	if c.Listen != "" {
		cfg.Listen = c.Listen
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	handler := feed.NewHandler(ctx.Publisher, ctx.Metrics, feed.HandlerOptions{
		RateLimit: cfg.Feed.RateLimit,
		Burst:     cfg.Feed.Burst,
	})
	srv := server.New(cfg, ctx.Coordinator, ctx.Publisher, handler, ctx.Metrics)

	runCtx, stop := signal.NotifyContext(ctx.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting weekcal server",
		"listen", cfg.Listen,
		"sync_schedule", cfg.Sync.Schedule,
		"metrics", cfg.Metrics.Enabled)

	if err := srv.Run(runCtx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
