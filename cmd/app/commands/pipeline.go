package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/community/internal/app"
	"github.com/allisson/community/internal/config"
)

// RunPipeline starts the projection pipeline workers: the change stream
// reader and the polling outbox publisher. Both feed the same event router,
// so running both is safe; the appliers drop duplicates by event id. Blocks
// until receiving SIGINT/SIGTERM or until a worker fails.
func RunPipeline(ctx context.Context, version string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting pipeline",
		slog.String("version", version),
		slog.Bool("outbox_publisher_enabled", cfg.OutboxPublisherEnabled),
		slog.Bool("cdc_enabled", cfg.CDCEnabled),
	)

	defer closeContainer(container, logger)

	if !cfg.OutboxPublisherEnabled && !cfg.CDCEnabled {
		return fmt.Errorf("no pipeline workers enabled, set OUTBOX_PUBLISHER_ENABLED or CDC_ENABLED")
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.OutboxPublisherEnabled {
		publisher, err := container.OutboxPublisher()
		if err != nil {
			return fmt.Errorf("failed to initialize outbox publisher: %w", err)
		}

		group.Go(func() error {
			if err := publisher.Start(groupCtx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("outbox publisher error: %w", err)
			}
			return nil
		})
	}

	if cfg.CDCEnabled {
		reader, err := container.CDCReader()
		if err != nil {
			return fmt.Errorf("failed to initialize change stream reader: %w", err)
		}

		group.Go(func() error {
			if err := reader.Run(groupCtx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("change stream reader error: %w", err)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		logger.Error("pipeline worker failed", slog.Any("error", err))
		return err
	}

	logger.Info("pipeline stopped")
	return nil
}
