// Package usecase implements the outbox publisher: the polling fallback path
// that delivers committed outbox events when no change feed is available.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/community/internal/database"
	"github.com/allisson/community/internal/metrics"
	"github.com/allisson/community/internal/outbox/domain"
)

// Config holds outbox publisher configuration
type Config struct {
	PublishInterval time.Duration
	RetryInterval   time.Duration
	CleanupInterval time.Duration
	BatchSize       int
	MaxRetries      int
	RetryAfter      time.Duration
	Retention       time.Duration
}

// OutboxEventRepository defines outbox event repository operations
type OutboxEventRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	GetRetryableEvents(
		ctx context.Context,
		limit int,
		maxRetries int,
		failedBefore time.Time,
	) ([]*domain.OutboxEvent, error)
	Update(ctx context.Context, event *domain.OutboxEvent) error
	DeletePublishedBefore(ctx context.Context, before time.Time) (int64, error)
}

// Deliverer hands one committed event to the projection pipeline. Delivery is
// a direct application call; there is no message broker in between.
type Deliverer interface {
	Deliver(ctx context.Context, event *domain.OutboxEvent) error
}

// UseCase defines the interface for the outbox publisher
type UseCase interface {
	Start(ctx context.Context) error
	PublishPending(ctx context.Context, limit int) error
	RetryFailed(ctx context.Context, retryAfter time.Duration, maxRetries int) error
	Cleanup(ctx context.Context, before time.Time) error
}

// Publisher implements the outbox publish/retry/cleanup jobs
type Publisher struct {
	config     Config
	txManager  database.TxManager
	outboxRepo OutboxEventRepository
	deliverer  Deliverer
	metrics    metrics.BusinessMetrics
	logger     *slog.Logger
}

// NewPublisher creates a new Publisher
func NewPublisher(
	config Config,
	txManager database.TxManager,
	outboxRepo OutboxEventRepository,
	deliverer Deliverer,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Publisher {
	return &Publisher{
		config:     config,
		txManager:  txManager,
		outboxRepo: outboxRepo,
		deliverer:  deliverer,
		metrics:    businessMetrics,
		logger:     logger,
	}
}

// Start runs the three publisher jobs on their own timers until the context
// is canceled. The jobs operate on disjoint status sets, so overlap between
// them needs no coordination.
func (p *Publisher) Start(ctx context.Context) error {
	if p.logger != nil {
		p.logger.Info("starting outbox publisher",
			slog.Duration("publish_interval", p.config.PublishInterval),
			slog.Duration("retry_interval", p.config.RetryInterval),
			slog.Duration("cleanup_interval", p.config.CleanupInterval),
			slog.Int("batch_size", p.config.BatchSize),
		)
	}

	publishTicker := time.NewTicker(p.config.PublishInterval)
	defer publishTicker.Stop()
	retryTicker := time.NewTicker(p.config.RetryInterval)
	defer retryTicker.Stop()
	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			if p.logger != nil {
				p.logger.Info("stopping outbox publisher")
			}
			return ctx.Err()
		case <-publishTicker.C:
			if err := p.PublishPending(ctx, p.config.BatchSize); err != nil {
				p.logError("failed to publish pending events", err)
			}
		case <-retryTicker.C:
			if err := p.RetryFailed(ctx, p.config.RetryAfter, p.config.MaxRetries); err != nil {
				p.logError("failed to retry failed events", err)
			}
		case <-cleanupTicker.C:
			if err := p.Cleanup(ctx, time.Now().Add(-p.config.Retention)); err != nil {
				p.logError("failed to clean up published events", err)
			}
		}
	}
}

// PublishPending delivers up to limit pending events, oldest first. One
// event's failure marks that event failed and moves on; it never aborts the
// batch.
func (p *Publisher) PublishPending(ctx context.Context, limit int) error {
	return p.txManager.WithTx(ctx, func(ctx context.Context) error {
		events, err := p.outboxRepo.GetPendingEvents(ctx, limit)
		if err != nil {
			return err
		}
		return p.deliverBatch(ctx, events)
	})
}

// RetryFailed re-attempts failed events that are older than retryAfter and
// still below maxRetries.
func (p *Publisher) RetryFailed(ctx context.Context, retryAfter time.Duration, maxRetries int) error {
	return p.txManager.WithTx(ctx, func(ctx context.Context) error {
		failedBefore := time.Now().Add(-retryAfter)
		events, err := p.outboxRepo.GetRetryableEvents(ctx, p.config.BatchSize, maxRetries, failedBefore)
		if err != nil {
			return err
		}
		return p.deliverBatch(ctx, events)
	})
}

// Cleanup reaps published events processed before the cutoff.
func (p *Publisher) Cleanup(ctx context.Context, before time.Time) error {
	deleted, err := p.outboxRepo.DeletePublishedBefore(ctx, before)
	if err != nil {
		return err
	}
	if deleted > 0 && p.logger != nil {
		p.logger.Info("cleaned up published outbox events", slog.Int64("deleted", deleted))
	}
	return nil
}

// deliverBatch advances each event through processing to published or failed.
func (p *Publisher) deliverBatch(ctx context.Context, events []*domain.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	if p.logger != nil {
		p.logger.Info("publishing events", slog.Int("count", len(events)))
	}

	for _, event := range events {
		event.MarkProcessing()
		if err := p.outboxRepo.Update(ctx, event); err != nil {
			return err
		}

		if err := p.deliverer.Deliver(ctx, event); err != nil {
			p.logError("failed to deliver event", err,
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", event.EventType),
			)

			event.MarkFailed(time.Now(), err)
			p.recordOperation(ctx, "publish", "error")
			if event.Exhausted(p.config.MaxRetries) {
				// Permanently failed: the row stays queryable and the
				// metric below is the alerting hook.
				p.recordOperation(ctx, "permanent_failure", "error")
				p.logError("event permanently failed", err,
					slog.String("event_id", event.ID.String()),
					slog.String("event_type", event.EventType),
					slog.Int("retry_count", event.RetryCount),
				)
			}

			if err := p.outboxRepo.Update(ctx, event); err != nil {
				return err
			}
			continue
		}

		event.MarkPublished(time.Now())
		p.recordOperation(ctx, "publish", "success")

		if err := p.outboxRepo.Update(ctx, event); err != nil {
			return err
		}
	}

	return nil
}

func (p *Publisher) recordOperation(ctx context.Context, operation, status string) {
	if p.metrics != nil {
		p.metrics.RecordOperation(ctx, "outbox", operation, status)
	}
}

func (p *Publisher) logError(msg string, err error, attrs ...any) {
	if p.logger != nil {
		args := append([]any{slog.Any("error", err)}, attrs...)
		p.logger.Error(msg, args...)
	}
}
