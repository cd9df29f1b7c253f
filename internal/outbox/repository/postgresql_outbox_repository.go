// Package repository provides data persistence implementations for outbox entities.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/community/internal/database"
	"github.com/allisson/community/internal/outbox/domain"
)

// TableName is the outbox table. The change stream reader restricts its
// publication to this table.
const TableName = "outbox_events"

// PostgreSQLOutboxEventRepository handles outbox event persistence for PostgreSQL
type PostgreSQLOutboxEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxEventRepository creates a new PostgreSQLOutboxEventRepository
func NewPostgreSQLOutboxEventRepository(db *sql.DB) *PostgreSQLOutboxEventRepository {
	return &PostgreSQLOutboxEventRepository{
		db: db,
	}
}

// Create inserts a new outbox event. It participates in the caller's
// transaction when one is present in the context, which is what makes the
// business write and the outbox write a single atomic unit.
func (r *PostgreSQLOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_events (id, event_type, aggregate_id, payload, status, retry_count, error_message, processed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, event.ID, event.EventType, event.AggregateID,
		event.Payload, event.Status, event.RetryCount, event.ErrorMessage, event.ProcessedAt)

	return err
}

// GetPendingEvents retrieves pending events oldest-first with limit
func (r *PostgreSQLOutboxEventRepository) GetPendingEvents(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, aggregate_id, payload, status, retry_count, error_message, processed_at, created_at, updated_at
			  FROM outbox_events
			  WHERE status = $1
			  ORDER BY created_at ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	return r.queryEvents(ctx, querier, query, domain.OutboxEventStatusPending, limit)
}

// GetRetryableEvents retrieves failed events that are old enough to retry and
// still have attempts left.
func (r *PostgreSQLOutboxEventRepository) GetRetryableEvents(
	ctx context.Context,
	limit int,
	maxRetries int,
	failedBefore time.Time,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, aggregate_id, payload, status, retry_count, error_message, processed_at, created_at, updated_at
			  FROM outbox_events
			  WHERE status = $1 AND retry_count < $2 AND processed_at < $3
			  ORDER BY created_at ASC
			  LIMIT $4
			  FOR UPDATE SKIP LOCKED`

	return r.queryEvents(ctx, querier, query, domain.OutboxEventStatusFailed, maxRetries, failedBefore, limit)
}

// Update updates an outbox event
func (r *PostgreSQLOutboxEventRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = $1, retry_count = $2, error_message = $3, processed_at = $4, updated_at = NOW()
			  WHERE id = $5`

	_, err := querier.ExecContext(ctx, query, event.Status, event.RetryCount,
		event.ErrorMessage, event.ProcessedAt, event.ID)

	return err
}

// DeletePublishedBefore removes published events whose processing finished
// before the cutoff. Returns the number of rows reaped.
func (r *PostgreSQLOutboxEventRepository) DeletePublishedBefore(
	ctx context.Context,
	before time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outbox_events WHERE status = $1 AND processed_at < $2`

	result, err := querier.ExecContext(ctx, query, domain.OutboxEventStatusPublished, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// queryEvents runs a select and scans the rows into events.
func (r *PostgreSQLOutboxEventRepository) queryEvents(
	ctx context.Context,
	querier database.Querier,
	query string,
	args ...any,
) ([]*domain.OutboxEvent, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var events []*domain.OutboxEvent
	for rows.Next() {
		var event domain.OutboxEvent

		err := rows.Scan(&event.ID, &event.EventType, &event.AggregateID, &event.Payload,
			&event.Status, &event.RetryCount, &event.ErrorMessage, &event.ProcessedAt,
			&event.CreatedAt, &event.UpdatedAt)
		if err != nil {
			return nil, err
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
