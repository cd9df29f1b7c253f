package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/community/internal/database"
	"github.com/allisson/community/internal/outbox/domain"
)

// MySQLOutboxEventRepository handles outbox event persistence for MySQL
type MySQLOutboxEventRepository struct {
	db *sql.DB
}

// NewMySQLOutboxEventRepository creates a new MySQLOutboxEventRepository
func NewMySQLOutboxEventRepository(db *sql.DB) *MySQLOutboxEventRepository {
	return &MySQLOutboxEventRepository{
		db: db,
	}
}

// Create inserts a new outbox event
func (r *MySQLOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_events (id, event_type, aggregate_id, payload, status, retry_count, error_message, processed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`

	// Convert UUIDs to bytes for MySQL BINARY(16)
	idBytes, err := event.ID.MarshalBinary()
	if err != nil {
		return err
	}
	aggregateBytes, err := event.AggregateID.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, idBytes, event.EventType, aggregateBytes,
		event.Payload, event.Status, event.RetryCount, event.ErrorMessage, event.ProcessedAt)

	return err
}

// GetPendingEvents retrieves pending events oldest-first with limit
func (r *MySQLOutboxEventRepository) GetPendingEvents(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, aggregate_id, payload, status, retry_count, error_message, processed_at, created_at, updated_at
			  FROM outbox_events
			  WHERE status = ?
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	return r.queryEvents(ctx, querier, query, domain.OutboxEventStatusPending, limit)
}

// GetRetryableEvents retrieves failed events that are old enough to retry and
// still have attempts left.
func (r *MySQLOutboxEventRepository) GetRetryableEvents(
	ctx context.Context,
	limit int,
	maxRetries int,
	failedBefore time.Time,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, aggregate_id, payload, status, retry_count, error_message, processed_at, created_at, updated_at
			  FROM outbox_events
			  WHERE status = ? AND retry_count < ? AND processed_at < ?
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	return r.queryEvents(ctx, querier, query, domain.OutboxEventStatusFailed, maxRetries, failedBefore, limit)
}

// Update updates an outbox event
func (r *MySQLOutboxEventRepository) Update(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = ?, retry_count = ?, error_message = ?, processed_at = ?, updated_at = NOW()
			  WHERE id = ?`

	idBytes, err := event.ID.MarshalBinary()
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx, query, event.Status, event.RetryCount,
		event.ErrorMessage, event.ProcessedAt, idBytes)

	return err
}

// DeletePublishedBefore removes published events whose processing finished
// before the cutoff. Returns the number of rows reaped.
func (r *MySQLOutboxEventRepository) DeletePublishedBefore(
	ctx context.Context,
	before time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outbox_events WHERE status = ? AND processed_at < ?`

	result, err := querier.ExecContext(ctx, query, domain.OutboxEventStatusPublished, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// queryEvents runs a select and scans the rows into events.
func (r *MySQLOutboxEventRepository) queryEvents(
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
		var idBytes, aggregateBytes []byte

		err := rows.Scan(&idBytes, &event.EventType, &aggregateBytes, &event.Payload,
			&event.Status, &event.RetryCount, &event.ErrorMessage, &event.ProcessedAt,
			&event.CreatedAt, &event.UpdatedAt)
		if err != nil {
			return nil, err
		}

		if event.ID, err = uuid.FromBytes(idBytes); err != nil {
			return nil, err
		}
		if event.AggregateID, err = uuid.FromBytes(aggregateBytes); err != nil {
			return nil, err
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
