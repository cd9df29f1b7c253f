// Package domain defines the core outbox domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEventStatus represents the status of an outbox event.
//
// Allowed transitions: pending -> processing -> published or failed, and
// failed -> processing on retry. Nothing moves backwards.
type OutboxEventStatus string

const (
	OutboxEventStatusPending    OutboxEventStatus = "pending"
	OutboxEventStatusProcessing OutboxEventStatus = "processing"
	OutboxEventStatusPublished  OutboxEventStatus = "published"
	OutboxEventStatusFailed     OutboxEventStatus = "failed"
)

// OutboxEvent represents one domain fact awaiting propagation. It is created
// in the same transaction as the business mutation it describes and becomes
// read-only history once published.
type OutboxEvent struct {
	ID           uuid.UUID
	EventType    string
	AggregateID  uuid.UUID
	Payload      string
	Status       OutboxEventStatus
	RetryCount   int
	ErrorMessage *string
	ProcessedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewOutboxEvent creates a pending event for the given aggregate with a
// JSON-serialized payload.
func NewOutboxEvent(eventType string, aggregateID uuid.UUID, payload string) *OutboxEvent {
	return &OutboxEvent{
		ID:          uuid.Must(uuid.NewV7()),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payload,
		Status:      OutboxEventStatusPending,
	}
}

// MarkProcessing flags the event as being delivered.
func (e *OutboxEvent) MarkProcessing() {
	e.Status = OutboxEventStatusProcessing
}

// MarkPublished records a successful delivery.
func (e *OutboxEvent) MarkPublished(now time.Time) {
	e.Status = OutboxEventStatusPublished
	e.ProcessedAt = &now
	e.ErrorMessage = nil
}

// MarkFailed records a delivery failure, incrementing the retry count.
func (e *OutboxEvent) MarkFailed(now time.Time, err error) {
	msg := err.Error()
	e.Status = OutboxEventStatusFailed
	e.RetryCount++
	e.ErrorMessage = &msg
	e.ProcessedAt = &now
}

// Exhausted reports whether the event has used up its delivery attempts.
func (e *OutboxEvent) Exhausted(maxRetries int) bool {
	return e.RetryCount >= maxRetries
}
