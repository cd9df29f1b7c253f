// Package cdc tails the write database's logical replication stream, decodes
// committed outbox rows into change-feed envelopes and dispatches them to the
// projection appliers.
package cdc

import (
	"encoding/json"
	"time"

	"github.com/allisson/community/internal/errors"
	"github.com/allisson/community/internal/projection"
)

// Envelope is the wire form of one change-feed record. The double payload
// nesting mirrors connector-style change events: the outer payload is the
// record, the inner payload is the business snapshot.
type Envelope struct {
	Payload EnvelopePayload `json:"payload"`
}

// EnvelopePayload carries the event fields inside an envelope.
type EnvelopePayload struct {
	EventID     string          `json:"eventId"`
	EventType   string          `json:"eventType"`
	AggregateID string          `json:"aggregateId"`
	OccurredAt  int64           `json:"occurredAt"`
	Payload     json.RawMessage `json:"payload"`
}

// EncodeEnvelope wraps an event into its wire form.
func EncodeEnvelope(event projection.Event) ([]byte, error) {
	envelope := Envelope{
		Payload: EnvelopePayload{
			EventID:     event.ID,
			EventType:   event.Type,
			AggregateID: event.AggregateID,
			OccurredAt:  event.Timestamp.UnixMilli(),
			Payload:     event.Payload,
		},
	}
	return json.Marshal(envelope)
}

// DecodeEnvelope parses a wire record into an event. Records without an
// event type or aggregate id are rejected as invalid input.
func DecodeEnvelope(value []byte) (projection.Event, error) {
	var envelope Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return projection.Event{}, errors.Wrap(errors.ErrInvalidInput, "malformed change event")
	}

	payload := envelope.Payload
	if payload.EventType == "" {
		return projection.Event{}, errors.Wrap(errors.ErrInvalidInput, "change event missing event type")
	}
	if payload.AggregateID == "" {
		return projection.Event{}, errors.Wrap(errors.ErrInvalidInput, "change event missing aggregate id")
	}

	return projection.Event{
		ID:          payload.EventID,
		Type:        payload.EventType,
		AggregateID: payload.AggregateID,
		Timestamp:   time.UnixMilli(payload.OccurredAt).UTC(),
		Payload:     payload.Payload,
	}, nil
}
