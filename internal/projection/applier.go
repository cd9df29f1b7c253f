// Package projection implements the idempotent appliers that materialize
// decoded outbox events into search-index documents. One applier covers one
// aggregate family; the change-stream router probes them in registration
// order and dispatches each event to the first applier that accepts it.
package projection

import (
	"context"
	"encoding/json"
	"time"
)

// Event is a decoded change-feed envelope: one committed outbox row.
type Event struct {
	// ID is the outbox event id and doubles as the idempotency key.
	ID string
	// Type is the event type tag, e.g. "PostCreated".
	Type string
	// AggregateID identifies the owning entity.
	AggregateID string
	// Timestamp is when the event was recorded on the write side.
	Timestamp time.Time
	// Payload is the business snapshot, opaque until an applier parses it.
	Payload json.RawMessage
}

// Applier converts event payloads into search-index writes. CanHandle may
// inspect the payload shape: one event type can produce different projection
// shapes, distinguished by the fields present rather than by the type tag.
type Applier interface {
	CanHandle(event Event) bool
	Apply(ctx context.Context, event Event) error
}

// payloadShape is a light probe used to tell detail-shaped payloads apart
// from counts-shaped ones without committing to a full parse.
type payloadShape struct {
	Title        *string `json:"title"`
	ViewCount    *int64  `json:"viewCount"`
	LikeCount    *int64  `json:"likeCount"`
	DislikeCount *int64  `json:"dislikeCount"`
	CommentCount *int64  `json:"commentCount"`
}

func (p payloadShape) hasTitle() bool {
	return p.Title != nil
}

func (p payloadShape) hasCounts() bool {
	return p.ViewCount != nil || p.LikeCount != nil || p.DislikeCount != nil || p.CommentCount != nil
}

func probeShape(payload []byte) payloadShape {
	var shape payloadShape
	// A probe failure leaves every field nil, which routes the event nowhere.
	_ = json.Unmarshal(payload, &shape)
	return shape
}
