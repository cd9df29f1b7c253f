// Package domain defines the materialized projection documents and the
// event-sourcing metadata that makes applying change events idempotent.
package domain

import "time"

// EventMetadata tracks how a projection document was built from events.
// It is stored inside the document and must advance atomically with every
// business-field mutation.
type EventMetadata struct {
	Version            int64  `json:"version"`
	LastEventID        string `json:"lastEventId"`
	LastEventTimestamp int64  `json:"lastEventTimestamp"`
	EventCount         int64  `json:"eventCount"`
}

// IsDuplicate reports whether the given event id was the last one applied.
// Duplicate redelivery of the most recent event must be a no-op.
func (m *EventMetadata) IsDuplicate(eventID string) bool {
	return eventID != "" && m.LastEventID == eventID
}

// Advance records the application of an event: bumps the version and event
// count and remembers the event id and timestamp for deduplication.
func (m *EventMetadata) Advance(eventID string, timestamp time.Time) {
	m.Version++
	m.EventCount++
	m.LastEventID = eventID
	m.LastEventTimestamp = timestamp.UnixMilli()
}
