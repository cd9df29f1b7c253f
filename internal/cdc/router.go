package cdc

import (
	"context"
	"log/slog"

	"github.com/allisson/community/internal/metrics"
	outboxDomain "github.com/allisson/community/internal/outbox/domain"
	"github.com/allisson/community/internal/projection"
)

const metricsDomain = "cdc"

// Router dispatches decoded change events to the first registered applier
// that accepts them. Registration order is the disambiguation rule: when two
// appliers could both accept an event, the earlier one wins.
type Router struct {
	appliers []projection.Applier
	metrics  metrics.BusinessMetrics
	logger   *slog.Logger
}

// NewRouter creates a new Router with the appliers in dispatch order.
func NewRouter(appliers []projection.Applier, businessMetrics metrics.BusinessMetrics, logger *slog.Logger) *Router {
	return &Router{
		appliers: appliers,
		metrics:  businessMetrics,
		logger:   logger,
	}
}

// Route decodes one raw change-feed record and dispatches it. Malformed
// records are logged and dropped rather than wedging the stream; an error is
// returned only when an applier failed and the record should be redelivered.
func (r *Router) Route(ctx context.Context, value []byte) error {
	event, err := DecodeEnvelope(value)
	if err != nil {
		r.logWarn("skipping undecodable change event", slog.Any("error", err))
		r.recordOperation(ctx, "route", "skipped")
		return nil
	}

	return r.dispatch(ctx, event)
}

// Deliver implements the outbox publisher's delivery contract: it applies one
// outbox row directly, without the wire round trip the replication path uses.
func (r *Router) Deliver(ctx context.Context, outboxEvent *outboxDomain.OutboxEvent) error {
	event := projection.Event{
		ID:          outboxEvent.ID.String(),
		Type:        outboxEvent.EventType,
		AggregateID: outboxEvent.AggregateID.String(),
		Timestamp:   outboxEvent.CreatedAt,
		Payload:     []byte(outboxEvent.Payload),
	}

	return r.dispatch(ctx, event)
}

func (r *Router) dispatch(ctx context.Context, event projection.Event) error {
	for _, applier := range r.appliers {
		if !applier.CanHandle(event) {
			continue
		}

		if err := applier.Apply(ctx, event); err != nil {
			r.recordOperation(ctx, "route", "error")
			return err
		}

		r.recordOperation(ctx, "route", "success")
		return nil
	}

	// No applier claims the event. Unknown types are expected as the write
	// side evolves ahead of the projections, so drop with a log line.
	r.logWarn("no applier for change event",
		slog.String("event_type", event.Type),
		slog.String("aggregate_id", event.AggregateID),
	)
	r.recordOperation(ctx, "route", "skipped")
	return nil
}

func (r *Router) recordOperation(ctx context.Context, operation, status string) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordOperation(ctx, metricsDomain, operation, status)
}

func (r *Router) logWarn(msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(msg, args...)
}
