package projection

import (
	"context"
	"encoding/json"
	"log/slog"

	apperrors "github.com/allisson/community/internal/errors"
	"github.com/allisson/community/internal/projection/domain"
	"github.com/allisson/community/internal/search"
)

// PostCountApplier patches the numeric fields of a post document from
// counts-shaped events. Values are absolute, so a patch is a plain set, and
// the single scripted write advances the event metadata with the fields.
type PostCountApplier struct {
	index  search.Index
	logger *slog.Logger
}

// NewPostCountApplier creates a new PostCountApplier.
func NewPostCountApplier(index search.Index, logger *slog.Logger) *PostCountApplier {
	return &PostCountApplier{
		index:  index,
		logger: logger,
	}
}

// CanHandle accepts view and comment count events, plus the counts-shaped
// emission of PostCreated (no title, counts present).
func (a *PostCountApplier) CanHandle(event Event) bool {
	switch event.Type {
	case domain.EventTypePostViewed, domain.EventTypeCommentAdded, domain.EventTypeCommentRemoved:
		return true
	case domain.EventTypePostCreated:
		shape := probeShape(event.Payload)
		return !shape.hasTitle() && shape.hasCounts()
	default:
		return false
	}
}

// Apply patches the post document with the counts present in the payload.
func (a *PostCountApplier) Apply(ctx context.Context, event Event) error {
	var counts domain.CountSnapshot
	if err := json.Unmarshal(event.Payload, &counts); err != nil {
		return apperrors.Wrap(err, "failed to parse count snapshot")
	}
	if counts.IsEmpty() {
		// Neither detail- nor counts-shaped: nothing to project.
		return nil
	}

	return applyPostCountPatch(ctx, a.index, a.logger, event, counts.Fields())
}

// applyPostCountPatch runs the atomic counts patch against the post family.
// Shared with the reaction applier, which mirrors reaction tallies into the
// post document. A missing document is skipped: per-aggregate ordering means
// it was deleted, and a count patch must not resurrect it.
func applyPostCountPatch(
	ctx context.Context,
	index search.Index,
	logger *slog.Logger,
	event Event,
	fields map[string]int64,
) error {
	var outcome search.PatchOutcome
	err := withRetry(ctx, logger, "patch_post_counts", func() error {
		var patchErr error
		outcome, patchErr = index.PatchPostCounts(ctx, event.AggregateID, event.ID, event.Timestamp, fields)
		return patchErr
	})
	if err != nil {
		return err
	}

	if logger != nil {
		switch outcome {
		case search.PatchDuplicate:
			logger.Debug("duplicate event absorbed",
				slog.String("event_id", event.ID),
				slog.String("event_type", event.Type),
				slog.String("aggregate_id", event.AggregateID),
			)
		case search.PatchMissing:
			logger.Warn("count patch skipped, post document missing",
				slog.String("event_id", event.ID),
				slog.String("event_type", event.Type),
				slog.String("aggregate_id", event.AggregateID),
			)
		}
	}
	return nil
}
