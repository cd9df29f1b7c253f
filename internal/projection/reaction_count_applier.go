package projection

import (
	"context"
	"encoding/json"
	"log/slog"

	apperrors "github.com/allisson/community/internal/errors"
	"github.com/allisson/community/internal/projection/domain"
	"github.com/allisson/community/internal/search"
)

// ReactionCountApplier maintains the per-post reaction tally family and
// mirrors the like/dislike counts into the post document so both read models
// stay consistent with the write side.
type ReactionCountApplier struct {
	index  search.Index
	logger *slog.Logger
}

// NewReactionCountApplier creates a new ReactionCountApplier.
func NewReactionCountApplier(index search.Index, logger *slog.Logger) *ReactionCountApplier {
	return &ReactionCountApplier{
		index:  index,
		logger: logger,
	}
}

// CanHandle accepts reaction events.
func (a *ReactionCountApplier) CanHandle(event Event) bool {
	switch event.Type {
	case domain.EventTypeReactionAdded, domain.EventTypeReactionRemoved, domain.EventTypeReactionChanged:
		return true
	default:
		return false
	}
}

// Apply patches the reaction tally, creating it on the first reaction for a
// post, then mirrors the counts into the post document.
func (a *ReactionCountApplier) Apply(ctx context.Context, event Event) error {
	var counts domain.CountSnapshot
	if err := json.Unmarshal(event.Payload, &counts); err != nil {
		return apperrors.Wrap(err, "failed to parse count snapshot")
	}
	fields := counts.Fields()
	if len(fields) == 0 {
		return nil
	}

	var outcome search.PatchOutcome
	err := withRetry(ctx, a.logger, "patch_reaction_counts", func() error {
		var patchErr error
		outcome, patchErr = a.index.PatchReactionCounts(
			ctx, event.AggregateID, event.ID, event.Timestamp, fields)
		return patchErr
	})
	if err != nil {
		return err
	}

	switch outcome {
	case search.PatchMissing:
		// First reaction event for this post creates the tally document.
		if err := a.create(ctx, event, fields); err != nil {
			return err
		}
	case search.PatchDuplicate:
		if a.logger != nil {
			a.logger.Debug("duplicate event absorbed",
				slog.String("event_id", event.ID),
				slog.String("event_type", event.Type),
				slog.String("aggregate_id", event.AggregateID),
			)
		}
		return nil
	}

	return applyPostCountPatch(ctx, a.index, a.logger, event, fields)
}

// create writes the initial reaction tally document for an aggregate.
func (a *ReactionCountApplier) create(ctx context.Context, event Event, fields map[string]int64) error {
	doc := &domain.ReactionCountDocument{
		ID:           event.AggregateID,
		LikeCount:    fields["likeCount"],
		DislikeCount: fields["dislikeCount"],
	}
	doc.Advance(event.ID, event.Timestamp)

	return withRetry(ctx, a.logger, "create_reaction_count", func() error {
		return a.index.UpsertReactionCount(ctx, doc)
	})
}
