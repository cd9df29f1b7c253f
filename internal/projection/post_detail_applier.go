package projection

import (
	"context"
	"encoding/json"
	"log/slog"

	apperrors "github.com/allisson/community/internal/errors"
	"github.com/allisson/community/internal/projection/domain"
	"github.com/allisson/community/internal/search"
)

// PostDetailApplier materializes detail-shaped post events into full search
// documents. Creates and updates are full-document replaces built from the
// snapshot taken inside the writing transaction; deletes remove the document
// from both the post and reaction families.
type PostDetailApplier struct {
	index  search.Index
	logger *slog.Logger
}

// NewPostDetailApplier creates a new PostDetailApplier.
func NewPostDetailApplier(index search.Index, logger *slog.Logger) *PostDetailApplier {
	return &PostDetailApplier{
		index:  index,
		logger: logger,
	}
}

// CanHandle accepts post lifecycle events. PostCreated is shared with the
// count applier: only the detail-shaped emission (it carries a title) lands
// here.
func (a *PostDetailApplier) CanHandle(event Event) bool {
	switch event.Type {
	case domain.EventTypePostUpdated, domain.EventTypePostDeleted:
		return true
	case domain.EventTypePostCreated:
		return probeShape(event.Payload).hasTitle()
	default:
		return false
	}
}

// Apply performs the index write for one event.
func (a *PostDetailApplier) Apply(ctx context.Context, event Event) error {
	if event.Type == domain.EventTypePostDeleted {
		return a.delete(ctx, event)
	}
	return a.upsert(ctx, event)
}

// upsert replaces the search document with the event's snapshot. The
// duplicate check runs before any mutation; metadata advances together with
// the business fields in the single document write.
func (a *PostDetailApplier) upsert(ctx context.Context, event Event) error {
	var snapshot domain.PostSnapshot
	if err := json.Unmarshal(event.Payload, &snapshot); err != nil {
		return apperrors.Wrap(err, "failed to parse post snapshot")
	}

	existing, err := a.index.GetPost(ctx, event.AggregateID)
	if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	doc := &domain.PostDocument{
		ID:           event.AggregateID,
		AuthorID:     snapshot.AuthorID,
		AuthorName:   snapshot.AuthorName,
		CategoryID:   snapshot.CategoryID,
		CategoryName: snapshot.CategoryName,
		Title:        snapshot.Title,
		Content:      snapshot.Content,
		Status:       snapshot.Status,
		ViewCount:    snapshot.ViewCount,
		LikeCount:    snapshot.LikeCount,
		DislikeCount: snapshot.DislikeCount,
		CommentCount: snapshot.CommentCount,
		CreatedAt:    snapshot.CreatedAt,
		UpdatedAt:    snapshot.UpdatedAt,
	}
	if existing != nil {
		if existing.IsDuplicate(event.ID) {
			a.logDuplicate(event)
			return nil
		}
		doc.EventMetadata = existing.EventMetadata
	}
	doc.Advance(event.ID, event.Timestamp)

	return withRetry(ctx, a.logger, "upsert_post", func() error {
		return a.index.UpsertPost(ctx, doc)
	})
}

// delete removes the post document and its reaction tally. Both deletes
// tolerate missing documents, which makes redelivery safe.
func (a *PostDetailApplier) delete(ctx context.Context, event Event) error {
	if err := withRetry(ctx, a.logger, "delete_post", func() error {
		return a.index.DeletePost(ctx, event.AggregateID)
	}); err != nil {
		return err
	}
	return withRetry(ctx, a.logger, "delete_reaction_count", func() error {
		return a.index.DeleteReactionCount(ctx, event.AggregateID)
	})
}

func (a *PostDetailApplier) logDuplicate(event Event) {
	if a.logger != nil {
		a.logger.Debug("duplicate event absorbed",
			slog.String("event_id", event.ID),
			slog.String("event_type", event.Type),
			slog.String("aggregate_id", event.AggregateID),
		)
	}
}
