// Package search provides the search-index client used by the projection
// appliers on the write path and by the dual-source read service on the read
// path. The index supports full-document upsert, atomic partial field update,
// delete-by-id and filtered queries; the backing engine is Redis.
package search

import (
	"context"
	"time"

	"github.com/allisson/community/internal/projection/domain"
)

// Sort fields accepted by PostQuery.
const (
	SortByCreatedAt = "created_at"
	SortByViews     = "view_count"
	SortByLikes     = "like_count"
)

// PatchOutcome reports what an atomic partial update did.
type PatchOutcome int

const (
	// PatchApplied means the document was mutated and its metadata advanced.
	PatchApplied PatchOutcome = iota
	// PatchDuplicate means the event id matched the document's last applied
	// event and the update was absorbed as a no-op.
	PatchDuplicate
	// PatchMissing means no document exists for the id.
	PatchMissing
)

// PostQuery describes a filtered, sorted post search. All filters combine with
// logical AND. A non-positive Limit disables pagination so callers can rank
// the full candidate set themselves.
type PostQuery struct {
	Keyword    string
	AuthorID   string
	CategoryID string
	Status     string
	SortField  string
	SortOrder  string // "asc" or "desc" (default desc)
	Offset     int
	Limit      int
}

// PostPage is one page of search results plus the total match count.
type PostPage struct {
	Items []*domain.PostDocument
	Total int
}

// Index is the contract the projection appliers and the read service depend on.
type Index interface {
	// UpsertPost writes the document as a full replace and maintains the
	// sort and filter indexes.
	UpsertPost(ctx context.Context, doc *domain.PostDocument) error
	// PatchPostCounts atomically applies absolute count values and advances
	// the event metadata in a single document write.
	PatchPostCounts(
		ctx context.Context,
		id, eventID string,
		timestamp time.Time,
		fields map[string]int64,
	) (PatchOutcome, error)
	// DeletePost removes the document and its index entries. Missing
	// documents are not an error.
	DeletePost(ctx context.Context, id string) error
	// GetPost returns ErrNotFound when the document does not exist.
	GetPost(ctx context.Context, id string) (*domain.PostDocument, error)
	// SearchPosts runs a filtered, sorted query.
	SearchPosts(ctx context.Context, query PostQuery) (*PostPage, error)

	// UpsertReactionCount writes a reaction tally document as a full replace.
	UpsertReactionCount(ctx context.Context, doc *domain.ReactionCountDocument) error
	// PatchReactionCounts is PatchPostCounts for the reaction family.
	PatchReactionCounts(
		ctx context.Context,
		id, eventID string,
		timestamp time.Time,
		fields map[string]int64,
	) (PatchOutcome, error)
	// GetReactionCount returns ErrNotFound when the document does not exist.
	GetReactionCount(ctx context.Context, id string) (*domain.ReactionCountDocument, error)
	// DeleteReactionCount removes a reaction tally; missing is not an error.
	DeleteReactionCount(ctx context.Context, id string) error

	// Ping reports whether the index is reachable.
	Ping(ctx context.Context) error
}
