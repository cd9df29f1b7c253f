package domain

// Event types propagated through the outbox. The write side emits them and the
// appliers consume them; the router only ever treats them as opaque strings.
const (
	EventTypePostCreated     = "PostCreated"
	EventTypePostUpdated     = "PostUpdated"
	EventTypePostDeleted     = "PostDeleted"
	EventTypePostViewed      = "PostViewed"
	EventTypeCommentAdded    = "CommentAdded"
	EventTypeCommentRemoved  = "CommentRemoved"
	EventTypeReactionAdded   = "ReactionAdded"
	EventTypeReactionRemoved = "ReactionRemoved"
	EventTypeReactionChanged = "ReactionChanged"
)

// PostDocument is the denormalized search document for a post. Detail events
// replace it wholesale; count events patch only the numeric fields.
type PostDocument struct {
	ID           string `json:"id"`
	AuthorID     string `json:"authorId"`
	AuthorName   string `json:"authorName"`
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Status       string `json:"status"`
	ViewCount    int64  `json:"viewCount"`
	LikeCount    int64  `json:"likeCount"`
	DislikeCount int64  `json:"dislikeCount"`
	CommentCount int64  `json:"commentCount"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`

	EventMetadata
}

// ReactionCountDocument is the per-post reaction tally, kept as its own
// aggregate family so reaction bursts do not rewrite the detail document.
type ReactionCountDocument struct {
	ID           string `json:"id"`
	LikeCount    int64  `json:"likeCount"`
	DislikeCount int64  `json:"dislikeCount"`

	EventMetadata
}

// PostSnapshot is the detail-shaped event payload: a full snapshot of the post
// taken inside the writing transaction.
type PostSnapshot struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	AuthorID     string `json:"authorId"`
	AuthorName   string `json:"authorName"`
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Status       string `json:"status"`
	ViewCount    int64  `json:"viewCount"`
	LikeCount    int64  `json:"likeCount"`
	DislikeCount int64  `json:"dislikeCount"`
	CommentCount int64  `json:"commentCount"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// CountSnapshot is the counts-shaped event payload. Every field is optional;
// values are absolute counts computed inside the writing transaction, so
// applying them in commit order is last-write-wins per aggregate.
type CountSnapshot struct {
	ViewCount    *int64 `json:"viewCount,omitempty"`
	LikeCount    *int64 `json:"likeCount,omitempty"`
	DislikeCount *int64 `json:"dislikeCount,omitempty"`
	CommentCount *int64 `json:"commentCount,omitempty"`
}

// IsEmpty reports whether the snapshot carries no count at all.
func (s CountSnapshot) IsEmpty() bool {
	return s.ViewCount == nil && s.LikeCount == nil && s.DislikeCount == nil && s.CommentCount == nil
}

// Fields returns the counts present in the snapshot keyed by document field name.
func (s CountSnapshot) Fields() map[string]int64 {
	fields := make(map[string]int64)
	if s.ViewCount != nil {
		fields["viewCount"] = *s.ViewCount
	}
	if s.LikeCount != nil {
		fields["likeCount"] = *s.LikeCount
	}
	if s.DislikeCount != nil {
		fields["dislikeCount"] = *s.DislikeCount
	}
	if s.CommentCount != nil {
		fields["commentCount"] = *s.CommentCount
	}
	return fields
}
