// Package domain defines the write-side entities of the community content
// model: posts, their authors and categories, comments and reactions.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PostStatus represents the lifecycle state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
	PostStatusDeleted   PostStatus = "deleted"
)

// ReactionType represents the kind of reaction a user left on a post.
type ReactionType string

const (
	ReactionTypeLike    ReactionType = "like"
	ReactionTypeDislike ReactionType = "dislike"
)

// Post is the system-of-record entity for one piece of content.
type Post struct {
	ID         uuid.UUID
	AuthorID   uuid.UUID
	CategoryID uuid.UUID
	Title      string
	Content    string
	Status     PostStatus
	ViewCount  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewPost creates a draft-or-published post owned by the given author.
func NewPost(authorID, categoryID uuid.UUID, title, content string, status PostStatus) *Post {
	return &Post{
		ID:         uuid.Must(uuid.NewV7()),
		AuthorID:   authorID,
		CategoryID: categoryID,
		Title:      title,
		Content:    content,
		Status:     status,
	}
}

// Author is a registered content author.
type Author struct {
	ID        uuid.UUID
	Username  string
	CreatedAt time.Time
}

// Category groups posts by topic.
type Category struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Comment is one reader comment on a post.
type Comment struct {
	ID        uuid.UUID
	PostID    uuid.UUID
	AuthorID  uuid.UUID
	Content   string
	CreatedAt time.Time
}

// NewComment creates a comment on the given post.
func NewComment(postID, authorID uuid.UUID, content string) *Comment {
	return &Comment{
		ID:       uuid.Must(uuid.NewV7()),
		PostID:   postID,
		AuthorID: authorID,
		Content:  content,
	}
}

// Reaction is one user's like or dislike of a post. A user holds at most one
// reaction per post; changing kind replaces the previous one.
type Reaction struct {
	ID        uuid.UUID
	PostID    uuid.UUID
	UserID    uuid.UUID
	Type      ReactionType
	CreatedAt time.Time
}

// NewReaction creates a reaction of the given type.
func NewReaction(postID, userID uuid.UUID, reactionType ReactionType) *Reaction {
	return &Reaction{
		ID:     uuid.Must(uuid.NewV7()),
		PostID: postID,
		UserID: userID,
		Type:   reactionType,
	}
}

// PostCounts holds the absolute engagement counters of a post, computed
// inside a transaction on the write database.
type PostCounts struct {
	ViewCount    int64
	LikeCount    int64
	DislikeCount int64
	CommentCount int64
}

// PostDetail is the fully assembled view of a post: entity plus the joined
// author/category names and the engagement counters. It carries the same
// information as a search index document.
type PostDetail struct {
	Post
	AuthorName   string
	CategoryName string
	LikeCount    int64
	DislikeCount int64
	CommentCount int64
}
