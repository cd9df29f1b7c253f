package dto

import (
	"time"

	"github.com/allisson/community/internal/posts/domain"
	projectionDomain "github.com/allisson/community/internal/projection/domain"
)

// PostResponse represents a post in API responses. Reads serve it from the
// search index or the write database; the shape is identical either way.
type PostResponse struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	AuthorName   string    `json:"author_name,omitempty"`
	CategoryID   string    `json:"category_id"`
	CategoryName string    `json:"category_name,omitempty"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Status       string    `json:"status"`
	ViewCount    int64     `json:"view_count"`
	LikeCount    int64     `json:"like_count"`
	DislikeCount int64     `json:"dislike_count"`
	CommentCount int64     `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GetPostResponse is the point-read payload: the post plus which source
// served it.
type GetPostResponse struct {
	Post   PostResponse `json:"post"`
	Source string       `json:"source"`
}

// ListPostsResponse is the listing payload.
type ListPostsResponse struct {
	Posts  []PostResponse `json:"posts"`
	Total  int            `json:"total"`
	Source string         `json:"source"`
}

// CommentResponse represents a comment in API responses.
type CommentResponse struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// MapDocumentToPostResponse converts a projection document to an API response.
func MapDocumentToPostResponse(doc *projectionDomain.PostDocument) PostResponse {
	return PostResponse{
		ID:           doc.ID,
		AuthorID:     doc.AuthorID,
		AuthorName:   doc.AuthorName,
		CategoryID:   doc.CategoryID,
		CategoryName: doc.CategoryName,
		Title:        doc.Title,
		Content:      doc.Content,
		Status:       doc.Status,
		ViewCount:    doc.ViewCount,
		LikeCount:    doc.LikeCount,
		DislikeCount: doc.DislikeCount,
		CommentCount: doc.CommentCount,
		CreatedAt:    time.UnixMilli(doc.CreatedAt).UTC(),
		UpdatedAt:    time.UnixMilli(doc.UpdatedAt).UTC(),
	}
}

// MapDocumentsToListResponse converts a page of documents to an API response.
func MapDocumentsToListResponse(docs []*projectionDomain.PostDocument, total int, source string) ListPostsResponse {
	posts := make([]PostResponse, len(docs))
	for i, doc := range docs {
		posts[i] = MapDocumentToPostResponse(doc)
	}
	return ListPostsResponse{Posts: posts, Total: total, Source: source}
}

// MapPostToResponse converts a write-side post entity to an API response.
// Used by mutations, which return the entity without denormalized names.
func MapPostToResponse(post *domain.Post) PostResponse {
	return PostResponse{
		ID:         post.ID.String(),
		AuthorID:   post.AuthorID.String(),
		CategoryID: post.CategoryID.String(),
		Title:      post.Title,
		Content:    post.Content,
		Status:     string(post.Status),
		ViewCount:  post.ViewCount,
		CreatedAt:  post.CreatedAt,
		UpdatedAt:  post.UpdatedAt,
	}
}

// MapCommentToResponse converts a comment entity to an API response.
func MapCommentToResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID.String(),
		PostID:    comment.PostID.String(),
		AuthorID:  comment.AuthorID.String(),
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}
}
