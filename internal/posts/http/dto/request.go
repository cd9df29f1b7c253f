// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	"github.com/allisson/community/internal/posts/domain"
	customValidation "github.com/allisson/community/internal/validation"
)

// CreatePostRequest contains the parameters for creating a post. The author
// arrives in the body because the API carries no authentication.
type CreatePostRequest struct {
	AuthorID   string `json:"author_id" binding:"required"`
	CategoryID string `json:"category_id" binding:"required"`
	Title      string `json:"title" binding:"required"`
	Content    string `json:"content" binding:"required"`
	Status     string `json:"status"`
}

// Validate checks if the create post request is valid.
func (r *CreatePostRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.AuthorID, validation.Required, customValidation.UUID),
		validation.Field(&r.CategoryID, validation.Required, customValidation.UUID),
		validation.Field(&r.Title,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 200),
		),
		validation.Field(&r.Content, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Status, validation.In(
			string(domain.PostStatusDraft),
			string(domain.PostStatusPublished),
		)),
	)
}

// PostStatus returns the requested status, defaulting to published.
func (r *CreatePostRequest) PostStatus() domain.PostStatus {
	if r.Status == "" {
		return domain.PostStatusPublished
	}
	return domain.PostStatus(r.Status)
}

// UpdatePostRequest contains the mutable fields of a post.
type UpdatePostRequest struct {
	CategoryID string `json:"category_id" binding:"required"`
	Title      string `json:"title" binding:"required"`
	Content    string `json:"content" binding:"required"`
	Status     string `json:"status"`
}

// Validate checks if the update post request is valid.
func (r *UpdatePostRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.CategoryID, validation.Required, customValidation.UUID),
		validation.Field(&r.Title,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 200),
		),
		validation.Field(&r.Content, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Status, validation.In(
			string(domain.PostStatusDraft),
			string(domain.PostStatusPublished),
		)),
	)
}

// PostStatus returns the requested status, defaulting to published.
func (r *UpdatePostRequest) PostStatus() domain.PostStatus {
	if r.Status == "" {
		return domain.PostStatusPublished
	}
	return domain.PostStatus(r.Status)
}

// AddCommentRequest contains the parameters for commenting on a post.
type AddCommentRequest struct {
	AuthorID string `json:"author_id" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

// Validate checks if the add comment request is valid.
func (r *AddCommentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.AuthorID, validation.Required, customValidation.UUID),
		validation.Field(&r.Content,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 2000),
		),
	)
}

// SetReactionRequest contains the parameters for reacting to a post.
type SetReactionRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Type   string `json:"type" binding:"required"`
}

// Validate checks if the set reaction request is valid.
func (r *SetReactionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required, customValidation.UUID),
		validation.Field(&r.Type,
			validation.Required,
			validation.In(
				string(domain.ReactionTypeLike),
				string(domain.ReactionTypeDislike),
			),
		),
	)
}

// RemoveReactionRequest contains the parameters for removing a reaction.
type RemoveReactionRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Validate checks if the remove reaction request is valid.
func (r *RemoveReactionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required, customValidation.UUID),
	)
}

// ListPostsQuery holds the parsed listing query parameters.
type ListPostsQuery struct {
	Keyword    string
	AuthorID   string
	CategoryID string
	Status     string
	SortField  string
	SortOrder  string
	Source     string
}

// Validate checks if the listing query is valid.
func (q *ListPostsQuery) Validate() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.AuthorID, customValidation.UUID),
		validation.Field(&q.CategoryID, customValidation.UUID),
		validation.Field(&q.Status, validation.In(
			string(domain.PostStatusDraft),
			string(domain.PostStatusPublished),
		)),
		validation.Field(&q.SortField, validation.In(
			domain.SortFieldCreatedAt,
			domain.SortFieldViews,
			domain.SortFieldLikes,
			domain.SortFieldPopular,
		)),
		validation.Field(&q.SortOrder, validation.In(
			domain.SortOrderAsc,
			domain.SortOrderDesc,
		)),
		validation.Field(&q.Source, validation.In("db", "index")),
	)
}
