// Package http provides HTTP handlers for the content API: post CRUD, views,
// comments and reactions on the write side, and index-backed reads.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/community/internal/httputil"
	"github.com/allisson/community/internal/posts/domain"
	"github.com/allisson/community/internal/posts/http/dto"
	postsUseCase "github.com/allisson/community/internal/posts/usecase"
	customValidation "github.com/allisson/community/internal/validation"
)

// PostHandler handles HTTP requests for post operations.
type PostHandler struct {
	postUseCase postsUseCase.PostUseCase
	readService postsUseCase.ReadService
	logger      *slog.Logger
}

// NewPostHandler creates a new post handler with required dependencies.
func NewPostHandler(
	postUseCase postsUseCase.PostUseCase,
	readService postsUseCase.ReadService,
	logger *slog.Logger,
) *PostHandler {
	return &PostHandler{
		postUseCase: postUseCase,
		readService: readService,
		logger:      logger,
	}
}

// CreateHandler creates a new post.
// POST /v1/posts - Returns 201 Created with the stored post.
func (h *PostHandler) CreateHandler(c *gin.Context) {
	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	post, err := h.postUseCase.CreatePost(c.Request.Context(), postsUseCase.CreatePostInput{
		AuthorID:   uuid.MustParse(req.AuthorID),
		CategoryID: uuid.MustParse(req.CategoryID),
		Title:      req.Title,
		Content:    req.Content,
		Status:     req.PostStatus(),
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapPostToResponse(post))
}

// GetHandler reads one post, index first with database fallback.
// GET /v1/posts/:id?source=db - Returns 200 OK, or 404 when neither source has it.
func (h *PostHandler) GetHandler(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	forceDatabase := c.Query("source") == "db"

	result, err := h.readService.GetPost(c.Request.Context(), id, forceDatabase)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.GetPostResponse{
		Post:   dto.MapDocumentToPostResponse(result.Document),
		Source: result.Source,
	})
}

// ListHandler lists posts with filters, sorting and pagination.
// GET /v1/posts - Returns 200 OK; 503 when the index is down and not bypassed.
func (h *PostHandler) ListHandler(c *gin.Context) {
	query := dto.ListPostsQuery{
		Keyword:    c.Query("keyword"),
		AuthorID:   c.Query("author_id"),
		CategoryID: c.Query("category_id"),
		Status:     c.Query("status"),
		SortField:  c.Query("sort_field"),
		SortOrder:  c.Query("sort_order"),
		Source:     c.Query("source"),
	}
	if err := query.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	filter := domain.SearchFilter{
		Keyword:   query.Keyword,
		Status:    domain.PostStatus(query.Status),
		SortField: query.SortField,
		SortOrder: query.SortOrder,
		Offset:    offset,
		Limit:     limit,
	}
	if query.AuthorID != "" {
		filter.AuthorID = uuid.MustParse(query.AuthorID)
	}
	if query.CategoryID != "" {
		filter.CategoryID = uuid.MustParse(query.CategoryID)
	}

	result, err := h.readService.SearchPosts(c.Request.Context(), filter, query.Source == "db")
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDocumentsToListResponse(result.Items, result.Total, result.Source))
}

// TrendingHandler lists the most active recent posts.
// GET /v1/posts/trending - Returns 200 OK.
func (h *PostHandler) TrendingHandler(c *gin.Context) {
	result, err := h.readService.TrendingPosts(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDocumentsToListResponse(result.Items, result.Total, result.Source))
}

// UpdateHandler rewrites a post.
// PUT /v1/posts/:id - Returns 200 OK with the updated post.
func (h *PostHandler) UpdateHandler(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	post, err := h.postUseCase.UpdatePost(c.Request.Context(), id, postsUseCase.UpdatePostInput{
		CategoryID: uuid.MustParse(req.CategoryID),
		Title:      req.Title,
		Content:    req.Content,
		Status:     req.PostStatus(),
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPostToResponse(post))
}

// DeleteHandler soft-deletes a post.
// DELETE /v1/posts/:id - Returns 204 No Content.
func (h *PostHandler) DeleteHandler(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.postUseCase.DeletePost(c.Request.Context(), id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// ViewHandler records one view of a post.
// POST /v1/posts/:id/view - Returns 204 No Content.
func (h *PostHandler) ViewHandler(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.postUseCase.ViewPost(c.Request.Context(), id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddCommentHandler adds a comment to a post.
// POST /v1/posts/:id/comments - Returns 201 Created with the comment.
func (h *PostHandler) AddCommentHandler(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req dto.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	comment, err := h.postUseCase.AddComment(c.Request.Context(), id, uuid.MustParse(req.AuthorID), req.Content)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapCommentToResponse(comment))
}

// RemoveCommentHandler deletes a comment.
// DELETE /v1/comments/:id - Returns 204 No Content.
func (h *PostHandler) RemoveCommentHandler(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.postUseCase.RemoveComment(c.Request.Context(), id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// SetReactionHandler adds or changes the caller's reaction on a post.
// PUT /v1/posts/:id/reaction - Returns 204 No Content.
func (h *PostHandler) SetReactionHandler(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req dto.SetReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	err := h.postUseCase.SetReaction(c.Request.Context(), id, uuid.MustParse(req.UserID),
		domain.ReactionType(req.Type))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveReactionHandler removes the caller's reaction from a post.
// DELETE /v1/posts/:id/reaction - Returns 204 No Content.
func (h *PostHandler) RemoveReactionHandler(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req dto.RemoveReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.postUseCase.RemoveReaction(c.Request.Context(), id, uuid.MustParse(req.UserID)); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// pathID parses the named path parameter as a UUID, answering the request
// itself when the value is malformed.
func (h *PostHandler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httputil.HandleBadRequestGin(c,
			fmt.Errorf("invalid %s parameter: must be a UUID", name), h.logger)
		return uuid.Nil, false
	}
	return id, true
}
