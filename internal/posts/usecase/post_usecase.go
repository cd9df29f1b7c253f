// Package usecase implements the content write path and the dual-source read
// path. Every write-side mutation records its outbox events in the same
// transaction as the business rows; the events carry snapshots computed
// inside that transaction, never values read afterwards.
package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/community/internal/database"
	apperrors "github.com/allisson/community/internal/errors"
	outboxDomain "github.com/allisson/community/internal/outbox/domain"
	"github.com/allisson/community/internal/posts/domain"
	projectionDomain "github.com/allisson/community/internal/projection/domain"
)

// PostRepository defines post repository operations
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	Update(ctx context.Context, post *domain.Post) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*domain.PostDetail, error)
	Search(ctx context.Context, filter domain.SearchFilter) ([]*domain.PostDetail, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) (int64, error)
	GetCounts(ctx context.Context, id uuid.UUID) (*domain.PostCounts, error)
}

// CommentRepository defines comment repository operations
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountByPost(ctx context.Context, postID uuid.UUID) (int64, error)
}

// ReactionRepository defines reaction repository operations
type ReactionRepository interface {
	Create(ctx context.Context, reaction *domain.Reaction) error
	GetByPostAndUser(ctx context.Context, postID, userID uuid.UUID) (*domain.Reaction, error)
	UpdateType(ctx context.Context, id uuid.UUID, reactionType domain.ReactionType) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByPost(ctx context.Context, postID uuid.UUID) (likes int64, dislikes int64, err error)
}

// AuthorRepository defines author repository operations
type AuthorRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Author, error)
}

// CategoryRepository defines category repository operations
type CategoryRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
}

// OutboxStore records events alongside business writes. It must participate
// in the ambient transaction.
type OutboxStore interface {
	Create(ctx context.Context, event *outboxDomain.OutboxEvent) error
}

// CreatePostInput holds the fields for a new post.
type CreatePostInput struct {
	AuthorID   uuid.UUID
	CategoryID uuid.UUID
	Title      string
	Content    string
	Status     domain.PostStatus
}

// UpdatePostInput holds the mutable fields of a post.
type UpdatePostInput struct {
	CategoryID uuid.UUID
	Title      string
	Content    string
	Status     domain.PostStatus
}

// PostUseCase defines the content write operations.
type PostUseCase interface {
	CreatePost(ctx context.Context, input CreatePostInput) (*domain.Post, error)
	UpdatePost(ctx context.Context, id uuid.UUID, input UpdatePostInput) (*domain.Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error
	ViewPost(ctx context.Context, id uuid.UUID) error
	AddComment(ctx context.Context, postID, authorID uuid.UUID, content string) (*domain.Comment, error)
	RemoveComment(ctx context.Context, commentID uuid.UUID) error
	SetReaction(ctx context.Context, postID, userID uuid.UUID, reactionType domain.ReactionType) error
	RemoveReaction(ctx context.Context, postID, userID uuid.UUID) error
}

// postUseCase implements PostUseCase.
type postUseCase struct {
	txManager    database.TxManager
	postRepo     PostRepository
	commentRepo  CommentRepository
	reactionRepo ReactionRepository
	authorRepo   AuthorRepository
	categoryRepo CategoryRepository
	outboxStore  OutboxStore
}

// NewPostUseCase creates a new PostUseCase.
func NewPostUseCase(
	txManager database.TxManager,
	postRepo PostRepository,
	commentRepo CommentRepository,
	reactionRepo ReactionRepository,
	authorRepo AuthorRepository,
	categoryRepo CategoryRepository,
	outboxStore OutboxStore,
) PostUseCase {
	return &postUseCase{
		txManager:    txManager,
		postRepo:     postRepo,
		commentRepo:  commentRepo,
		reactionRepo: reactionRepo,
		authorRepo:   authorRepo,
		categoryRepo: categoryRepo,
		outboxStore:  outboxStore,
	}
}

// CreatePost stores a new post and records two PostCreated events: one
// detail-shaped for the document projection and one counts-shaped (all
// zeros) for the count projection.
func (u *postUseCase) CreatePost(ctx context.Context, input CreatePostInput) (*domain.Post, error) {
	author, err := u.authorRepo.GetByID(ctx, input.AuthorID)
	if err != nil {
		return nil, err
	}
	category, err := u.categoryRepo.GetByID(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}

	post := domain.NewPost(input.AuthorID, input.CategoryID, input.Title, input.Content, input.Status)

	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.postRepo.Create(txCtx, post); err != nil {
			return err
		}

		now := time.Now().UTC()
		post.CreatedAt = now
		post.UpdatedAt = now

		detail := &domain.PostDetail{
			Post:         *post,
			AuthorName:   author.Username,
			CategoryName: category.Name,
		}
		if err := u.recordDetailEvent(txCtx, projectionDomain.EventTypePostCreated, detail); err != nil {
			return err
		}

		var zero int64
		return u.recordCountEvent(txCtx, projectionDomain.EventTypePostCreated, post.ID,
			projectionDomain.CountSnapshot{
				ViewCount:    &zero,
				LikeCount:    &zero,
				DislikeCount: &zero,
				CommentCount: &zero,
			})
	})
	if err != nil {
		return nil, err
	}

	return post, nil
}

// UpdatePost rewrites a post and records a detail-shaped PostUpdated event
// with the post's current counts snapshotted in the same transaction.
func (u *postUseCase) UpdatePost(ctx context.Context, id uuid.UUID, input UpdatePostInput) (*domain.Post, error) {
	category, err := u.categoryRepo.GetByID(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}

	var post *domain.Post
	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		post, err = u.postRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if post.Status == domain.PostStatusDeleted {
			return apperrors.Wrap(apperrors.ErrNotFound, "post not found")
		}

		post.CategoryID = input.CategoryID
		post.Title = input.Title
		post.Content = input.Content
		post.Status = input.Status
		post.UpdatedAt = time.Now().UTC()

		if err := u.postRepo.Update(txCtx, post); err != nil {
			return err
		}

		author, err := u.authorRepo.GetByID(txCtx, post.AuthorID)
		if err != nil {
			return err
		}
		counts, err := u.postRepo.GetCounts(txCtx, id)
		if err != nil {
			return err
		}

		detail := &domain.PostDetail{
			Post:         *post,
			AuthorName:   author.Username,
			CategoryName: category.Name,
			LikeCount:    counts.LikeCount,
			DislikeCount: counts.DislikeCount,
			CommentCount: counts.CommentCount,
		}
		return u.recordDetailEvent(txCtx, projectionDomain.EventTypePostUpdated, detail)
	})
	if err != nil {
		return nil, err
	}

	return post, nil
}

// DeletePost soft-deletes a post and records a PostDeleted event.
func (u *postUseCase) DeletePost(ctx context.Context, id uuid.UUID) error {
	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.postRepo.SoftDelete(txCtx, id); err != nil {
			return err
		}

		event := outboxDomain.NewOutboxEvent(projectionDomain.EventTypePostDeleted, id, "{}")
		return u.outboxStore.Create(txCtx, event)
	})
}

// ViewPost bumps the view counter and records a PostViewed event carrying
// the new absolute count.
func (u *postUseCase) ViewPost(ctx context.Context, id uuid.UUID) error {
	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		viewCount, err := u.postRepo.IncrementViewCount(txCtx, id)
		if err != nil {
			return err
		}

		return u.recordCountEvent(txCtx, projectionDomain.EventTypePostViewed, id,
			projectionDomain.CountSnapshot{ViewCount: &viewCount})
	})
}

// AddComment stores a comment and records a CommentAdded event with the
// post's new absolute comment count.
func (u *postUseCase) AddComment(
	ctx context.Context,
	postID, authorID uuid.UUID,
	content string,
) (*domain.Comment, error) {
	post, err := u.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Status == domain.PostStatusDeleted {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "post not found")
	}

	comment := domain.NewComment(postID, authorID, content)

	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.commentRepo.Create(txCtx, comment); err != nil {
			return err
		}

		commentCount, err := u.commentRepo.CountByPost(txCtx, postID)
		if err != nil {
			return err
		}

		return u.recordCountEvent(txCtx, projectionDomain.EventTypeCommentAdded, postID,
			projectionDomain.CountSnapshot{CommentCount: &commentCount})
	})
	if err != nil {
		return nil, err
	}

	return comment, nil
}

// RemoveComment deletes a comment and records a CommentRemoved event.
func (u *postUseCase) RemoveComment(ctx context.Context, commentID uuid.UUID) error {
	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		comment, err := u.commentRepo.GetByID(txCtx, commentID)
		if err != nil {
			return err
		}

		if err := u.commentRepo.Delete(txCtx, commentID); err != nil {
			return err
		}

		commentCount, err := u.commentRepo.CountByPost(txCtx, comment.PostID)
		if err != nil {
			return err
		}

		return u.recordCountEvent(txCtx, projectionDomain.EventTypeCommentRemoved, comment.PostID,
			projectionDomain.CountSnapshot{CommentCount: &commentCount})
	})
}

// SetReaction adds or changes a user's reaction. Re-applying the same
// reaction is a no-op and records no event.
func (u *postUseCase) SetReaction(
	ctx context.Context,
	postID, userID uuid.UUID,
	reactionType domain.ReactionType,
) error {
	post, err := u.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.Status == domain.PostStatusDeleted {
		return apperrors.Wrap(apperrors.ErrNotFound, "post not found")
	}

	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		eventType := projectionDomain.EventTypeReactionAdded

		existing, err := u.reactionRepo.GetByPostAndUser(txCtx, postID, userID)
		switch {
		case err == nil && existing.Type == reactionType:
			return nil
		case err == nil:
			if err := u.reactionRepo.UpdateType(txCtx, existing.ID, reactionType); err != nil {
				return err
			}
			eventType = projectionDomain.EventTypeReactionChanged
		case apperrors.Is(err, apperrors.ErrNotFound):
			reaction := domain.NewReaction(postID, userID, reactionType)
			if err := u.reactionRepo.Create(txCtx, reaction); err != nil {
				return err
			}
		default:
			return err
		}

		return u.recordReactionCounts(txCtx, eventType, postID)
	})
}

// RemoveReaction deletes a user's reaction and records a ReactionRemoved
// event. Removing a reaction that does not exist is a no-op.
func (u *postUseCase) RemoveReaction(ctx context.Context, postID, userID uuid.UUID) error {
	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := u.reactionRepo.GetByPostAndUser(txCtx, postID, userID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				return nil
			}
			return err
		}

		if err := u.reactionRepo.Delete(txCtx, existing.ID); err != nil {
			return err
		}

		return u.recordReactionCounts(txCtx, projectionDomain.EventTypeReactionRemoved, postID)
	})
}

// recordDetailEvent serializes a full post snapshot into an outbox event.
func (u *postUseCase) recordDetailEvent(
	ctx context.Context,
	eventType string,
	detail *domain.PostDetail,
) error {
	snapshot := projectionDomain.PostSnapshot{
		Title:        detail.Title,
		Content:      detail.Content,
		AuthorID:     detail.AuthorID.String(),
		AuthorName:   detail.AuthorName,
		CategoryID:   detail.CategoryID.String(),
		CategoryName: detail.CategoryName,
		Status:       string(detail.Status),
		ViewCount:    detail.ViewCount,
		LikeCount:    detail.LikeCount,
		DislikeCount: detail.DislikeCount,
		CommentCount: detail.CommentCount,
		CreatedAt:    detail.CreatedAt.UnixMilli(),
		UpdatedAt:    detail.UpdatedAt.UnixMilli(),
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return u.outboxStore.Create(ctx, outboxDomain.NewOutboxEvent(eventType, detail.ID, string(payload)))
}

// recordCountEvent serializes a counts snapshot into an outbox event.
func (u *postUseCase) recordCountEvent(
	ctx context.Context,
	eventType string,
	postID uuid.UUID,
	snapshot projectionDomain.CountSnapshot,
) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return u.outboxStore.Create(ctx, outboxDomain.NewOutboxEvent(eventType, postID, string(payload)))
}

// recordReactionCounts snapshots the post's reaction tallies and records
// them under the given reaction event type.
func (u *postUseCase) recordReactionCounts(ctx context.Context, eventType string, postID uuid.UUID) error {
	likes, dislikes, err := u.reactionRepo.CountByPost(ctx, postID)
	if err != nil {
		return err
	}

	return u.recordCountEvent(ctx, eventType, postID, projectionDomain.CountSnapshot{
		LikeCount:    &likes,
		DislikeCount: &dislikes,
	})
}
