package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/community/internal/metrics"
	"github.com/allisson/community/internal/posts/domain"
)

// postUseCaseWithMetrics decorates PostUseCase with metrics instrumentation.
type postUseCaseWithMetrics struct {
	next    PostUseCase
	metrics metrics.BusinessMetrics
}

// NewPostUseCaseWithMetrics wraps a PostUseCase with metrics recording.
func NewPostUseCaseWithMetrics(useCase PostUseCase, m metrics.BusinessMetrics) PostUseCase {
	return &postUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (p *postUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	p.metrics.RecordOperation(ctx, "posts", operation, status)
	p.metrics.RecordDuration(ctx, "posts", operation, time.Since(start), status)
}

func (p *postUseCaseWithMetrics) CreatePost(ctx context.Context, input CreatePostInput) (*domain.Post, error) {
	start := time.Now()
	post, err := p.next.CreatePost(ctx, input)
	p.record(ctx, "post_create", start, err)
	return post, err
}

func (p *postUseCaseWithMetrics) UpdatePost(
	ctx context.Context,
	id uuid.UUID,
	input UpdatePostInput,
) (*domain.Post, error) {
	start := time.Now()
	post, err := p.next.UpdatePost(ctx, id, input)
	p.record(ctx, "post_update", start, err)
	return post, err
}

func (p *postUseCaseWithMetrics) DeletePost(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := p.next.DeletePost(ctx, id)
	p.record(ctx, "post_delete", start, err)
	return err
}

func (p *postUseCaseWithMetrics) ViewPost(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := p.next.ViewPost(ctx, id)
	p.record(ctx, "post_view", start, err)
	return err
}

func (p *postUseCaseWithMetrics) AddComment(
	ctx context.Context,
	postID, authorID uuid.UUID,
	content string,
) (*domain.Comment, error) {
	start := time.Now()
	comment, err := p.next.AddComment(ctx, postID, authorID, content)
	p.record(ctx, "comment_add", start, err)
	return comment, err
}

func (p *postUseCaseWithMetrics) RemoveComment(ctx context.Context, commentID uuid.UUID) error {
	start := time.Now()
	err := p.next.RemoveComment(ctx, commentID)
	p.record(ctx, "comment_remove", start, err)
	return err
}

func (p *postUseCaseWithMetrics) SetReaction(
	ctx context.Context,
	postID, userID uuid.UUID,
	reactionType domain.ReactionType,
) error {
	start := time.Now()
	err := p.next.SetReaction(ctx, postID, userID, reactionType)
	p.record(ctx, "reaction_set", start, err)
	return err
}

func (p *postUseCaseWithMetrics) RemoveReaction(ctx context.Context, postID, userID uuid.UUID) error {
	start := time.Now()
	err := p.next.RemoveReaction(ctx, postID, userID)
	p.record(ctx, "reaction_remove", start, err)
	return err
}
