package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/community/internal/database"
	apperrors "github.com/allisson/community/internal/errors"
	"github.com/allisson/community/internal/posts/domain"
)

// PostgreSQLCommentRepository handles comment persistence for PostgreSQL
type PostgreSQLCommentRepository struct {
	db *sql.DB
}

// NewPostgreSQLCommentRepository creates a new PostgreSQLCommentRepository
func NewPostgreSQLCommentRepository(db *sql.DB) *PostgreSQLCommentRepository {
	return &PostgreSQLCommentRepository{
		db: db,
	}
}

// Create inserts a new comment.
func (r *PostgreSQLCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO comments (id, post_id, author_id, content, created_at)
			  VALUES ($1, $2, $3, $4, NOW())`

	_, err := querier.ExecContext(ctx, query, comment.ID, comment.PostID,
		comment.AuthorID, comment.Content)

	return err
}

// GetByID retrieves a comment by id.
func (r *PostgreSQLCommentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, post_id, author_id, content, created_at FROM comments WHERE id = $1`

	var comment domain.Comment
	err := querier.QueryRowContext(ctx, query, id).Scan(&comment.ID, &comment.PostID,
		&comment.AuthorID, &comment.Content, &comment.CreatedAt)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "comment not found")
		}
		return nil, err
	}

	return &comment, nil
}

// Delete removes a comment.
func (r *PostgreSQLCommentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM comments WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result, "comment not found")
}

// CountByPost counts the comments on a post.
func (r *PostgreSQLCommentRepository) CountByPost(ctx context.Context, postID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT COUNT(*) FROM comments WHERE post_id = $1`

	var count int64
	if err := querier.QueryRowContext(ctx, query, postID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
