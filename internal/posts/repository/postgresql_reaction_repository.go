package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/community/internal/database"
	apperrors "github.com/allisson/community/internal/errors"
	"github.com/allisson/community/internal/posts/domain"
)

// PostgreSQLReactionRepository handles reaction persistence for PostgreSQL
type PostgreSQLReactionRepository struct {
	db *sql.DB
}

// NewPostgreSQLReactionRepository creates a new PostgreSQLReactionRepository
func NewPostgreSQLReactionRepository(db *sql.DB) *PostgreSQLReactionRepository {
	return &PostgreSQLReactionRepository{
		db: db,
	}
}

// Create inserts a new reaction. The unique (post_id, user_id) index turns a
// double insert into an ErrConflict.
func (r *PostgreSQLReactionRepository) Create(ctx context.Context, reaction *domain.Reaction) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO reactions (id, post_id, user_id, type, created_at)
			  VALUES ($1, $2, $3, $4, NOW())`

	_, err := querier.ExecContext(ctx, query, reaction.ID, reaction.PostID,
		reaction.UserID, reaction.Type)

	return err
}

// GetByPostAndUser retrieves the reaction a user left on a post.
func (r *PostgreSQLReactionRepository) GetByPostAndUser(
	ctx context.Context,
	postID, userID uuid.UUID,
) (*domain.Reaction, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, post_id, user_id, type, created_at
			  FROM reactions WHERE post_id = $1 AND user_id = $2`

	var reaction domain.Reaction
	err := querier.QueryRowContext(ctx, query, postID, userID).Scan(&reaction.ID,
		&reaction.PostID, &reaction.UserID, &reaction.Type, &reaction.CreatedAt)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "reaction not found")
		}
		return nil, err
	}

	return &reaction, nil
}

// UpdateType changes the kind of an existing reaction.
func (r *PostgreSQLReactionRepository) UpdateType(
	ctx context.Context,
	id uuid.UUID,
	reactionType domain.ReactionType,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE reactions SET type = $1 WHERE id = $2`

	result, err := querier.ExecContext(ctx, query, reactionType, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result, "reaction not found")
}

// Delete removes a reaction.
func (r *PostgreSQLReactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM reactions WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result, "reaction not found")
}

// CountByPost tallies likes and dislikes on a post.
func (r *PostgreSQLReactionRepository) CountByPost(
	ctx context.Context,
	postID uuid.UUID,
) (likes int64, dislikes int64, err error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT
			  COUNT(*) FILTER (WHERE type = 'like'),
			  COUNT(*) FILTER (WHERE type = 'dislike')
			  FROM reactions WHERE post_id = $1`

	err = querier.QueryRowContext(ctx, query, postID).Scan(&likes, &dislikes)
	return likes, dislikes, err
}
