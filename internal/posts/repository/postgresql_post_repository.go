// Package repository provides PostgreSQL persistence for the write-side
// content entities. The write database is the system of record; the search
// index is derived from it through the outbox.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/community/internal/database"
	apperrors "github.com/allisson/community/internal/errors"
	"github.com/allisson/community/internal/posts/domain"
)

// fallbackScanLimit caps unpaginated listing queries so a ranking pass over
// candidates cannot pull the whole table.
const fallbackScanLimit = 1000

// PostgreSQLPostRepository handles post persistence for PostgreSQL
type PostgreSQLPostRepository struct {
	db *sql.DB
}

// NewPostgreSQLPostRepository creates a new PostgreSQLPostRepository
func NewPostgreSQLPostRepository(db *sql.DB) *PostgreSQLPostRepository {
	return &PostgreSQLPostRepository{
		db: db,
	}
}

// Create inserts a new post.
func (r *PostgreSQLPostRepository) Create(ctx context.Context, post *domain.Post) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO posts (id, author_id, category_id, title, content, status, view_count, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, post.ID, post.AuthorID, post.CategoryID,
		post.Title, post.Content, post.Status, post.ViewCount)

	return err
}

// Update rewrites the mutable fields of a post.
func (r *PostgreSQLPostRepository) Update(ctx context.Context, post *domain.Post) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE posts
			  SET category_id = $1, title = $2, content = $3, status = $4, updated_at = NOW()
			  WHERE id = $5`

	result, err := querier.ExecContext(ctx, query, post.CategoryID, post.Title,
		post.Content, post.Status, post.ID)
	if err != nil {
		return err
	}
	return requireRowAffected(result, "post not found")
}

// SoftDelete marks a post deleted. The row stays so historical comments and
// reactions keep their foreign keys.
func (r *PostgreSQLPostRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE posts SET status = $1, updated_at = NOW() WHERE id = $2 AND status != $1`

	result, err := querier.ExecContext(ctx, query, domain.PostStatusDeleted, id)
	if err != nil {
		return err
	}
	return requireRowAffected(result, "post not found")
}

// GetByID retrieves a post by id, deleted ones included.
func (r *PostgreSQLPostRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, author_id, category_id, title, content, status, view_count, created_at, updated_at
			  FROM posts WHERE id = $1`

	var post domain.Post
	err := querier.QueryRowContext(ctx, query, id).Scan(&post.ID, &post.AuthorID, &post.CategoryID,
		&post.Title, &post.Content, &post.Status, &post.ViewCount, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "post not found")
		}
		return nil, err
	}

	return &post, nil
}

const detailSelect = `
SELECT p.id, p.author_id, a.username, p.category_id, c.name, p.title, p.content, p.status,
	   p.view_count, p.created_at, p.updated_at,
	   (SELECT COUNT(*) FROM reactions r WHERE r.post_id = p.id AND r.type = 'like') AS like_count,
	   (SELECT COUNT(*) FROM reactions r WHERE r.post_id = p.id AND r.type = 'dislike') AS dislike_count,
	   (SELECT COUNT(*) FROM comments cm WHERE cm.post_id = p.id) AS comment_count
FROM posts p
JOIN authors a ON a.id = p.author_id
JOIN categories c ON c.id = p.category_id`

// GetDetail assembles the full view of one post: entity, joined author and
// category names, and the engagement counters.
func (r *PostgreSQLPostRepository) GetDetail(ctx context.Context, id uuid.UUID) (*domain.PostDetail, error) {
	querier := database.GetTx(ctx, r.db)

	query := detailSelect + ` WHERE p.id = $1`

	detail, err := scanDetail(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "post not found")
		}
		return nil, err
	}

	return detail, nil
}

// Search lists assembled post details matching the filter. Sorting by
// created_at, views or likes happens in SQL; ranked sorts are the caller's
// job on an unpaginated result.
func (r *PostgreSQLPostRepository) Search(ctx context.Context, filter domain.SearchFilter) ([]*domain.PostDetail, error) {
	querier := database.GetTx(ctx, r.db)

	var conditions []string
	var args []any

	addCondition := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.Status != "" {
		addCondition("p.status = $%d", filter.Status)
	} else {
		addCondition("p.status != $%d", domain.PostStatusDeleted)
	}
	if filter.AuthorID != uuid.Nil {
		addCondition("p.author_id = $%d", filter.AuthorID)
	}
	if filter.CategoryID != uuid.Nil {
		addCondition("p.category_id = $%d", filter.CategoryID)
	}
	if filter.Keyword != "" {
		args = append(args, "%"+filter.Keyword+"%")
		conditions = append(conditions,
			fmt.Sprintf("(p.title ILIKE $%d OR p.content ILIKE $%d)", len(args), len(args)))
	}

	query := detailSelect + " WHERE " + strings.Join(conditions, " AND ") + orderClause(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = fallbackScanLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Limit > 0 && filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var details []*domain.PostDetail
	for rows.Next() {
		detail, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return details, nil
}

// IncrementViewCount bumps the view counter and returns the new absolute
// value, computed by the database so concurrent views never lose updates.
func (r *PostgreSQLPostRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE posts SET view_count = view_count + 1, updated_at = NOW()
			  WHERE id = $1
			  RETURNING view_count`

	var viewCount int64
	err := querier.QueryRowContext(ctx, query, id).Scan(&viewCount)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return 0, apperrors.Wrap(apperrors.ErrNotFound, "post not found")
		}
		return 0, err
	}

	return viewCount, nil
}

// GetCounts computes the absolute engagement counters of a post.
func (r *PostgreSQLPostRepository) GetCounts(ctx context.Context, id uuid.UUID) (*domain.PostCounts, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT p.view_count,
			  (SELECT COUNT(*) FROM reactions r WHERE r.post_id = p.id AND r.type = 'like'),
			  (SELECT COUNT(*) FROM reactions r WHERE r.post_id = p.id AND r.type = 'dislike'),
			  (SELECT COUNT(*) FROM comments cm WHERE cm.post_id = p.id)
			  FROM posts p WHERE p.id = $1`

	var counts domain.PostCounts
	err := querier.QueryRowContext(ctx, query, id).Scan(&counts.ViewCount,
		&counts.LikeCount, &counts.DislikeCount, &counts.CommentCount)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "post not found")
		}
		return nil, err
	}

	return &counts, nil
}

// orderClause maps sortable filter fields onto SQL. Ranked sorts fall back
// to newest-first here; the read service reorders them in memory.
func orderClause(filter domain.SearchFilter) string {
	direction := "DESC"
	if filter.SortOrder == domain.SortOrderAsc {
		direction = "ASC"
	}

	switch filter.SortField {
	case domain.SortFieldViews:
		return " ORDER BY p.view_count " + direction + ", p.created_at DESC"
	case domain.SortFieldLikes:
		return " ORDER BY like_count " + direction + ", p.created_at DESC"
	default:
		return " ORDER BY p.created_at " + direction
	}
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDetail(row rowScanner) (*domain.PostDetail, error) {
	var detail domain.PostDetail
	err := row.Scan(&detail.ID, &detail.AuthorID, &detail.AuthorName, &detail.CategoryID,
		&detail.CategoryName, &detail.Title, &detail.Content, &detail.Status, &detail.ViewCount,
		&detail.CreatedAt, &detail.UpdatedAt, &detail.LikeCount, &detail.DislikeCount,
		&detail.CommentCount)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func requireRowAffected(result sql.Result, message string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.Wrap(apperrors.ErrNotFound, message)
	}
	return nil
}
