package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/community/internal/database"
	apperrors "github.com/allisson/community/internal/errors"
	"github.com/allisson/community/internal/posts/domain"
)

// PostgreSQLCategoryRepository handles category persistence for PostgreSQL
type PostgreSQLCategoryRepository struct {
	db *sql.DB
}

// NewPostgreSQLCategoryRepository creates a new PostgreSQLCategoryRepository
func NewPostgreSQLCategoryRepository(db *sql.DB) *PostgreSQLCategoryRepository {
	return &PostgreSQLCategoryRepository{
		db: db,
	}
}

// Create inserts a new category.
func (r *PostgreSQLCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO categories (id, name, created_at) VALUES ($1, $2, NOW())`

	_, err := querier.ExecContext(ctx, query, category.ID, category.Name)

	return err
}

// GetByID retrieves a category by id.
func (r *PostgreSQLCategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, name, created_at FROM categories WHERE id = $1`

	var category domain.Category
	err := querier.QueryRowContext(ctx, query, id).Scan(&category.ID, &category.Name, &category.CreatedAt)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "category not found")
		}
		return nil, err
	}

	return &category, nil
}
