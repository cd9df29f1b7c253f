package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/community/internal/database"
	apperrors "github.com/allisson/community/internal/errors"
	"github.com/allisson/community/internal/posts/domain"
)

// PostgreSQLAuthorRepository handles author persistence for PostgreSQL
type PostgreSQLAuthorRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuthorRepository creates a new PostgreSQLAuthorRepository
func NewPostgreSQLAuthorRepository(db *sql.DB) *PostgreSQLAuthorRepository {
	return &PostgreSQLAuthorRepository{
		db: db,
	}
}

// Create inserts a new author.
func (r *PostgreSQLAuthorRepository) Create(ctx context.Context, author *domain.Author) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO authors (id, username, created_at) VALUES ($1, $2, NOW())`

	_, err := querier.ExecContext(ctx, query, author.ID, author.Username)

	return err
}

// GetByID retrieves an author by id.
func (r *PostgreSQLAuthorRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Author, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, username, created_at FROM authors WHERE id = $1`

	var author domain.Author
	err := querier.QueryRowContext(ctx, query, id).Scan(&author.ID, &author.Username, &author.CreatedAt)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "author not found")
		}
		return nil, err
	}

	return &author, nil
}
