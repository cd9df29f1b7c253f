package offset

import (
	"context"
	"database/sql"

	"github.com/allisson/community/internal/database"
)

// PostgreSQLOffsetRepository handles offset persistence for PostgreSQL
type PostgreSQLOffsetRepository struct {
	db *sql.DB
}

// NewPostgreSQLOffsetRepository creates a new PostgreSQLOffsetRepository
func NewPostgreSQLOffsetRepository(db *sql.DB) *PostgreSQLOffsetRepository {
	return &PostgreSQLOffsetRepository{
		db: db,
	}
}

// Upsert inserts or replaces offset records.
func (r *PostgreSQLOffsetRepository) Upsert(ctx context.Context, records []*Record) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO change_stream_offsets (id, offset_key, offset_value, updated_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (id) DO UPDATE SET offset_value = EXCLUDED.offset_value, updated_at = EXCLUDED.updated_at`

	for _, record := range records {
		_, err := querier.ExecContext(ctx, query, record.ID, record.Key, record.Value, record.UpdatedAt)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetAll retrieves every stored offset record.
func (r *PostgreSQLOffsetRepository) GetAll(ctx context.Context) ([]*Record, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, offset_key, offset_value, updated_at FROM change_stream_offsets`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var records []*Record
	for rows.Next() {
		var record Record

		err := rows.Scan(&record.ID, &record.Key, &record.Value, &record.UpdatedAt)
		if err != nil {
			return nil, err
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
