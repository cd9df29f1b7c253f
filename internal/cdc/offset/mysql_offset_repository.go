package offset

import (
	"context"
	"database/sql"

	"github.com/allisson/community/internal/database"
)

// MySQLOffsetRepository handles offset persistence for MySQL
type MySQLOffsetRepository struct {
	db *sql.DB
}

// NewMySQLOffsetRepository creates a new MySQLOffsetRepository
func NewMySQLOffsetRepository(db *sql.DB) *MySQLOffsetRepository {
	return &MySQLOffsetRepository{
		db: db,
	}
}

// Upsert inserts or replaces offset records.
func (r *MySQLOffsetRepository) Upsert(ctx context.Context, records []*Record) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO change_stream_offsets (id, offset_key, offset_value, updated_at)
			  VALUES (?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE offset_value = VALUES(offset_value), updated_at = VALUES(updated_at)`

	for _, record := range records {
		_, err := querier.ExecContext(ctx, query, record.ID, record.Key, record.Value, record.UpdatedAt)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetAll retrieves every stored offset record.
func (r *MySQLOffsetRepository) GetAll(ctx context.Context) ([]*Record, error) {
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
