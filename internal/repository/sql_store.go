package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

// SQLStore persists records in the kv_records table of a Postgres or SQLite database.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore constructs the repository.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Read fetches the serialized value stored under key.
func (r *SQLStore) Read(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM kv_records WHERE key = $1`
	var value string
	if err := r.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStoreMiss
		}
		return nil, fmt.Errorf("read record %s: %w", key, err)
	}
	return []byte(value), nil
}

// Write upserts the serialized value stored under key.
func (r *SQLStore) Write(ctx context.Context, key string, value []byte) error {
	const query = `INSERT INTO kv_records (key, value, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("write record %s: %w", key, err)
	}
	return nil
}

// Close releases the database handle.
func (r *SQLStore) Close() error {
	return r.db.Close()
}
