package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/noah-isme/sma-feedback-api/pkg/config"
)

// NewSQLite opens the embedded database file, creating its directory when needed.
func NewSQLite(ctx context.Context, cfg config.SQLiteConfig) (*sqlx.DB, error) {
	path := cfg.Path
	if path == "" {
		path = "./data/feedback.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("prepare sqlite directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates the key-value record table shared by every SQL backend.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	const schema = `CREATE TABLE IF NOT EXISTS kv_records (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create kv_records table: %w", err)
	}
	return nil
}
