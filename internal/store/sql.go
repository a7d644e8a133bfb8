package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQL is a KV backed by the kv table of a relational database.
type SQL struct {
	// DB is the database handle for executing queries.
	DB *sql.DB

	getQuery    string
	putQuery    string
	deleteQuery string
}

// NewPostgres returns a KV over a PostgreSQL kv table.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgres(db *sql.DB) *SQL {
	return &SQL{
		DB:       db,
		getQuery: `SELECT value FROM kv WHERE key = $1`,
		putQuery: `INSERT INTO kv (key, value, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		deleteQuery: `DELETE FROM kv WHERE key = $1`,
	}
}

// NewSQLite returns a KV over a SQLite kv table.
func NewSQLite(db *sql.DB) *SQL {
	return &SQL{
		DB:       db,
		getQuery: `SELECT value FROM kv WHERE key = ?`,
		putQuery: `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		deleteQuery: `DELETE FROM kv WHERE key = ?`,
	}
}

// Get returns the value under key or ErrNotFound.
func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.DB.QueryRowContext(ctx, s.getQuery, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

// Put upserts the value under key.
func (s *SQL) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.DB.ExecContext(ctx, s.putQuery, key, string(value)); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *SQL) Delete(ctx context.Context, key string) error {
	if _, err := s.DB.ExecContext(ctx, s.deleteQuery, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
