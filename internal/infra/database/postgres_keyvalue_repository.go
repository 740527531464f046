package database

import (
	"context"
	"database/sql"
	"fmt"
)

var ErrKeyNotFound = fmt.Errorf("key not found")

type PostgresKeyValueRepository struct {
	db *sql.DB
}

func NewPostgresKeyValueRepository(db *sql.DB) *PostgresKeyValueRepository {
	return &PostgresKeyValueRepository{db: db}
}

func (r *PostgresKeyValueRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM storage WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("error getting value for key %q: %w", key, err)
	}
	return value, nil
}

func (r *PostgresKeyValueRepository) Put(ctx context.Context, key, value string) error {
	query := `INSERT INTO storage (key, value) VALUES ($1, $2)
               ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("error putting value for key %q: %w", key, err)
	}
	return nil
}
