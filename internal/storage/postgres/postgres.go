// Package postgres provides a PostgreSQL-backed implementation of the storage.AccountStore interface.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/profilekeeper/internal/storage"
)

var _ storage.AccountStore = (*PostgresStore)(nil)

// DB is the subset of *pgxpool.Pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    principal BYTEA PRIMARY KEY,
    created_at BIGINT NOT NULL,
    personal JSONB NOT NULL DEFAULT '{}'::jsonb,
    social JSONB NOT NULL DEFAULT '{}'::jsonb,
    job JSONB NOT NULL DEFAULT '{}'::jsonb,
    stats JSONB NOT NULL
)`

// PostgresStore implements storage.AccountStore on a pgx connection pool.
type PostgresStore struct {
	db  DB
	now func() time.Time
}

// New connects to dsn, verifies the connection and creates the schema.
func New(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	s := NewWithDB(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing pool. The schema is not touched.
func NewWithDB(db DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Migrate creates the accounts table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
