// Package database opens the optional Postgres catalog.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Schema creates the posters table. Keeping the migration in code lets the
// service bootstrap an empty database.
const Schema = `
CREATE TABLE IF NOT EXISTS posters (
	task_id TEXT PRIMARY KEY,
	slug TEXT NOT NULL,
	city TEXT NOT NULL,
	country TEXT NOT NULL,
	theme TEXT NOT NULL,
	poster_url TEXT NOT NULL,
	thumbnail_url TEXT,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	distance INTEGER NOT NULL,
	network_type TEXT NOT NULL,
	format TEXT NOT NULL,
	poster_size TEXT NOT NULL,
	run_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posters_slug ON posters(slug);`

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
