// Package repository stores accounts and expression tables in PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the PostgreSQL-backed quota store and table registry.
type Repository struct {
	pool *pgxpool.Pool
}

// New opens a pool on databaseURL and pings it. pool_* parameters in the
// URL win over the defaults set here.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	cfg, err := poolConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// poolConfig parses databaseURL. Bulk loads hold a connection for the
// whole COPY, so the pool is sized above the query concurrency.
func poolConfig(databaseURL string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	defaults := map[string]func(){
		"pool_max_conns":          func() { cfg.MaxConns = 16 },
		"pool_min_conns":          func() { cfg.MinConns = 2 },
		"pool_max_conn_idle_time": func() { cfg.MaxConnIdleTime = 10 * time.Minute },
	}
	for param, apply := range defaults {
		if !strings.Contains(databaseURL, param+"=") {
			apply()
		}
	}
	return cfg, nil
}

// Ping satisfies the readiness probe.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool exposes the pool to integration tests.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// pgUniqueViolation is the PostgreSQL unique_violation error code.
const pgUniqueViolation = "23505"

// hasPgCode reports whether err carries the given PostgreSQL error code.
func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
