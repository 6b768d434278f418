// Package db wraps the Postgres pool used for cross-process coordination.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	cfg.MaxConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	return &DB{pool: pool}, nil
}

func (d *DB) Close() {
	d.pool.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return d.pool.Ping(ctx)
}

// Conn is one pooled connection held for the duration of a session-scoped
// operation, such as an advisory lock.
type Conn struct {
	c *pgxpool.Conn
}

func (d *DB) Acquire(ctx context.Context) (*Conn, error) {
	c, err := d.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("db: acquire: %w", err)
	}
	return &Conn{c: c}, nil
}

func (c *Conn) QueryBool(ctx context.Context, sql string, args ...any) (bool, error) {
	var b bool
	if err := c.c.QueryRow(ctx, sql, args...).Scan(&b); err != nil {
		return false, fmt.Errorf("db: %w", err)
	}
	return b, nil
}

// Release hands the connection back to the pool.
func (c *Conn) Release() { c.c.Release() }
