package runlock

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"

	"github.com/example/court-booker/internal/db"
)

// Postgres uses session-level advisory locks. The lock lives as long as the
// connection that took it, so a crashed run frees it without a TTL.
type Postgres struct {
	db  *db.DB
	log *log.Logger
}

func NewPostgres(ctx context.Context, rawURL string, logger *log.Logger) (*Postgres, error) {
	d, err := db.Open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	// The pool connects lazily; fail on a bad LOCK_URL before anyone logs in.
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("runlock: postgres: %w", err)
	}
	return &Postgres{db: d, log: logger}, nil
}

func (p *Postgres) Acquire(ctx context.Context, key string) (Lease, error) {
	conn, err := p.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	id := advisoryID(key)
	ok, err := conn.QueryBool(ctx, "select pg_try_advisory_lock($1)", id)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("runlock: %w", err)
	}
	if !ok {
		conn.Release()
		return nil, ErrHeld
	}
	p.log.Printf("runlock: acquired %s (advisory %d)", key, id)
	return &pgLease{conn: conn, id: id}, nil
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}

type pgLease struct {
	conn *db.Conn
	id   int64
}

func (l *pgLease) Release(ctx context.Context) error {
	defer l.conn.Release()
	if _, err := l.conn.QueryBool(ctx, "select pg_advisory_unlock($1)", l.id); err != nil {
		return fmt.Errorf("runlock: %w", err)
	}
	return nil
}

// advisoryID folds a lock key into the bigint space advisory locks use.
func advisoryID(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}
