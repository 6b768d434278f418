// Package runlock keeps two runs for the same target date from driving one
// account at the same time, across processes and hosts.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/example/court-booker/internal/booking"
)

var ErrHeld = errors.New("another run holds the lock")

type Locker interface {
	// Acquire takes key or fails with ErrHeld.
	Acquire(ctx context.Context, key string) (Lease, error)
	Close() error
}

type Lease interface {
	Release(ctx context.Context) error
}

// Key names the lock for one mode, facility and target date.
func Key(mode booking.Mode, facility, date string) string {
	if facility == "" {
		facility = "-"
	}
	return strings.Join([]string{"courtbook", "lock", string(mode), facility, date}, ":")
}

// Open picks an implementation from the URL scheme. An empty URL disables
// locking.
func Open(ctx context.Context, rawURL string, ttl time.Duration, logger *log.Logger) (Locker, error) {
	if logger == nil {
		logger = log.Default()
	}
	if rawURL == "" {
		return Nop{}, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("runlock: %w", err)
	}
	switch u.Scheme {
	case "redis", "rediss":
		r, err := NewRedis(rawURL, ttl, logger)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "postgres", "postgresql":
		p, err := NewPostgres(ctx, rawURL, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("runlock: unsupported scheme %q", u.Scheme)
}

// Nop grants every lock.
type Nop struct{}

func (Nop) Acquire(context.Context, string) (Lease, error) { return nopLease{}, nil }
func (Nop) Close() error                                   { return nil }

type nopLease struct{}

func (nopLease) Release(context.Context) error { return nil }
