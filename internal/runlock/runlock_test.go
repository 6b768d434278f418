package runlock

import (
	"context"
	"io"
	"log"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/court-booker/internal/booking"
)

var quiet = log.New(io.Discard, "", 0)

func TestKey(t *testing.T) {
	assert.Equal(t, "courtbook:lock:api:1530:07/15/2025", Key(booking.ModeAPI, "1530", "07/15/2025"))
	assert.Equal(t, "courtbook:lock:grid:-:07/15/2025", Key(booking.ModeGrid, "", "07/15/2025"))
}

func TestOpenEmptyURLDisablesLocking(t *testing.T) {
	l, err := Open(context.Background(), "", time.Minute, quiet)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, l)

	lease, err := l.Acquire(context.Background(), "k")
	require.NoError(t, err)
	assert.NoError(t, lease.Release(context.Background()))
	assert.NoError(t, l.Close())
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "memcached://localhost:11211", time.Minute, quiet)
	assert.ErrorContains(t, err, "unsupported scheme")
}

func TestOpenRedisIsLazy(t *testing.T) {
	l, err := Open(context.Background(), "redis://localhost:6379/2", 0, quiet)
	require.NoError(t, err)
	defer l.Close()

	r, ok := l.(*Redis)
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, r.ttl)
}

func TestRedisUnreachableIsNotHeld(t *testing.T) {
	r, err := NewRedis("redis://"+closedAddr(t)+"/0", time.Minute, quiet)
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = r.Acquire(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrHeld)
}

func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestOpenPostgresUnreachableFailsEarly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	l, err := Open(ctx, "postgres://courtbook:x@"+closedAddr(t)+"/courtbook?sslmode=disable&connect_timeout=2", time.Minute, quiet)
	require.Error(t, err)
	assert.Nil(t, l)
	assert.Contains(t, err.Error(), "runlock: postgres")
}

func TestAdvisoryIDStable(t *testing.T) {
	a := advisoryID(Key(booking.ModeAPI, "1530", "07/15/2025"))
	assert.Equal(t, a, advisoryID(Key(booking.ModeAPI, "1530", "07/15/2025")))
	assert.NotEqual(t, a, advisoryID(Key(booking.ModeAPI, "1530", "07/16/2025")))
}
