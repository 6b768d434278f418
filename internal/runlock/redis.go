package runlock

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so a lease
// that outlived its TTL cannot free someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *log.Logger
}

func NewRedis(rawURL string, ttl time.Duration, logger *log.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("runlock: %w", err)
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Redis{client: redis.NewClient(opts), ttl: ttl, log: logger}, nil
}

func (r *Redis) Acquire(ctx context.Context, key string) (Lease, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("runlock: redis setnx: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}
	r.log.Printf("runlock: acquired %s for %s", key, r.ttl)
	return &redisLease{r: r, key: key, token: token}, nil
}

func (r *Redis) Close() error { return r.client.Close() }

type redisLease struct {
	r     *Redis
	key   string
	token string
}

func (l *redisLease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.r.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("runlock: redis release: %w", err)
	}
	if n == 0 {
		l.r.log.Printf("runlock: %s expired before release", l.key)
	}
	return nil
}
