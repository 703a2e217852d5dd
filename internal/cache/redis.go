package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the Store used when the client runs with a shared local cache
// (e.g. a kiosk host serving several table terminals). Entries carry a
// TTL so an abandoned table session eventually evaporates on its own.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects a Redis-backed store. ttl <= 0 means no expiry.
func NewRedis(addr string, ttl time.Duration) *Redis {
	return &Redis{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
	}
}

func (s *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Redis) Set(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, key, value, s.ttl).Err()
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Close releases the underlying connection pool.
func (s *Redis) Close() error {
	return s.rdb.Close()
}
