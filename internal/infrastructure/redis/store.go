package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-signup-nosql/internal/domain"
	"github.com/redis/go-redis/v9"
)

const compareAndDeleteScript = `
local v = redis.call("GET", KEYS[1])
if not v then
  return -1
end
if v == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`

var compareAndDeleteLua = redis.NewScript(compareAndDeleteScript)

// Store is a string key/value cache with per-key TTL.
type Store struct {
	client redis.Cmdable
	prefix string
}

func NewStore(client redis.Cmdable, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Get returns domain.ErrNotFound when the key is absent or expired.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("cache key %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("cache get %s: %w", key, err)
	}
	return v, nil
}

// Set upserts value with ttl; any previous value is replaced.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("cache del %s: %w", key, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists %s: %w", key, err)
	}
	return n > 0, nil
}

// CompareAndDelete deletes key only if it currently holds expected, atomically.
// It returns domain.ErrNotFound when the key is absent, false on mismatch.
func (s *Store) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	res, err := compareAndDeleteLua.Run(ctx, s.client, []string{s.key(key)}, expected).Int()
	if err != nil {
		return false, fmt.Errorf("cache compare-and-delete %s: %w", key, err)
	}
	switch res {
	case -1:
		return false, fmt.Errorf("cache key %s: %w", key, domain.ErrNotFound)
	case 1:
		return true, nil
	default:
		return false, nil
	}
}
