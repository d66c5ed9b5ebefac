package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the atomic counter primitive the limiter is built on.
// Implementations must be safe for concurrent use across goroutines and
// across gateway instances.
type Store interface {
	// Increment atomically increments the counter for key, setting its
	// expiry to window when the key is created by this call. It returns the
	// post-increment count and the key's remaining TTL. Increment-and-expire
	// must be a single atomic operation: two instances racing on a fresh key
	// must not both treat it as new.
	Increment(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)

	// Decrement atomically decrements the counter for key. Used to refund a
	// slot after a successful request under a SkipOnSuccess policy.
	Decrement(ctx context.Context, key string) error
}

// incrScript performs INCR and first-hit PEXPIRE as one atomic Redis call and
// returns the new count alongside the key's remaining TTL in milliseconds.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`)

// RedisStore implements Store against a shared Redis instance.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a counter store backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Increment runs the atomic increment-with-expiry script.
func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := incrScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("incrementing counter %q: %w", key, err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("incrementing counter %q: unexpected script reply %v", key, res)
	}

	count, ok := res[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("incrementing counter %q: non-integer count %v", key, res[0])
	}
	ttlMs, ok := res[1].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("incrementing counter %q: non-integer ttl %v", key, res[1])
	}

	return count, time.Duration(ttlMs) * time.Millisecond, nil
}

// Decrement reduces the counter by one. If the key has already expired the
// DECR recreates it at -1 with no TTL, which would leak; delete it instead.
func (s *RedisStore) Decrement(ctx context.Context, key string) error {
	n, err := s.client.Decr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("decrementing counter %q: %w", key, err)
	}
	if n < 0 {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("cleaning up counter %q: %w", key, err)
		}
	}
	return nil
}
