package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pdfchat-backend/internal/shared/telemetry"
)

const (
	defaultRedisPrefix = "pdfchat:lock"
	defaultPollEvery   = 50 * time.Millisecond
	defaultRedisTTL    = 2 * time.Minute
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every process talking to the same Redis.
// Keys expire after ttl so a crashed holder cannot wedge them.
type RedisLocker struct {
	client    *redis.Client
	prefix    string
	pollEvery time.Duration
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(addr, password, prefix string) (*RedisLocker, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("lock redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisLocker{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix:    prefix,
		pollEvery: defaultPollEvery,
	}, nil
}

// Ping verifies connectivity.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}

// Lock polls SET NX until it wins, ctx ends, or Redis fails.
func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	redisKey := l.prefix + ":" + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.pollEvery)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return l.releaseFunc(redisKey, token), nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		}
	}
}

func (l *RedisLocker) releaseFunc(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled; release must still run.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
				telemetry.Error("lock.release_failed", map[string]any{
					"key":   redisKey,
					"error": err.Error(),
				})
			}
		})
	}
}

var _ Locker = (*RedisLocker)(nil)
