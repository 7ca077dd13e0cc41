package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"minimarket/internal/inventario"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NewRedis creates and validates a go-redis client connection.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// ── Distributed lock ─────────────────────────────────────────────────────────

// ErrLockTimeout is returned when a key stays held longer than the wait budget.
var ErrLockTimeout = errors.New("tiempo de espera agotado al bloquear producto")

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements inventario.Locker with SET NX PX per key. Keys are
// taken in sorted order and released in reverse.
type RedisLocker struct {
	rdb   *redis.Client
	ttl   time.Duration
	wait  time.Duration
	retry time.Duration
}

var _ inventario.Locker = (*RedisLocker)(nil)

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, wait: ttl, retry: 25 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, keys []string) (func(), error) {
	sorted := inventario.ClavesOrdenadas(keys)
	token := uuid.NewString()
	held := make([]string, 0, len(sorted))

	release := func() {
		// Release with a fresh context: the request context may already be done.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = releaseScript.Run(rctx, l.rdb, []string{held[i]}, token).Err()
		}
	}

	deadline := time.Now().Add(l.wait)
	for _, key := range sorted {
		for {
			ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
			if err != nil {
				release()
				return nil, fmt.Errorf("redis lock %s: %w", key, err)
			}
			if ok {
				held = append(held, key)
				break
			}
			if time.Now().After(deadline) {
				release()
				return nil, ErrLockTimeout
			}
			select {
			case <-ctx.Done():
				release()
				return nil, ctx.Err()
			case <-time.After(l.retry):
			}
		}
	}
	return release, nil
}
