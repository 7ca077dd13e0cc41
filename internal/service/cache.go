package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// cacheJSON is a best-effort Redis cache of JSON values. A nil client or any
// Redis failure degrades to a miss.
type cacheJSON struct {
	rdb *redis.Client
	ttl time.Duration
}

func (c cacheJSON) get(ctx context.Context, key string, dst any) bool {
	if c.rdb == nil {
		return false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("cache no disponible")
		}
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

func (c cacheJSON) set(ctx context.Context, key string, v any) {
	if c.rdb == nil || c.ttl <= 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache no disponible")
	}
}

func (c cacheJSON) del(ctx context.Context, keys ...string) {
	if c.rdb == nil || len(keys) == 0 {
		return
	}
	_ = c.rdb.Del(ctx, keys...).Err()
}
