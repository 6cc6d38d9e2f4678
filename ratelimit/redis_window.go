package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisWindow mirrors admitted timestamps into a Redis sorted set so a
// horizontally-scaled scheduler fleet shares one rolling window per
// source, instead of each process enforcing its own local RPM. It is
// an addition on top of Limiter, not a replacement: the local Limiter
// still governs backoff, which stays process-local by design.
type RedisWindow struct {
	client *redis.Client
	key    string
	rpm    int
}

// NewRedisWindow returns a window keyed by source name.
func NewRedisWindow(client *redis.Client, source string, rpm int) *RedisWindow {
	return &RedisWindow{client: client, key: "ratelimit:window:" + source, rpm: rpm}
}

// Admit records one admission and reports whether the shared window
// had budget for it; a rejected attempt is removed from the set again.
// On any Redis error it fails open (admits), since the local Limiter is
// always the fallback authority.
func (w *RedisWindow) Admit(ctx context.Context) bool {
	now := time.Now()
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()

	pipe := w.client.TxPipeline()
	pipe.ZAdd(ctx, w.key, redis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.ZRemRangeByScore(ctx, w.key, "-inf", strconv.FormatInt(now.Add(-time.Minute).UnixNano(), 10))
	card := pipe.ZCard(ctx, w.key)
	pipe.Expire(ctx, w.key, 2*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return true
	}
	if card.Val() > int64(w.rpm) {
		w.client.ZRem(ctx, w.key, member)
		return false
	}
	return true
}
