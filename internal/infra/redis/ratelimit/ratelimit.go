package infra_redis_ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis"
)

const keyPrefix = "dinevote:ratelimit:"

// Limiter is a fixed-window request counter shared through Redis.
type Limiter struct {
	client *redis.Client
	max    int64
	window time.Duration
}

func New(client *redis.Client, max int, window time.Duration) *Limiter {
	if max <= 0 {
		panic("rate limit max must be positive")
	}
	if window <= 0 {
		panic("rate limit window must be positive")
	}
	return &Limiter{client: client, max: int64(max), window: window}
}

// Allow counts one hit for subject and reports whether it fits the window.
// The window starts with the first hit and its TTL is never extended.
func (l *Limiter) Allow(ctx context.Context, subject string) (bool, error) {
	key := keyPrefix + subject

	pipe := l.client.WithContext(ctx).TxPipeline()
	pipe.SetNX(key, 0, l.window)
	incr := pipe.Incr(key)
	if _, err := pipe.Exec(); err != nil && err != redis.Nil {
		return false, err
	}
	return incr.Val() <= l.max, nil
}
