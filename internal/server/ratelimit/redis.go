package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "credkeeper:ratelimit:"

// Connect initializes a Redis client from URL or host:port input.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// counter increments key and reports its value and remaining lifetime.
type counter interface {
	incr(ctx context.Context, key string, period time.Duration) (int64, time.Duration, error)
}

type redisCounter struct {
	client redis.Cmdable
}

func (c redisCounter) incr(ctx context.Context, key string, period time.Duration) (int64, time.Duration, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		ttl = p.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	remaining := ttl.Val()
	if remaining < 0 {
		// fresh key without expiry: this request opened the window
		if err := c.client.PExpire(ctx, key, period).Err(); err != nil {
			return 0, 0, err
		}
		remaining = period
	}
	return incr.Val(), remaining, nil
}

// RedisLimiter shares windows across replicas through Redis INCR counters.
type RedisLimiter struct {
	counter counter
	limit   int
	period  time.Duration
}

func NewRedisLimiter(client redis.Cmdable, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{counter: redisCounter{client: client}, limit: limit, period: period}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	count, ttl, err := l.counter.incr(ctx, keyPrefix+key, l.period)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit counter: %w", err)
	}
	return decide(count, l.limit, ttl), nil
}
