package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Limiter is a fixed-window counter. Allow returns false once more than max
// attempts have been made for the key within the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type redisLimiter struct {
	logger *logrus.Logger
	client *redis.Client
	prefix string
	window time.Duration
	max    int64
}

func NewRedisLimiter(logger *logrus.Logger, client *redis.Client, prefix string, window time.Duration, max int64) Limiter {
	return &redisLimiter{
		logger: logger,
		client: client,
		prefix: prefix,
		window: window,
		max:    max,
	}
}

// Allow implements Limiter.
func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := fmt.Sprintf("%s:{%s}:%d", l.prefix, key, time.Now().UnixNano()/int64(l.window))

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.WithContext(ctx).WithError(err).Error()
		return false, err
	}

	return incr.Val() <= l.max, nil
}
