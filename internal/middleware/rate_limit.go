package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
)

// Limiter counts attempts per key within a fixed window.
type Limiter interface {
	// Allow records an attempt and reports whether it is within the limit,
	// with the time left until the window resets.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RedisLimiter is a fixed-window counter stored in Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
	}
}

// Allow increments and reads the TTL in one transaction. A key without a TTL gets
// one on every call, so a failed EXPIRE cannot leave a counter that never resets.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	if _, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		ttl = pipe.TTL(ctx, redisKey)
		return nil
	}); err != nil {
		return false, 0, err
	}

	retryAfter := ttl.Val()
	if retryAfter < 0 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, 0, err
		}
		retryAfter = l.window
	}
	return incr.Val() <= l.limit, retryAfter, nil
}

// LoginRateLimit throttles attempts per client IP. A nil limiter disables it.
// Limiter failures let the request through.
func LoginRateLimit(limiter Limiter, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.WithError(err).Warn("Rate limiter unavailable")
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.Error(apierrors.TooManyRequests("Too many login attempts. Please try again later."))
			c.Abort()
			return
		}

		c.Next()
	}
}
