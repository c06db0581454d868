package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Conversly/widget-engine/internal/core"
	"github.com/Conversly/widget-engine/internal/response"
	"github.com/Conversly/widget-engine/internal/utils"
)

const (
	DefaultRequestsPerMinute = 60
	DefaultRequestsPerDay    = 1000

	RateLimitMessage = "Rate limit exceeded. Please try again later."

	rateKeyPrefix = "widget:rl"
)

// WindowCounter increments a fixed-window counter and returns the new count.
// The key expires after ttl.
type WindowCounter interface {
	Hit(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type redisCounter struct {
	rdb redis.Cmdable
}

// NewRedisCounter counts with INCR and EXPIRE sent in one transaction.
func NewRedisCounter(rdb redis.Cmdable) WindowCounter {
	return &redisCounter{rdb: rdb}
}

func (r *redisCounter) Hit(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Limiter enforces per-credential minute and day request quotas.
type Limiter struct {
	counter WindowCounter
	now     func() time.Time
}

func NewLimiter(counter WindowCounter) *Limiter {
	return &Limiter{counter: counter, now: time.Now}
}

// Allow counts one request against both windows. Counter failures let the
// request through.
func (l *Limiter) Allow(ctx context.Context, cred *core.Credential) bool {
	now := l.now().UTC()
	perMinute := cred.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = DefaultRequestsPerMinute
	}
	perDay := cred.RequestsPerDay
	if perDay <= 0 {
		perDay = DefaultRequestsPerDay
	}

	windows := []struct {
		key   string
		ttl   time.Duration
		limit int
	}{
		{fmt.Sprintf("%s:%s:m:%d", rateKeyPrefix, cred.ID, now.Unix()/60), 2 * time.Minute, perMinute},
		{fmt.Sprintf("%s:%s:d:%s", rateKeyPrefix, cred.ID, now.Format("20060102")), 25 * time.Hour, perDay},
	}
	for _, w := range windows {
		n, err := l.counter.Hit(ctx, w.key, w.ttl)
		if err != nil {
			utils.Zlog.Warn("Rate counter unavailable", zap.String("credential_id", cred.ID), zap.Error(err))
			return true
		}
		if n > int64(w.limit) {
			return false
		}
	}
	return true
}

// RateLimit applies the limiter to authenticated requests. A nil limiter
// disables it.
func RateLimit(l *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := CredentialFrom(c)
		if l == nil || cred == nil {
			c.Next()
			return
		}
		if !l.Allow(c.Request.Context(), cred) {
			response.Error(c, utils.E(utils.CodeTooManyRequests, "middleware.RateLimit", RateLimitMessage, nil))
			return
		}
		c.Next()
	}
}
