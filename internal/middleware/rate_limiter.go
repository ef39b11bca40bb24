package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lify-app/lify-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiterConfig defines rate limiting rules
type RateLimiterConfig struct {
	Scope       string        // key namespace, e.g. "send"
	MaxRequests int           // Maximum requests allowed in the window
	Window      time.Duration // Time window (e.g., 1 minute)
}

// RateLimiter counts requests per subject in fixed Redis windows. The
// subject is the authenticated user, or the client IP before login.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimiterConfig
}

func NewRateLimiter(redisClient *redis.Client, config RateLimiterConfig) *RateLimiter {
	if config.Scope == "" {
		config.Scope = "global"
	}
	return &RateLimiter{
		redis:  redisClient,
		config: config,
	}
}

// Middleware returns a Gin middleware function for rate limiting
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.ClientIP()
		if userID, ok := CurrentUserID(c); ok {
			subject = userID.String()
		}

		allowed, retryAfter, err := rl.CheckLimit(c.Request.Context(), subject)
		if err != nil {
			// Fail open: Redis trouble must not take messaging down
			logger.Log.Warn("Rate limit check failed",
				zap.String("scope", rl.config.Scope),
				zap.String("ip", c.ClientIP()),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "Too many requests. Please try again later.",
				"retryAfter": int(retryAfter.Seconds()),
			})
			return
		}

		c.Next()
	}
}

// CheckLimit increments the subject's counter for the current window.
// Returns: (allowed bool, retryAfter duration, error)
func (rl *RateLimiter) CheckLimit(ctx context.Context, subject string) (bool, time.Duration, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", rl.config.Scope, subject)

	count, err := rl.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}

	// Set expiry on first request (count = 1)
	if count == 1 {
		if err := rl.redis.Expire(ctx, key, rl.config.Window).Err(); err != nil {
			return false, 0, err
		}
	}

	if count > int64(rl.config.MaxRequests) {
		ttl, err := rl.redis.TTL(ctx, key).Result()
		if err != nil || ttl <= 0 {
			ttl = rl.config.Window // Fallback to window size
		}
		return false, ttl, nil
	}

	return true, 0, nil
}
