package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/logger"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
}

// RateLimiter is a fixed-window counter per authenticated user kept in
// Redis. Without a Redis client every request is allowed.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	log    *logger.Logger
}

func NewRateLimiter(redisClient *redis.Client, config RateLimitConfig, log *logger.Logger) *RateLimiter {
	return &RateLimiter{redis: redisClient, config: config, log: log}
}

// NewRecipeCreationRateLimiter limits recipe creation per user per hour.
func NewRecipeCreationRateLimiter(redisClient *redis.Client, limit int, log *logger.Logger) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    time.Hour,
		Limit:     limit,
		KeyPrefix: "rate_limit:recipe_creation",
	}, log)
}

// NewRecipeModificationRateLimiter limits edits per user per recipe per hour.
func NewRecipeModificationRateLimiter(redisClient *redis.Client, limit int, log *logger.Logger) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    time.Hour,
		Limit:     limit,
		KeyPrefix: "rate_limit:recipe_modification",
	}, log)
}

// RateLimitMiddleware counts requests per user. It must run after RequireAuth.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rl.enforce(c, "")
	}
}

// PerResourceMiddleware counts requests per user and path parameter param.
func (rl *RateLimiter) PerResourceMiddleware(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rl.enforce(c, c.Param(param))
	}
}

func (rl *RateLimiter) enforce(c *gin.Context, resource string) {
	if rl == nil || rl.redis == nil {
		c.Next()
		return
	}
	userID, ok := UserID(c)
	if !ok {
		_ = c.Error(apierr.Unauthorized("user not authenticated"))
		c.Abort()
		return
	}

	key := userID.String()
	if resource != "" {
		key += ":" + resource
	}
	allowed, remaining, resetTime, err := rl.IsAllowed(c.Request.Context(), key)
	if err != nil {
		// fail open: Redis trouble must not block writes
		if rl.log != nil {
			rl.log.Warn("rate limit check failed", "prefix", rl.config.KeyPrefix, "error", err)
		}
		c.Header("X-RateLimit-Error", "rate limit check failed")
		c.Next()
		return
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

	if !allowed {
		c.Header("Retry-After", strconv.Itoa(int(time.Until(resetTime).Seconds())+1))
		_ = c.Error(apierr.RateLimited(fmt.Sprintf("rate limit of %d requests per %v exceeded", rl.config.Limit, rl.config.Window)))
		c.Abort()
		return
	}
	c.Next()
}

// IsAllowed checks if a request from the given user is allowed
// Returns: allowed, remaining requests, reset time, error
func (rl *RateLimiter) IsAllowed(ctx context.Context, key string) (bool, int, time.Time, error) {
	now := time.Now()
	windowStart := now.Truncate(rl.config.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, key, windowStart.Unix())

	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := int(incrCmd.Val())
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.config.Limit, remaining, windowStart.Add(rl.config.Window), nil
}
