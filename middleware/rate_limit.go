package middleware

import (
	"fmt"
	"strconv"
	"time"

	"mediconnect/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// APIRateLimitConfig holds the fixed-window rate limit for the HTTP
// surface. This throttles clients; per-recipient delivery throttling
// lives in the rate limiter the orchestrator uses.
type APIRateLimitConfig struct {
	Redis     *redis.Client
	Requests  int
	Window    time.Duration
	KeyPrefix string
	SkipPaths []string
}

// APIRateLimit limits by authenticated user, falling back to client IP.
// Redis failures fail open.
func APIRateLimit(config APIRateLimitConfig) gin.HandlerFunc {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "api_rate"
	}
	if config.Requests <= 0 {
		config.Requests = 300
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	skip := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = true
	}

	return func(c *gin.Context) {
		if config.Redis == nil || skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		identity := c.GetString("userID")
		if identity == "" {
			identity = c.ClientIP()
		}

		key := fmt.Sprintf("%s:%s", config.KeyPrefix, identity)
		ctx := c.Request.Context()

		count, err := config.Redis.Incr(ctx, key).Result()
		if err != nil {
			logrus.Warnf("Rate limit check failed, allowing request: %v", err)
			c.Next()
			return
		}
		if count == 1 {
			config.Redis.Expire(ctx, key, config.Window)
		}

		remaining := config.Requests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if int(count) > config.Requests {
			utils.ErrorResponse(c, 429, "Rate limit exceeded", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
