// middleware/rate_limit.go
package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"memorybox/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimitConfig holds HTTP rate limiting configuration
type RateLimitConfig struct {
	Redis        *redis.Client
	Requests     int           // Number of requests allowed
	Window       time.Duration // Time window
	KeyPrefix    string        // Redis key prefix
	SkipPaths    []string      // Paths to skip rate limiting
	ErrorMessage string        // Custom error message
}

// RateLimitStrategy defines different rate limiting strategies
type RateLimitStrategy string

const (
	StrategyIP       RateLimitStrategy = "ip"
	StrategyUser     RateLimitStrategy = "user"
	StrategyUserOrIP RateLimitStrategy = "user_or_ip"
)

// RequestRateLimiter limits inbound HTTP requests using a sliding window in Redis
type RequestRateLimiter struct {
	config   RateLimitConfig
	strategy RateLimitStrategy
}

// NewRequestRateLimiter creates a new HTTP request rate limiter
func NewRequestRateLimiter(config RateLimitConfig, strategy RateLimitStrategy) *RequestRateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rate_limit"
	}
	if config.ErrorMessage == "" {
		config.ErrorMessage = "Rate limit exceeded"
	}

	return &RequestRateLimiter{
		config:   config,
		strategy: strategy,
	}
}

// Middleware returns the rate limiting middleware
func (rl *RequestRateLimiter) Middleware() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		if rl.shouldSkipPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		key := rl.getKey(c)
		if key == "" {
			c.Next()
			return
		}

		allowed, resetTime, remaining, err := rl.checkRateLimit(c, key)
		if err != nil {
			logrus.Errorf("Rate limit check failed: %v", err)
			// Allow request to proceed on error
			c.Next()
			return
		}

		rl.setRateLimitHeaders(c, remaining, resetTime)

		if !allowed {
			rl.handleRateLimitExceeded(c, resetTime)
			return
		}

		c.Next()
	})
}

// checkRateLimit checks if request is within rate limit using a sliding
// window log backed by a Redis sorted set.
func (rl *RequestRateLimiter) checkRateLimit(c *gin.Context, key string) (allowed bool, resetTime time.Time, remaining int, err error) {
	ctx := c.Request.Context()
	now := time.Now()
	window := rl.config.Window

	pipe := rl.config.Redis.Pipeline()

	// Remove expired entries
	expiredBefore := now.Add(-window).UnixNano()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", expiredBefore))

	// Count current requests
	pipe.ZCard(ctx, key)

	// Add current request
	pipe.ZAdd(ctx, key, &redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})

	pipe.Expire(ctx, key, window+time.Minute)

	results, err := pipe.Exec(ctx)
	if err != nil {
		return false, time.Time{}, 0, err
	}

	// Count before the current request was added
	currentCount := results[1].(*redis.IntCmd).Val()

	remaining = rl.config.Requests - int(currentCount) - 1
	if remaining < 0 {
		remaining = 0
	}

	resetTime = now.Add(window)
	allowed = currentCount < int64(rl.config.Requests)

	// If not allowed, remove the request we just added
	if !allowed {
		rl.config.Redis.ZRem(ctx, key, fmt.Sprintf("%d", now.UnixNano()))
	}

	return allowed, resetTime, remaining, nil
}

// getKey generates rate limit key based on strategy
func (rl *RequestRateLimiter) getKey(c *gin.Context) string {
	prefix := rl.config.KeyPrefix

	switch rl.strategy {
	case StrategyIP:
		return fmt.Sprintf("%s:ip:%s", prefix, rl.getClientIP(c))

	case StrategyUser:
		userID := c.GetString("userID")
		if userID == "" {
			return ""
		}
		return fmt.Sprintf("%s:user:%s", prefix, userID)

	case StrategyUserOrIP:
		userID := c.GetString("userID")
		if userID != "" {
			return fmt.Sprintf("%s:user:%s", prefix, userID)
		}
		return fmt.Sprintf("%s:ip:%s", prefix, rl.getClientIP(c))

	default:
		return fmt.Sprintf("%s:ip:%s", prefix, rl.getClientIP(c))
	}
}

// getClientIP gets the real client IP
func (rl *RequestRateLimiter) getClientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := c.GetHeader("X-Real-IP"); xri != "" {
		return xri
	}

	return c.ClientIP()
}

// setRateLimitHeaders sets rate limit related headers
func (rl *RequestRateLimiter) setRateLimitHeaders(c *gin.Context, remaining int, resetTime time.Time) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
}

// handleRateLimitExceeded rejects the request with 429
func (rl *RequestRateLimiter) handleRateLimitExceeded(c *gin.Context, resetTime time.Time) {
	retryAfter := time.Until(resetTime).Seconds()
	if retryAfter < 0 {
		retryAfter = 0
	}

	c.Header("Retry-After", strconv.Itoa(int(retryAfter)))

	logrus.WithFields(logrus.Fields{
		"client_ip":   rl.getClientIP(c),
		"user_id":     c.GetString("userID"),
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"retry_after": retryAfter,
	}).Warn("Rate limit exceeded")

	utils.ErrorResponse(c, http.StatusTooManyRequests, rl.config.ErrorMessage, gin.H{
		"retryAfter": int(retryAfter),
	})
	c.Abort()
}

// shouldSkipPath checks if path should be skipped
func (rl *RequestRateLimiter) shouldSkipPath(path string) bool {
	for _, skipPath := range rl.config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	return false
}

// DefaultRateLimit creates a default rate limiter (100 requests per minute per IP)
func DefaultRateLimit(redis *redis.Client) gin.HandlerFunc {
	config := RateLimitConfig{
		Redis:        redis,
		Requests:     100,
		Window:       time.Minute,
		KeyPrefix:    "rate_limit",
		ErrorMessage: "Too many requests. Please try again later.",
		SkipPaths: []string{
			"/health",
			"/t/o/",
		},
	}

	limiter := NewRequestRateLimiter(config, StrategyIP)
	return limiter.Middleware()
}

// NotifyRateLimit creates rate limiter for send endpoints based on user
func NotifyRateLimit(redis *redis.Client) gin.HandlerFunc {
	config := RateLimitConfig{
		Redis:        redis,
		Requests:     60,
		Window:       time.Minute,
		KeyPrefix:    "notify_rate_limit",
		ErrorMessage: "Send rate limit exceeded. Please slow down.",
	}

	limiter := NewRequestRateLimiter(config, StrategyUser)
	return limiter.Middleware()
}

// WebhookRateLimit creates a lenient rate limiter for provider webhooks
func WebhookRateLimit(redis *redis.Client) gin.HandlerFunc {
	config := RateLimitConfig{
		Redis:        redis,
		Requests:     600,
		Window:       time.Minute,
		KeyPrefix:    "webhook_rate_limit",
		ErrorMessage: "Webhook rate limit exceeded.",
	}

	limiter := NewRequestRateLimiter(config, StrategyIP)
	return limiter.Middleware()
}

// RateLimitMiddleware creates rate limiter based on environment
func RateLimitMiddleware(redis *redis.Client, environment string) gin.HandlerFunc {
	switch environment {
	case "development":
		// More lenient for development
		return NewRequestRateLimiter(RateLimitConfig{
			Redis:     redis,
			Requests:  10000,
			Window:    time.Hour,
			KeyPrefix: "dev_rate_limit",
		}, StrategyIP).Middleware()
	default:
		return DefaultRateLimit(redis)
	}
}
