package utils

import (
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter
type RateLimiter struct {
	rate       int           // requests per period
	period     time.Duration // time period
	tokens     int           // current available tokens
	maxTokens  int           // maximum tokens (burst capacity)
	lastRefill time.Time     // last time tokens were refilled
	mutex      sync.Mutex    // mutex for thread safety
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rate int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		rate:       rate,
		period:     period,
		tokens:     rate,
		maxTokens:  rate,
		lastRefill: time.Now(),
	}
}

// Allow checks if a request is allowed under the rate limit
func (rl *RateLimiter) Allow() bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()

	// Calculate tokens to add based on time passed
	timePassed := now.Sub(rl.lastRefill)
	tokensToAdd := int(timePassed.Nanoseconds() * int64(rl.rate) / rl.period.Nanoseconds())

	if tokensToAdd > 0 {
		rl.tokens += tokensToAdd
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = now
	}

	// Check if we have tokens available
	if rl.tokens > 0 {
		rl.tokens--
		return true
	}

	return false
}

// Remaining returns the number of remaining tokens
func (rl *RateLimiter) Remaining() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return rl.tokens
}

// Reset resets the rate limiter
func (rl *RateLimiter) Reset() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	rl.tokens = rl.maxTokens
	rl.lastRefill = time.Now()
}

// ChannelLimiter enforces a channel's per-minute, per-hour and per-day
// ceilings. A send consumes one token from every window; the send is allowed
// only if all three have capacity. A zero ceiling disables that window.
type ChannelLimiter struct {
	perMinute *RateLimiter
	perHour   *RateLimiter
	perDay    *RateLimiter
}

// NewChannelLimiter creates a limiter from configured ceilings.
func NewChannelLimiter(perMinute, perHour, perDay int) *ChannelLimiter {
	cl := &ChannelLimiter{}
	if perMinute > 0 {
		cl.perMinute = NewRateLimiter(perMinute, time.Minute)
	}
	if perHour > 0 {
		cl.perHour = NewRateLimiter(perHour, time.Hour)
	}
	if perDay > 0 {
		cl.perDay = NewRateLimiter(perDay, 24*time.Hour)
	}
	return cl
}

// Allow consumes one send from every configured window.
func (cl *ChannelLimiter) Allow() bool {
	// Tightest window first. A rejection may have consumed tokens from the
	// windows already checked; at these ceilings the slack is negligible.
	if cl.perMinute != nil && !cl.perMinute.Allow() {
		return false
	}
	if cl.perHour != nil && !cl.perHour.Allow() {
		return false
	}
	if cl.perDay != nil && !cl.perDay.Allow() {
		return false
	}
	return true
}
