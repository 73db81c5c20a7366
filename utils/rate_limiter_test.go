package utils

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToRate(t *testing.T) {
	limiter := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.Allow() {
			t.Fatalf("Allow() = false on request %d, want true", i+1)
		}
	}
	if limiter.Allow() {
		t.Error("Allow() = true after burst exhausted, want false")
	}
}

func TestRateLimiterRemaining(t *testing.T) {
	limiter := NewRateLimiter(5, time.Minute)

	limiter.Allow()
	limiter.Allow()
	if remaining := limiter.Remaining(); remaining != 3 {
		t.Errorf("Remaining() = %d, want 3", remaining)
	}
}

func TestRateLimiterReset(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)

	limiter.Allow()
	if limiter.Allow() {
		t.Fatal("Allow() = true after exhaustion, want false")
	}

	limiter.Reset()
	if !limiter.Allow() {
		t.Error("Allow() = false after Reset(), want true")
	}
}

func TestChannelLimiterAllWindowsMustHaveCapacity(t *testing.T) {
	// A day ceiling of 2 caps the channel even though the minute window
	// still has tokens.
	limiter := NewChannelLimiter(100, 0, 2)

	if !limiter.Allow() || !limiter.Allow() {
		t.Fatal("first two sends rejected, want allowed")
	}
	if limiter.Allow() {
		t.Error("third send allowed past the day ceiling, want rejected")
	}
}

func TestChannelLimiterZeroCeilingDisablesWindow(t *testing.T) {
	// All ceilings zero means the channel is unconstrained.
	limiter := NewChannelLimiter(0, 0, 0)

	for i := 0; i < 1000; i++ {
		if !limiter.Allow() {
			t.Fatalf("Allow() = false on send %d with no ceilings configured", i+1)
		}
	}
}

func TestChannelLimiterMinuteWindowRejectsFirst(t *testing.T) {
	limiter := NewChannelLimiter(1, 10, 10)

	if !limiter.Allow() {
		t.Fatal("first send rejected, want allowed")
	}
	if limiter.Allow() {
		t.Error("second send allowed past the minute ceiling, want rejected")
	}
}
