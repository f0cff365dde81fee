package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(start time.Time) (*time.Time, func() time.Time) {
	now := start
	return &now, func() time.Time { return now }
}

func TestAllowWithinBurst(t *testing.T) {
	rl := NewRateLimiter(3)
	clock, now := fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rl.now = now

	for i := 0; i < 3; i++ {
		allowed, _ := rl.Allow("user-1", ActionPaymentInitiation)
		assert.True(t, allowed, "request %d", i)
	}

	allowed, retryAfter := rl.Allow("user-1", ActionPaymentInitiation)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))

	// other users and actions have their own buckets
	allowed, _ = rl.Allow("user-2", ActionPaymentInitiation)
	assert.True(t, allowed)
	allowed, _ = rl.Allow("user-1", ActionManualVerify)
	assert.True(t, allowed)

	*clock = clock.Add(20 * time.Second)
	allowed, _ = rl.Allow("user-1", ActionPaymentInitiation)
	assert.True(t, allowed, "a token refills after a third of a minute")
}

func TestRefusalDoesNotConsumeTokens(t *testing.T) {
	rl := NewRateLimiter(1)
	clock, now := fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rl.now = now

	allowed, _ := rl.Allow("user-1", ActionPaymentInitiation)
	assert.True(t, allowed)
	for i := 0; i < 5; i++ {
		allowed, _ = rl.Allow("user-1", ActionPaymentInitiation)
		assert.False(t, allowed)
	}

	*clock = clock.Add(time.Minute)
	allowed, _ = rl.Allow("user-1", ActionPaymentInitiation)
	assert.True(t, allowed)
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(10)
	clock, now := fixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rl.now = now

	rl.Allow("idle", ActionPaymentInitiation)
	*clock = clock.Add(2 * time.Hour)
	rl.Allow("active", ActionPaymentInitiation)

	rl.Cleanup()
	assert.Equal(t, 1, rl.size())
}
