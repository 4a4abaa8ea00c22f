package infrastructure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessageRateLimiter_BurstThenRefill(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewMessageRateLimiter(1, 3)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("+201000000001"), "message %d within burst", i)
	}
	assert.False(t, rl.Allow("+201000000001"))
	assert.Equal(t, time.Second, rl.WaitTime("+201000000001"))

	// other phones keep their own bucket
	assert.True(t, rl.Allow("+201000000002"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("+201000000001"))
	assert.False(t, rl.Allow("+201000000001"))
}

func TestMessageRateLimiter_EvictIdle(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewMessageRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(11 * time.Minute)
	rl.Allow("b")
	rl.evictIdle()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.buckets, "a")
	assert.Contains(t, rl.buckets, "b")
}

func TestMessageRateLimiter_Reset(t *testing.T) {
	rl := NewMessageRateLimiter(0.001, 1)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	rl.Reset("a")
	assert.True(t, rl.Allow("a"))
}
