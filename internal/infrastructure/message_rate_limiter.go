package infrastructure

import (
	"context"
	"sync"
	"time"
)

// MessageRateLimiter implements token bucket rate limiting per phone number
type MessageRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	rate      float64 // tokens per second
	maxTokens float64 // burst capacity
	idleTTL   time.Duration
	now       func() time.Time
}

type tokenBucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewMessageRateLimiter creates a rate limiter allowing rate messages per
// second with the given burst
func NewMessageRateLimiter(rate float64, burst int) *MessageRateLimiter {
	return &MessageRateLimiter{
		buckets:   make(map[string]*tokenBucket),
		rate:      rate,
		maxTokens: float64(burst),
		idleTTL:   10 * time.Minute,
		now:       time.Now,
	}
}

// Allow consumes one token for key if available
func (rl *MessageRateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	bucket, exists := rl.buckets[key]
	if !exists {
		rl.buckets[key] = &tokenBucket{
			tokens:     rl.maxTokens - 1,
			lastUpdate: now,
		}
		return rl.maxTokens >= 1
	}

	// Refill tokens based on time elapsed
	bucket.tokens += now.Sub(bucket.lastUpdate).Seconds() * rl.rate
	if bucket.tokens > rl.maxTokens {
		bucket.tokens = rl.maxTokens
	}
	bucket.lastUpdate = now

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true
	}
	return false
}

// WaitTime returns how long key must wait before its next message is allowed
func (rl *MessageRateLimiter) WaitTime(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, exists := rl.buckets[key]
	if !exists || rl.rate <= 0 {
		return 0
	}
	current := bucket.tokens + rl.now().Sub(bucket.lastUpdate).Seconds()*rl.rate
	if current >= 1 {
		return 0
	}
	return time.Duration((1 - current) / rl.rate * float64(time.Second))
}

// Reset removes rate limit state for key
func (rl *MessageRateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, key)
}

// Run evicts idle buckets until ctx is done
func (rl *MessageRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *MessageRateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.lastUpdate) > rl.idleTTL {
			delete(rl.buckets, key)
		}
	}
}
