package iot

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterStore_Basic(t *testing.T) {
	limiters := NewRateLimiterStore(1, 2)

	limiter := limiters.GetLimiter("127.0.0.1")
	require.NotNil(t, limiter)
	assert.EqualValues(t, 1, limiter.Limit())
	assert.Equal(t, 2, limiter.Burst())
	assert.Same(t, limiter, limiters.GetLimiter("127.0.0.1"))
}

func TestRateLimiterStore_CustomLimit(t *testing.T) {
	limiters := NewRateLimiterStore(1, 2)

	limiters.SetLimiter("/energymonitor.v1.CollectorService/Collect", 5, 10)
	limiter := limiters.GetLimiter("/energymonitor.v1.CollectorService/Collect")

	assert.EqualValues(t, 5, limiter.Limit())
	assert.Equal(t, 10, limiter.Burst())
}

func TestRateLimiterStore_Concurrency(t *testing.T) {
	limiters := NewRateLimiterStore(10, 5)

	seen := make(chan any, 100)
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- limiters.GetLimiter("10.0.0.7")
		}()
	}
	wg.Wait()
	close(seen)

	first := limiters.GetLimiter("10.0.0.7")
	for l := range seen {
		assert.Same(t, first, l, "every caller shares one bucket per key")
	}
}

func TestRateLimiter_Enforcement(t *testing.T) {
	limiters := NewRateLimiterStore(2, 2) // 2 events/sec

	assert.True(t, limiters.Allow("client"))
	assert.True(t, limiters.Allow("client"))
	assert.False(t, limiters.Allow("client"), "burst exhausted")
	assert.True(t, limiters.Allow("other-client"), "keys do not share buckets")

	// Wait for refill
	time.Sleep(600 * time.Millisecond)
	assert.True(t, limiters.Allow("client"))
}
