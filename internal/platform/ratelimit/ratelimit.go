// Package ratelimit provides a keyed token bucket limiter.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const minIdleTTL = time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter gives every key its own independent limiter. Keys idle long
// enough for their bucket to refill are dropped during lookups.
type KeyedRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*entry
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// New creates a limiter allowing perInterval events per interval, with the given burst.
func New(perInterval int, interval time.Duration, burst int) *KeyedRateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	idle := minIdleTTL
	if perInterval > 0 && interval > 0 {
		limit = rate.Limit(float64(perInterval) / interval.Seconds())
		// A bucket idle this long is full again, so forgetting it changes nothing.
		if refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &KeyedRateLimiter{
		limiters: make(map[string]*entry),
		limit:    limit,
		burst:    burst,
		idleTTL:  idle,
		now:      time.Now,
	}
}

// Allow reports whether an event for key may happen now. It never blocks.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	now := krl.now()
	krl.sweepLocked(now)
	e, ok := krl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.limiters)
}

// sweepLocked drops idle keys at most once per idle period.
func (krl *KeyedRateLimiter) sweepLocked(now time.Time) {
	if now.Sub(krl.lastSweep) < krl.idleTTL {
		return
	}
	krl.lastSweep = now
	for k, e := range krl.limiters {
		if now.Sub(e.lastSeen) >= krl.idleTTL {
			delete(krl.limiters, k)
		}
	}
}
