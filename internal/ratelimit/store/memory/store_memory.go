// Package memory limits requests per key with token buckets held in this
// process. Limits are per instance; use the Redis store when more than one
// replica serves traffic.
package memory

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"checkpoint/internal/ratelimit/models"
)

const (
	idleEvictAfter = 10 * time.Minute
	sweepEvery     = time.Minute
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Store keeps one limiter per key.
type Store struct {
	mu       sync.Mutex
	limiters  map[string]*entry
	lastSweep time.Time
	now       func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{limiters: make(map[string]*entry), now: time.Now}
}

// Allow spends one token for key. The bucket refills limit tokens per window
// and holds at most limit.
func (s *Store) Allow(_ context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	now := s.now()

	s.mu.Lock()
	e, ok := s.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit)}
		s.limiters[key] = e
	}
	e.lastSeen = now
	s.evictIdle(now)
	s.mu.Unlock()

	allowed := e.limiter.AllowN(now, 1)
	tokens := e.limiter.TokensAt(now)
	perToken := time.Duration(float64(window) / float64(limit))

	result := &models.Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		ResetAt:   now.Add(time.Duration((float64(limit) - tokens) * float64(perToken))),
	}
	if !allowed {
		wait := time.Duration((1 - tokens) * float64(perToken))
		result.RetryAfter = int(math.Max(1, math.Ceil(wait.Seconds())))
	}
	return result, nil
}

// Reset drops the bucket for key.
func (s *Store) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.limiters, key)
	return nil
}

// evictIdle must be called with s.mu held.
func (s *Store) evictIdle(now time.Time) {
	if now.Sub(s.lastSweep) < sweepEvery {
		return
	}
	s.lastSweep = now
	for k, e := range s.limiters {
		if now.Sub(e.lastSeen) > idleEvictAfter {
			delete(s.limiters, k)
		}
	}
}
