// Package redis counts requests in fixed windows shared by every instance.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"checkpoint/internal/ratelimit/models"
)

// Store implements a fixed-window counter with INCR and a first-hit expiry.
type Store struct {
	client redis.Cmdable
	now    func() time.Time
}

// New creates a store on client.
func New(client redis.Cmdable) *Store {
	return &Store{client: client, now: time.Now}
}

// Allow records one hit for key and reports whether it fits within limit
// hits per window.
func (s *Store) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.ExpireNX(ctx, key, window)
		pttl = p.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit pipeline: %w", err)
	}

	now := s.now()
	ttl := pttl.Val()
	if ttl <= 0 {
		ttl = window
	}
	return models.NewResult(incr.Val(), limit, now.Add(ttl), now), nil
}

// Reset clears the counter for key.
func (s *Store) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("reset rate limit: %w", err)
	}
	return nil
}
