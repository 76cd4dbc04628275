package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// SlidingWindow is a Redis sorted-set sliding window limiter. Each hit is a
// scored member; members older than the window are pruned on every check.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
}

// Take registers a hit for the key and decides whether it stays within max
// hits per window. A nil client or non-positive bounds disable limiting.
func (s SlidingWindow) Take(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	if s.Client == nil || max <= 0 || window <= 0 {
		return Decision{Allowed: true, Remaining: max, ResetAt: time.Now().Add(window)}, nil
	}

	now := time.Now()
	decision := Decision{ResetAt: now.Add(window)}
	cutoff := float64(now.Add(-window).UnixNano())
	member := fmt.Sprintf("%s:%s", key, uuid.NewString())

	redisKey := s.Prefix + key
	pipe := s.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return decision, err
	}

	hits := int(countCmd.Val())
	decision.Allowed = hits <= max
	decision.Remaining = max - hits
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	return decision, nil
}
