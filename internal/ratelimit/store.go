// Package ratelimit caps how many API calls one caller can make per window.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window frees a slot.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Round(time.Second) / time.Second)
	return max(secs, 1)
}

// Store counts requests per key in a sliding window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// InMemory is a single process sliding window store.
type InMemory struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	clock   func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{windows: make(map[string][]time.Time), clock: time.Now}
}

// WithClock overrides time.Now; tests only.
func (s *InMemory) WithClock(clock func() time.Time) *InMemory {
	s.clock = clock
	return s
}

func (s *InMemory) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	stamps := expire(s.windows[key], now.Add(-window))
	res := Result{Limit: limit}
	if len(stamps) < limit {
		stamps = append(stamps, now)
		res.Allowed = true
	}
	res.Remaining = max(limit-len(stamps), 0)
	res.ResetAt = now.Add(window)
	if len(stamps) > 0 {
		res.ResetAt = stamps[0].Add(window)
	}
	s.windows[key] = stamps
	return res, nil
}

// expire drops timestamps at or before cutoff. Stamps are ascending.
func expire(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}

const redisKeyPrefix = "condo:ratelimit:"

// Redis keeps one sorted set per key, scored by request time in
// milliseconds, so every replica shares the same window.
type Redis struct {
	client *redis.Client
	clock  func() time.Time
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, clock: time.Now}
}

func (s *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := s.clock()
	k := redisKeyPrefix + key
	cutoff := now.Add(-window).UnixMilli()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(cutoff, 10))
	count := pipe.ZCard(ctx, k)
	oldest := pipe.ZRangeWithScores(ctx, k, 0, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit window: %w", err)
	}

	res := Result{Limit: limit, ResetAt: now.Add(window)}
	if first := oldest.Val(); len(first) > 0 {
		res.ResetAt = time.UnixMilli(int64(first[0].Score)).Add(window)
	}
	used := int(count.Val())
	if used >= limit {
		return res, nil
	}

	pipe = s.client.TxPipeline()
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})
	pipe.PExpire(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit record: %w", err)
	}
	res.Allowed = true
	res.Remaining = limit - used - 1
	return res, nil
}
