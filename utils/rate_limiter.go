package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mediconnect/models"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// WindowStore is the counter backend for the delivery rate limiter. Increment
// must be a single atomic increment-and-read so concurrent senders cannot
// lose updates.
type WindowStore interface {
	// Increment adds one to the counter at key, starting a fresh window with
	// the given TTL when the key does not exist, and returns the new count.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisWindowStore backs the limiter with Redis INCR + EXPIRE.
type RedisWindowStore struct {
	client *redis.Client
}

func NewRedisWindowStore(client *redis.Client) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

func (s *RedisWindowStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return count, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count, nil
}

// MemoryWindowStore is a process-local fixed-window counter, used when Redis
// is not configured and in tests.
type MemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

func (s *MemoryWindowStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++
	return w.count, nil
}

// SetClock overrides the store's clock. Test hook.
func (s *MemoryWindowStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// ChannelLimit is a per-window delivery cap for one channel type.
type ChannelLimit struct {
	Count  int64
	Window time.Duration
}

// DefaultChannelLimits mirrors the provider-facing send caps.
func DefaultChannelLimits() map[models.ChannelType]ChannelLimit {
	return map[models.ChannelType]ChannelLimit{
		models.ChannelSMS:   {Count: 10, Window: time.Hour},
		models.ChannelVoice: {Count: 10, Window: time.Hour},
		models.ChannelEmail: {Count: 50, Window: time.Hour},
		models.ChannelPush:  {Count: 100, Window: time.Hour},
	}
}

// DeliveryRateLimiter gates per-user-per-channel delivery bursts. Channels
// without a configured limit are unmetered.
type DeliveryRateLimiter struct {
	store  WindowStore
	limits map[models.ChannelType]ChannelLimit
}

func NewDeliveryRateLimiter(store WindowStore, limits map[models.ChannelType]ChannelLimit) *DeliveryRateLimiter {
	if limits == nil {
		limits = DefaultChannelLimits()
	}
	return &DeliveryRateLimiter{
		store:  store,
		limits: limits,
	}
}

// TryConsume counts one delivery attempt for (recipient, channel) and reports
// whether it is within the window budget. Store errors fail open so a broken
// counter backend cannot block emergency traffic.
func (rl *DeliveryRateLimiter) TryConsume(ctx context.Context, recipientID string, channel models.ChannelType) bool {
	limit, ok := rl.limits[channel]
	if !ok {
		return true
	}

	key := fmt.Sprintf("notify_rate:%s:%s", recipientID, channel)
	count, err := rl.store.Increment(ctx, key, limit.Window)
	if err != nil {
		logrus.Warnf("Rate limit store unavailable for %s: %v", key, err)
		return true
	}

	return count <= limit.Count
}
