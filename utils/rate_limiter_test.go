package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediconnect/models"

	"github.com/stretchr/testify/assert"
)

type failingStore struct{}

func (failingStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 0, errors.New("redis unavailable")
}

func TestDeliveryRateLimiterEnforcesWindowCap(t *testing.T) {
	t.Parallel()

	store := NewMemoryWindowStore()
	now := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	limiter := NewDeliveryRateLimiter(store, map[models.ChannelType]ChannelLimit{
		models.ChannelSMS: {Count: 10, Window: time.Hour},
	})

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		assert.True(t, limiter.TryConsume(ctx, "user-1", models.ChannelSMS), "send %d should be within budget", i+1)
	}

	// The 11th SMS in the same window is rejected.
	assert.False(t, limiter.TryConsume(ctx, "user-1", models.ChannelSMS))

	// Other recipients and channels have independent budgets.
	assert.True(t, limiter.TryConsume(ctx, "user-2", models.ChannelSMS))
	assert.True(t, limiter.TryConsume(ctx, "user-1", models.ChannelEmail))

	// After the window rolls over the budget resets.
	now = now.Add(61 * time.Minute)
	assert.True(t, limiter.TryConsume(ctx, "user-1", models.ChannelSMS))
}

func TestDeliveryRateLimiterUnmeteredChannel(t *testing.T) {
	t.Parallel()

	limiter := NewDeliveryRateLimiter(NewMemoryWindowStore(), map[models.ChannelType]ChannelLimit{
		models.ChannelSMS: {Count: 1, Window: time.Hour},
	})

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		assert.True(t, limiter.TryConsume(ctx, "user-1", models.ChannelInApp))
	}
}

func TestDeliveryRateLimiterFailsOpen(t *testing.T) {
	t.Parallel()

	limiter := NewDeliveryRateLimiter(failingStore{}, map[models.ChannelType]ChannelLimit{
		models.ChannelSMS: {Count: 1, Window: time.Hour},
	})

	// A broken counter backend must not block delivery.
	assert.True(t, limiter.TryConsume(context.Background(), "user-1", models.ChannelSMS))
}

func TestDefaultChannelLimits(t *testing.T) {
	t.Parallel()

	limits := DefaultChannelLimits()
	assert.Equal(t, int64(10), limits[models.ChannelSMS].Count)
	assert.Equal(t, int64(10), limits[models.ChannelVoice].Count)
	assert.Equal(t, int64(50), limits[models.ChannelEmail].Count)
	assert.Equal(t, int64(100), limits[models.ChannelPush].Count)

	_, metered := limits[models.ChannelInApp]
	assert.False(t, metered, "in-app delivery is unmetered")
}
