package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	namespace := "hsdash:test:" + time.Now().Format("150405.000000") + ":"
	r := NewRedis[map[string]float64](client, namespace)

	require.NoError(t, r.Set(ctx, "t1:2025-10", map[string]float64{"e1": 100}, time.Minute))
	require.NoError(t, r.Set(ctx, "t1:2025-09", map[string]float64{"e1": 50}, time.Minute))

	got, ok, err := r.Get(ctx, "t1:2025-10")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 100.0, got["e1"])

	require.NoError(t, r.DeletePrefix(ctx, "t1:"))
	_, ok, err = r.Get(ctx, "t1:2025-09")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisNamespaceSeparator(t *testing.T) {
	assert.Equal(t, "hsdash:ranking:t1:2025-10", NewRedis[int](nil, "hsdash:ranking").key("t1:2025-10"))
	assert.Equal(t, "hsdash:ranking:t1:2025-10", NewRedis[int](nil, "hsdash:ranking:").key("t1:2025-10"))
	assert.Equal(t, "t1:2025-10", NewRedis[int](nil, "").key("t1:2025-10"))
}
