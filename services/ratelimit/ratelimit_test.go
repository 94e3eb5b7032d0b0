package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewStore(nil, "test", 3, time.Minute)

	for i := 0; i < 3; i++ {
		allowed, err := store.Allow("127.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i+1)
	}
	allowed, err := store.Allow("127.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = store.Allow("10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed, "identifiers are counted apart")
}

func TestRedisStoreKey(t *testing.T) {
	store := NewRedisStore(nil, "login", 5, 15*time.Minute)
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, store.key("1.2.3.4", start), store.key("1.2.3.4", start.Add(14*time.Minute)))
	assert.NotEqual(t, store.key("1.2.3.4", start), store.key("1.2.3.4", start.Add(15*time.Minute)))
	assert.NotEqual(t, store.key("1.2.3.4", start), store.key("4.3.2.1", start))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	store := NewStore(client, "test-"+uuid.NewString(), 2, time.Minute)
	for i := 0; i < 2; i++ {
		allowed, err := store.Allow("127.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := store.Allow("127.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
}
