package cache

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesledger/internal/core/id"
)

func TestKey(t *testing.T) {
	pid := id.MustParse("01920000-0000-7000-8000-000000000001")
	assert.Equal(t, "salesledger:product:01920000-0000-7000-8000-000000000001", key(pid))
}

func TestNewProductCache_DefaultTTL(t *testing.T) {
	c := NewProductCache(nil, 0)
	assert.Equal(t, 5*time.Minute, c.ttl)
}

func TestRedisProductCache_NoopInputsSkipRedis(t *testing.T) {
	c := NewProductCache(nil, time.Minute)

	assert.NoError(t, c.Invalidate(context.Background()))
	assert.NoError(t, c.Set(context.Background(), nil))
}

func TestRedisProductCache_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	c := NewProductCache(client, time.Minute)
	t.Cleanup(func() { _ = c.Close() })

	_, ok, err := c.Get(context.Background(), id.New())
	require.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, c.Ping(context.Background()))
}
