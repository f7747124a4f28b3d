package offers

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())

	s := NewRedisStore(client, ttl)
	s.prefix = "test-offer:" + t.Name() + ":"
	return s
}

func TestRedisStore_SaveGetConsume(t *testing.T) {
	s := newRedisStore(t, time.Minute)
	ctx := context.Background()

	id, err := s.Save(ctx, sampleRoute(), 12000, "RUB")
	require.NoError(t, err)

	offer, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "r-1", offer.Route.ID)

	_, err = s.Consume(ctx, id)
	require.NoError(t, err)

	_, err = s.Consume(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Expired(t *testing.T) {
	s := newRedisStore(t, time.Second)
	ctx := context.Background()

	id, err := s.Save(ctx, sampleRoute(), 1, "RUB")
	require.NoError(t, err)

	time.Sleep(1200 * time.Millisecond)

	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrExpired)
	_, err = s.Get(ctx, "never-existed")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_ConcurrentConsume(t *testing.T) {
	s := newRedisStore(t, time.Minute)
	ctx := context.Background()

	id, err := s.Save(ctx, sampleRoute(), 1, "RUB")
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		success atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Consume(ctx, id); err == nil {
				success.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), success.Load())
}
