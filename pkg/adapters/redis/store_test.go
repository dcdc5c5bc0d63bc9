package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/ledgerchat/pkg/adapters/redis"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	ports.RunCacheContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	var mu sync.Mutex
	now := time.Now()
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	store := redis.NewFromClient(client, redis.WithClock(clock))
	ctx := context.Background()
	key := "263770000001"

	require.NoError(t, store.Set(ctx, key, []byte(`{"channel_id":"263770000001"}`), 300*time.Second))
	assert.Equal(t, 300*time.Second, mr.TTL(redis.DefaultPrefix+key), "TTL should be passed to SET")

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, key)

	// Expire the key in redis and move the index clock past its score.
	mr.FastForward(301 * time.Second)
	mu.Lock()
	now = now.Add(301 * time.Second)
	mu.Unlock()

	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	keys, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "my-channel", []byte(`{}`), 0))

	assert.True(t, mr.Exists("custom:app:my-channel"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")
	assert.NoError(t, store.Ping(ctx))
}

func TestRedisStore_BackendFailure(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	mr.Close()

	_, err := store.Get(context.Background(), "c1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound, "connection failures are not 'not found'")
}
