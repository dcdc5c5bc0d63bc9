package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/ledgerchat/pkg/adapters/memory"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunCacheContract(t, store)
}

func TestMemoryStore_TTL(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	store := memory.NewStore(memory.WithClock(clock))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("a"), 300*time.Second))
	require.NoError(t, store.Set(ctx, "forever", []byte("b"), 0))

	advance(299 * time.Second)
	_, err := store.Get(ctx, "short")
	assert.NoError(t, err, "entry should still be live before its ttl")

	advance(time.Second)
	_, err = store.Get(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "entry should expire at its ttl")

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"forever"}, keys)
}

func TestMemoryStore_CopyOnRead(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", []byte("abc"), 0))

	v, err := store.Get(ctx, "k")
	require.NoError(t, err)
	v[0] = 'z'

	again, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}
