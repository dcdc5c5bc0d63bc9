package state_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/ledgerchat/pkg/adapters/memory"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenCache struct {
	err error
}

func (b *brokenCache) Get(context.Context, string) ([]byte, error) { return nil, b.err }
func (b *brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return b.err
}
func (b *brokenCache) Delete(context.Context, string) error   { return b.err }
func (b *brokenCache) List(context.Context) ([]string, error) { return nil, b.err }

func sampleSession() *domain.Session {
	s := domain.NewSession("263770000001")
	s.Profile = map[string]any{"data": map[string]any{"action": map[string]any{"details": map[string]any{}}}}
	s.CurrentAccount = map[string]any{"accountID": "acc-1"}
	s.JWTToken = "tok"
	s.FlowData = &domain.FlowData{ID: "offer", Step: "handle", Data: map[string]any{"amount": 100.0, "currency": "USD"}}
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	store := state.New(memory.NewStore())
	ctx := context.Background()
	in := sampleSession()

	v, err := store.Set(ctx, in.ChannelID, in, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Attempts)
	assert.Nil(t, v.Error)
	require.NotNil(t, in.Validation)

	out, err := store.Get(ctx, in.ChannelID)
	require.NoError(t, err)
	require.NotNil(t, out.Validation)
	assert.Equal(t, 1, out.Validation.Attempts)

	// Equal to the input once the envelope is set aside.
	out.Validation, in.Validation = nil, nil
	assert.Equal(t, in, out)
}

func TestStore_GetMissing(t *testing.T) {
	store := state.New(memory.NewStore())
	_, err := store.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	var sysErr *domain.SystemError
	assert.False(t, errors.As(err, &sysErr))
}

func TestStore_MonotonicAttempts(t *testing.T) {
	store := state.New(memory.NewStore())
	ctx := context.Background()
	sess := sampleSession()

	last := 0
	for i := 0; i < 5; i++ {
		v, err := store.Update(ctx, sess.ChannelID, sess, 0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v.Attempts, last)
		assert.Equal(t, last+1, v.Attempts)
		last = v.Attempts
	}

	// Other operations on the same key keep their own count.
	v, err := store.Set(ctx, sess.ChannelID, sess, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Attempts)

	// The stored document carries the telemetry of the write that produced it.
	out, err := store.Get(ctx, sess.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Validation.Attempts)
}

func TestStore_UpdateIsOverwrite(t *testing.T) {
	store := state.New(memory.NewStore())
	ctx := context.Background()
	sess := sampleSession()
	_, err := store.Set(ctx, sess.ChannelID, sess, 0)
	require.NoError(t, err)

	_, err = store.Update(ctx, sess.ChannelID, domain.NewSession(sess.ChannelID), 0)
	require.NoError(t, err)

	out, err := store.Get(ctx, sess.ChannelID)
	require.NoError(t, err)
	assert.Nil(t, out.FlowData)
	assert.Empty(t, out.JWTToken)
}

func TestStore_SystemErrors(t *testing.T) {
	boom := errors.New("connection refused")
	store := state.New(&brokenCache{err: boom})
	ctx := context.Background()

	tests := []struct {
		op   string
		code string
		call func() (domain.Validation, error)
	}{
		{state.OpSet, domain.CodeStateSet, func() (domain.Validation, error) {
			return store.Set(ctx, "k", sampleSession(), 0)
		}},
		{state.OpUpdate, domain.CodeStateUpdate, func() (domain.Validation, error) {
			return store.Update(ctx, "k", sampleSession(), 0)
		}},
		{state.OpDelete, domain.CodeStateDelete, func() (domain.Validation, error) {
			return store.Delete(ctx, "k")
		}},
		{state.OpGet, domain.CodeStateGet, func() (domain.Validation, error) {
			_, err := store.Get(ctx, "k")
			return domain.Validation{}, err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			v, err := tt.call()
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)

			var sysErr *domain.SystemError
			require.ErrorAs(t, err, &sysErr)
			assert.Equal(t, tt.code, sysErr.Code)
			assert.Equal(t, domain.ServiceState, sysErr.Service)
			assert.Equal(t, domain.ErrorTypeState, domain.Classify(err))
			assert.Contains(t, err.Error(), "connection refused")

			if tt.op != state.OpGet {
				require.NotNil(t, v.Error)
				assert.True(t, v.Failed())
				assert.Equal(t, 1, v.Attempts)
			}
		})
	}
}

func TestStore_DefaultTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cache := memory.NewStore(memory.WithClock(clock))
	store := state.New(cache, state.WithClock(clock))
	ctx := context.Background()

	_, err := store.Set(ctx, "c1", domain.NewSession("c1"), 0)
	require.NoError(t, err)

	now = now.Add(state.DefaultTTL - time.Second)
	_, err = store.Get(ctx, "c1")
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = store.Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestStore_PrefixAndList(t *testing.T) {
	cache := memory.NewStore()
	store := state.New(cache, state.WithPrefix("chat:"))
	ctx := context.Background()

	_, err := store.Set(ctx, "c1", domain.NewSession("c1"), time.Minute)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, "other", []byte(`{}`), 0))

	raw, err := cache.Get(ctx, "chat:c1")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"channel_id":"c1"`)

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, keys)

	_, err = store.Delete(ctx, "c1")
	require.NoError(t, err)
	_, err = store.Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

// attemptLog records the _validation.attempts of every value written.
type attemptLog struct {
	*memory.Store
	mu      sync.Mutex
	written []int
}

func (c *attemptLog) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var doc domain.Session
	if err := json.Unmarshal(value, &doc); err != nil {
		return err
	}
	c.mu.Lock()
	c.written = append(c.written, doc.Validation.Attempts)
	c.mu.Unlock()
	return c.Store.Set(ctx, key, value, ttl)
}

func TestStore_ConcurrentWritesReportStoredAttempts(t *testing.T) {
	cache := &attemptLog{Store: memory.NewStore()}
	store := state.New(cache)
	ctx := context.Background()

	const writers = 50
	returned := make([]int, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := store.Update(ctx, "c1", sampleSession(), 0)
			assert.NoError(t, err)
			returned[i] = v.Attempts
		}(i)
	}
	wg.Wait()

	want := make([]int, writers)
	for i := range want {
		want[i] = i + 1
	}
	assert.ElementsMatch(t, want, returned)
	assert.ElementsMatch(t, want, cache.written)
}

func TestStore_CommitCheckRefusesWrite(t *testing.T) {
	refused := errors.New("refused")
	cache := memory.NewStore()
	store := state.New(cache, state.WithCommitCheck(func(s *domain.Session) error {
		if s.FlowData != nil && s.FlowData.Step == "bogus" {
			return refused
		}
		s.Profile = map[string]any{"normalized": true}
		return nil
	}))
	ctx := context.Background()

	bad := sampleSession()
	bad.FlowData.Step = "bogus"
	_, err := store.Set(ctx, bad.ChannelID, bad, 0)
	assert.ErrorIs(t, err, refused)
	_, err = cache.Get(ctx, bad.ChannelID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	good := sampleSession()
	v, err := store.Set(ctx, good.ChannelID, good, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Attempts)
	assert.Equal(t, map[string]any{"normalized": true}, good.Profile)

	out, err := store.Get(ctx, good.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"normalized": true}, out.Profile)
}
