package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCacheContract runs a suite of tests to verify that a Cache implementation
// adheres to the defined interface contract.
func RunCacheContract(t *testing.T, cache Cache) {
	ctx := context.Background()
	key := "contract-test-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		err := cache.Set(ctx, key, []byte(`{"channel_id":"c1"}`), time.Minute)
		require.NoError(t, err, "Set should not return error")

		value, err := cache.Get(ctx, key)
		require.NoError(t, err, "Get should not return error")
		assert.JSONEq(t, `{"channel_id":"c1"}`, string(value))
	})

	t.Run("Set Overwrites", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, []byte(`{"v":1}`), time.Minute))
		require.NoError(t, cache.Set(ctx, key, []byte(`{"v":2}`), time.Minute))

		value, err := cache.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":2}`, string(value))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := cache.Get(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, key, []byte(`{}`), 0))

		err := cache.Delete(ctx, key)
		require.NoError(t, err, "Delete should not return error")

		_, err = cache.Get(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Get after Delete should return ErrSessionNotFound")

		assert.NoError(t, cache.Delete(ctx, key), "Deleting a missing key is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := key + "-1"
		id2 := key + "-2"
		_ = cache.Set(ctx, id1, []byte(`{}`), time.Minute)
		_ = cache.Set(ctx, id2, []byte(`{}`), 0)

		defer func() {
			_ = cache.Delete(ctx, id1)
			_ = cache.Delete(ctx, id2)
		}()

		keys, err := cache.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, id1)
		assert.Contains(t, keys, id2)
	})
}
