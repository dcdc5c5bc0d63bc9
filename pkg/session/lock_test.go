package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/ledgerchat/pkg/adapters/memory"
	"github.com/aretw0/ledgerchat/pkg/state"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(state.New(memory.NewStore()), WithSerialize())
	ctx := context.Background()
	count := 2000

	for i := 0; i < count; i++ {
		channel := fmt.Sprintf("channel-%d", i)
		_ = mgr.WithLock(ctx, channel, func(ctx context.Context) error {
			_, _, err := mgr.Load(ctx, channel)
			return err
		})
		_ = mgr.WithLock(ctx, channel, func(ctx context.Context) error {
			return mgr.Delete(ctx, channel)
		})
	}

	if n := len(mgr.locks); n != 0 {
		t.Errorf("lock entries leaked: %d remaining after %d channels", n, count)
	}
}
