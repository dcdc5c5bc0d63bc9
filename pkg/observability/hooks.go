package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/ledgerchat/pkg/domain"
)

// Hooks returns lifecycle hooks that log every event and time upstream
// submissions. Either argument may be nil.
func Hooks(logger *slog.Logger, m *Metrics) domain.LifecycleHooks {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var (
		mu      sync.Mutex
		pending = map[string]time.Time{}
	)

	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step_enter",
				"channel_id", e.ChannelID, "flow", e.FlowID, "step", e.Step, "component", e.Component)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step_leave",
				"channel_id", e.ChannelID, "flow", e.FlowID, "step", e.Step)
		},
		OnSubmit: func(ctx context.Context, e *domain.SubmitEvent) {
			logger.InfoContext(ctx, "submit", "channel_id", e.ChannelID, "flow", e.FlowID)
			mu.Lock()
			pending[e.ChannelID] = e.Timestamp
			mu.Unlock()
		},
		OnSubmitReturn: func(ctx context.Context, e *domain.SubmitEvent) {
			logger.InfoContext(ctx, "submit_return",
				"channel_id", e.ChannelID, "flow", e.FlowID, "is_error", e.IsError)

			mu.Lock()
			started, ok := pending[e.ChannelID]
			delete(pending, e.ChannelID)
			mu.Unlock()
			if !ok {
				return
			}
			m.Submit(e.FlowID, e.Timestamp.Sub(started), !e.IsError)
		},
	}
}
