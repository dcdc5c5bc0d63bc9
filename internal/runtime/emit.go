package runtime

import (
	"context"

	"github.com/aretw0/ledgerchat/pkg/component"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/flow"
)

func (e *Engine) emitStepEnter(ctx context.Context, channelID string, flowType flow.Type, step string, kind component.Kind) {
	if e.hooks.OnStepEnter == nil {
		return
	}
	e.hooks.OnStepEnter(ctx, &domain.StepEvent{
		EventBase: e.base(domain.EventStepEnter, channelID),
		FlowID:    string(flowType),
		Step:      step,
		Component: kind.String(),
	})
}

func (e *Engine) emitStepLeave(ctx context.Context, channelID string, flowType flow.Type, step string, kind component.Kind) {
	if e.hooks.OnStepLeave == nil {
		return
	}
	e.hooks.OnStepLeave(ctx, &domain.StepEvent{
		EventBase: e.base(domain.EventStepLeave, channelID),
		FlowID:    string(flowType),
		Step:      step,
		Component: kind.String(),
	})
}

func (e *Engine) emitSubmit(ctx context.Context, channelID string, flowType flow.Type) {
	if e.hooks.OnSubmit == nil {
		return
	}
	e.hooks.OnSubmit(ctx, &domain.SubmitEvent{
		EventBase: e.base(domain.EventSubmit, channelID),
		FlowID:    string(flowType),
	})
}

func (e *Engine) emitSubmitReturn(ctx context.Context, channelID string, flowType flow.Type, isError bool) {
	if e.hooks.OnSubmitReturn == nil {
		return
	}
	e.hooks.OnSubmitReturn(ctx, &domain.SubmitEvent{
		EventBase: e.base(domain.EventSubmitReturn, channelID),
		FlowID:    string(flowType),
		IsError:   isError,
	})
}

func (e *Engine) base(t domain.EventType, channelID string) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: t, ChannelID: channelID}
}
