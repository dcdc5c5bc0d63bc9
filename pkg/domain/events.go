package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter    EventType = "step_enter"
	EventStepLeave    EventType = "step_leave"
	EventSubmit       EventType = "submit"
	EventSubmitReturn EventType = "submit_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ChannelID string    `json:"channel_id"`
}

// StepEvent represents entry to or exit from a flow step.
type StepEvent struct {
	EventBase
	FlowID    string `json:"flow_id"`
	Step      string `json:"step"`
	Component string `json:"component"`
}

// SubmitEvent represents a call to the upstream service.
type SubmitEvent struct {
	EventBase
	FlowID  string `json:"flow_id"`
	IsError bool   `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepEnter    func(context.Context, *StepEvent)
	OnStepLeave    func(context.Context, *StepEvent)
	OnSubmit       func(context.Context, *SubmitEvent)
	OnSubmitReturn func(context.Context, *SubmitEvent)
}
