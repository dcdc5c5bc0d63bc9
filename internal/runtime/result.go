package runtime

import (
	"github.com/aretw0/ledgerchat/pkg/component"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/flow"
)

// Status is the outcome of one engine call.
type Status string

const (
	// StatusIdle means no flow is in progress and the input did not start one.
	StatusIdle Status = "idle"
	// StatusPrompt means the current step waits for input.
	StatusPrompt Status = "prompt"
	// StatusRetry means the input was rejected. The step is unchanged.
	StatusRetry Status = "retry"
	// StatusAdvanced means the input was accepted and the flow moved on.
	StatusAdvanced Status = "advanced"
	// StatusComplete means the flow finished and flow_data was cleared.
	StatusComplete Status = "complete"
	// StatusCancelled means the user declined and flow_data was cleared.
	StatusCancelled Status = "cancelled"
	// StatusFailed means a flow or system error ended the request.
	StatusFailed Status = "failed"
)

// StepResult is what the channel renders.
type StepResult struct {
	Status    Status            `json:"status"`
	ChannelID string            `json:"channel_id"`
	Flow      flow.Type         `json:"flow,omitempty"`
	Step      string            `json:"step,omitempty"`
	Prompt    component.Kind    `json:"prompt,omitempty"`
	Display   *component.View   `json:"display,omitempty"`
	Failure   *component.Result `json:"failure,omitempty"`
	Data      map[string]any    `json:"data,omitempty"`
	Action    *domain.Action    `json:"action,omitempty"`
	// Message is safe to show to the user.
	Message string `json:"message,omitempty"`
	// ErrorType classifies a failed result.
	ErrorType domain.ErrorType `json:"error_type,omitempty"`
	// Error is the programmatic failure message of flow errors.
	Error string `json:"error,omitempty"`
}

// OK reports whether the request did not fail.
func (r *StepResult) OK() bool {
	return r != nil && r.Status != StatusFailed
}
