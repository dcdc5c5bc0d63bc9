package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a channel id has no stored session.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidErrorContext is returned when an ErrorContext violates the
// step_id rule (set if and only if the error type is flow).
var ErrInvalidErrorContext = errors.New("invalid error context")

// ErrorType classifies failures for the error reporter.
type ErrorType string

const (
	ErrorTypeFlow   ErrorType = "flow"
	ErrorTypeState  ErrorType = "state"
	ErrorTypeInput  ErrorType = "input"
	ErrorTypeAPI    ErrorType = "api"
	ErrorTypeSystem ErrorType = "system"
)

// FlowError is a business or sequencing failure (unknown flow, unknown step,
// malformed response envelope).
type FlowError struct {
	Message string
	StepID  string
	Err     error
}

// NewFlowError builds a FlowError wrapping a sentinel cause.
func NewFlowError(message, stepID string, cause error) *FlowError {
	return &FlowError{Message: message, StepID: stepID, Err: cause}
}

func (e *FlowError) Error() string {
	return e.Message
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// SystemError is an infrastructure failure. Code is stable and safe to match on.
type SystemError struct {
	Code    string
	Service string
	Action  string
	Err     error
}

func (e *SystemError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s %s failed", e.Code, e.Service, e.Action)
	}
	return fmt.Sprintf("%s: %s %s failed: %v", e.Code, e.Service, e.Action, e.Err)
}

func (e *SystemError) Unwrap() error {
	return e.Err
}

// ComponentError is a field-level validation failure. It is carried by
// component results and never raised through the engine.
type ComponentError struct {
	Component string
	Field     string
	Value     any
	Message   string
	Details   map[string]any
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("%s: field %q: %s", e.Component, e.Field, e.Message)
}

// ErrorContext is the structured payload handed to the error reporter.
type ErrorContext struct {
	Type    ErrorType      `json:"error_type"`
	Message string         `json:"message"`
	StepID  string         `json:"step_id,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// NewErrorContext builds an ErrorContext, enforcing that stepID is set for
// flow errors and only for them.
func NewErrorContext(t ErrorType, message, stepID string, details map[string]any) (ErrorContext, error) {
	ec := ErrorContext{Type: t, Message: message, StepID: stepID, Details: details}
	if err := ec.Validate(); err != nil {
		return ErrorContext{}, err
	}
	return ec, nil
}

// Validate checks the step_id rule.
func (c ErrorContext) Validate() error {
	switch {
	case c.Type == ErrorTypeFlow && c.StepID == "":
		return fmt.Errorf("%w: flow errors require a step id", ErrInvalidErrorContext)
	case c.Type != ErrorTypeFlow && c.StepID != "":
		return fmt.Errorf("%w: step id is only allowed on flow errors (got %s)", ErrInvalidErrorContext, c.Type)
	}
	return nil
}

// User-facing messages. They never carry internal detail.
const (
	MessageFlowFailure   = "Sorry, that request could not be completed. Please start again."
	MessageSystemFailure = "The service is temporarily unavailable. Please try again later."
)

// UserMessage maps a classified error to the generic text shown to users.
func UserMessage(err error) string {
	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		return MessageFlowFailure
	}
	return MessageSystemFailure
}

// Classify returns the reporter error type for err.
func Classify(err error) ErrorType {
	var (
		flowErr *FlowError
		sysErr  *SystemError
		compErr *ComponentError
	)
	switch {
	case errors.As(err, &flowErr):
		return ErrorTypeFlow
	case errors.As(err, &compErr):
		return ErrorTypeInput
	case errors.As(err, &sysErr):
		switch sysErr.Service {
		case ServiceState:
			return ErrorTypeState
		case ServiceAPI:
			return ErrorTypeAPI
		}
		return ErrorTypeSystem
	case errors.Is(err, ErrSessionNotFound):
		return ErrorTypeState
	}
	return ErrorTypeSystem
}

// Service names carried by SystemError.
const (
	ServiceState  = "state"
	ServiceAPI    = "api"
	ServiceEngine = "engine"
)
