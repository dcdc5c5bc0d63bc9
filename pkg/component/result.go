package component

import "github.com/aretw0/ledgerchat/pkg/domain"

// Result is the outcome of Validate: success with a value, or a failure that
// names the offending field.
type Result struct {
	Valid     bool           `json:"valid"`
	Value     any            `json:"value,omitempty"`
	Message   string         `json:"message,omitempty"`
	Field     string         `json:"field,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Component string         `json:"component,omitempty"`

	input any
}

// Success wraps a validated value.
func Success(value any) Result {
	return Result{Valid: true, Value: value}
}

// Failure reports a validation failure on field.
func Failure(message, field string, details map[string]any) Result {
	return Result{Message: message, Field: field, Details: details}
}

// Err converts a failure into a *domain.ComponentError. It returns nil for
// successful results.
func (r Result) Err() *domain.ComponentError {
	if r.Valid {
		return nil
	}
	return &domain.ComponentError{
		Component: r.Component,
		Field:     r.Field,
		Value:     r.input,
		Message:   r.Message,
		Details:   r.Details,
	}
}
