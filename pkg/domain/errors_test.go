package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorContext_StepIDRule(t *testing.T) {
	_, err := NewErrorContext(ErrorTypeFlow, "invalid step", "", nil)
	assert.ErrorIs(t, err, ErrInvalidErrorContext)

	_, err = NewErrorContext(ErrorTypeState, "store down", "amount", nil)
	assert.ErrorIs(t, err, ErrInvalidErrorContext)

	ec, err := NewErrorContext(ErrorTypeFlow, "invalid step", "amount", nil)
	assert.NoError(t, err)
	assert.Equal(t, "amount", ec.StepID)

	_, err = NewErrorContext(ErrorTypeAPI, "timeout", "", map[string]any{"attempts": 3})
	assert.NoError(t, err)
}

func TestClassify(t *testing.T) {
	sentinel := errors.New("cause")
	tests := []struct {
		err  error
		want ErrorType
	}{
		{NewFlowError("invalid flow type", "amount", sentinel), ErrorTypeFlow},
		{fmt.Errorf("wrapped: %w", NewFlowError("x", "y", nil)), ErrorTypeFlow},
		{&SystemError{Code: CodeStateGet, Service: ServiceState}, ErrorTypeState},
		{&SystemError{Code: CodeAPIRequest, Service: ServiceAPI}, ErrorTypeAPI},
		{&SystemError{Code: CodeFlowTimeout, Service: ServiceEngine}, ErrorTypeSystem},
		{&ComponentError{Component: "amount_input", Field: "amount"}, ErrorTypeInput},
		{ErrSessionNotFound, ErrorTypeState},
		{sentinel, ErrorTypeSystem},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "Classify(%v)", tt.err)
	}
}

func TestUserMessage_NeverLeaksDetail(t *testing.T) {
	sysErr := &SystemError{Code: CodeStateGet, Service: ServiceState, Action: "get", Err: errors.New("dial tcp 10.0.0.1:6379")}
	msg := UserMessage(sysErr)
	assert.Equal(t, MessageSystemFailure, msg)
	assert.NotContains(t, msg, "10.0.0.1")

	assert.Equal(t, MessageFlowFailure, UserMessage(NewFlowError("missing member ID", "confirm", nil)))
}

func TestFlowError_Unwrap(t *testing.T) {
	sentinel := errors.New("not in flow")
	err := NewFlowError("step bogus is not part of flow offer", "bogus", sentinel)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, "step bogus is not part of flow offer", err.Error())
}
