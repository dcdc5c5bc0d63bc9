package component

import "github.com/aretw0/ledgerchat/pkg/domain"

// Component is implemented by every step component.
type Component interface {
	Kind() Kind
	Capability() Capability
	// Validate checks value. For inputs a nil value is the activation signal.
	// For displays it is the page selector.
	Validate(value any) Result
	// ToVerifiedData returns the canonical flow_data.data entries for a value
	// accepted by Validate, or nil if the value is not valid.
	ToVerifiedData(value any) map[string]any
}

// Input consumes user-provided values.
type Input interface {
	Component
	State() InputState
	AwaitingInput() bool
	// Verified returns the last value accepted by Validate.
	Verified() any
}

// Display formats stored state. It never mutates it.
type Display interface {
	Component
	Bind(StateReader)
}

// StateReader gives displays read access to the session being handled.
type StateReader interface {
	Snapshot() *domain.Session
}

// SessionReader adapts a session to StateReader.
type SessionReader struct {
	Session *domain.Session
}

// Snapshot returns a copy of the session.
func (r SessionReader) Snapshot() *domain.Session {
	return r.Session.Clone()
}

// InputState is the input state machine:
// NotStarted -> AwaitingInput -> Validating -> Valid | Invalid, Invalid -> AwaitingInput.
type InputState int

const (
	StateNotStarted InputState = iota
	StateAwaitingInput
	StateValidating
	StateValid
	StateInvalid
)

func (s InputState) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateValidating:
		return "validating"
	case StateValid:
		return "valid"
	case StateInvalid:
		return "invalid"
	}
	return "not_started"
}

// input carries the state machine shared by every Input.
type input struct {
	kind     Kind
	state    InputState
	awaiting bool
	verified any
}

func (in *input) Kind() Kind             { return in.kind }
func (in *input) Capability() Capability { return CapabilityInput }
func (in *input) State() InputState      { return in.state }
func (in *input) AwaitingInput() bool    { return in.awaiting }
func (in *input) Verified() any          { return in.verified }

// run drives the state machine around check.
func (in *input) run(value any, check func(any) Result) Result {
	if value == nil {
		in.awaiting = true
		if in.state != StateValid {
			in.state = StateAwaitingInput
		}
		return Result{Valid: true, Component: in.kind.String()}
	}

	in.state = StateValidating
	res := check(value)
	res.Component = in.kind.String()
	res.input = value
	if !res.Valid {
		in.state = StateInvalid
		in.awaiting = true
		return res
	}
	in.state = StateValid
	in.awaiting = false
	in.verified = res.Value
	return res
}
