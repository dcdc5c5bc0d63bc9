// Package validator checks the structural invariants of session documents.
// Every function is pure.
package validator

import (
	"fmt"

	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/schema"
)

// Critical lists the fields every valid session carries.
var Critical = schema.Schema{
	domain.KeyProfile:        schema.Map(),
	domain.KeyCurrentAccount: schema.Map(),
	domain.KeyJWTToken:       schema.String(),
}

// profilePath is the nested branch that must exist under profile.
var profilePath = []string{"data", "action", "details"}

// ValidateState checks that doc is a session mapping holding the critical
// fields, then checks the profile structure. A missing critical field is a
// failure, never filled in.
func ValidateState(doc any) error {
	m, ok := asMap(doc)
	if !ok {
		return &schema.AggregateError{Errors: []error{
			&schema.ValidationError{Key: "session", Reason: fmt.Sprintf("expected map, got %T", doc), Value: doc},
		}}
	}
	if err := schema.Validate(Critical, m); err != nil {
		return err
	}
	return ValidateProfileStructure(m[domain.KeyProfile])
}

// ValidateProfileStructure checks that profile.data, profile.data.action and
// profile.data.action.details are mappings. A nil profile passes; a profile of
// the wrong type does not.
func ValidateProfileStructure(profile any) error {
	if profile == nil {
		return nil
	}
	cur, ok := asMap(profile)
	if !ok {
		return single(domain.KeyProfile, fmt.Sprintf("expected map, got %T", profile), profile)
	}

	path := domain.KeyProfile
	for _, key := range profilePath {
		next := path + "." + key
		v, exists := cur[key]
		if !exists {
			return single(next, schema.ReasonRequired, nil)
		}
		m, ok := asMap(v)
		if !ok {
			return single(next, fmt.Sprintf("expected map, got %T", v), v)
		}
		cur, path = m, next
	}
	return nil
}

// EnsureProfileStructure returns profile with every missing branch of
// data.action.details added as an empty mapping. Existing keys are kept and
// the input is not modified. A branch that exists but is not a mapping is
// never overwritten: the profile is refused with a validation error instead.
// A nil profile yields the bare skeleton.
func EnsureProfileStructure(profile any) (map[string]any, error) {
	var root map[string]any
	if profile != nil {
		m, ok := profile.(map[string]any)
		if !ok {
			return nil, single(domain.KeyProfile, fmt.Sprintf("expected map, got %T", profile), profile)
		}
		root = m
	}
	out := shallowCopy(root)

	cur, path := out, domain.KeyProfile
	for _, key := range profilePath {
		path += "." + key
		var child map[string]any
		if v, exists := cur[key]; exists && v != nil {
			m, ok := v.(map[string]any)
			if !ok {
				return nil, single(path, fmt.Sprintf("expected map, got %T", v), v)
			}
			child = m
		}
		child = shallowCopy(child)
		cur[key] = child
		cur = child
	}
	return out, nil
}

// StepChecker reports whether step is registered for the flow.
type StepChecker func(flowID, step string) error

// CommitCheck returns the check a store runs before every write: flow_data
// must point at a registered step and the profile is normalized with
// EnsureProfileStructure. Failures are flow errors and nothing is written.
func CommitCheck(steps StepChecker) func(*domain.Session) error {
	return func(s *domain.Session) error {
		if s.FlowData != nil && steps != nil {
			if err := steps(s.FlowData.ID, s.FlowData.Step); err != nil {
				return domain.NewFlowError("session refused: flow state is invalid", s.FlowData.Step, err)
			}
		}
		if s.Profile != nil {
			profile, err := EnsureProfileStructure(s.Profile)
			if err != nil {
				return domain.NewFlowError("session refused: profile structure is invalid", domain.StepUnknown, err)
			}
			s.Profile = profile
		}
		return nil
	}
}

// ValidateFlowState runs ValidateState, then checks the extra top-level fields
// a flow requires.
func ValidateFlowState(doc any, required schema.Schema) error {
	if err := ValidateState(doc); err != nil {
		return err
	}
	m, _ := asMap(doc)
	return schema.Validate(required, m)
}

// Document renders a session as the mapping the validators expect.
func Document(s *domain.Session) (map[string]any, error) {
	if s == nil {
		return nil, fmt.Errorf("session is nil")
	}
	return s.ToMap()
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

func shallowCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func single(key, reason string, value any) error {
	return &schema.AggregateError{Errors: []error{&schema.ValidationError{Key: key, Reason: reason, Value: value}}}
}
