package flow

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aretw0/ledgerchat/pkg/component"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/schema"
)

// StepComplete is returned by NextStep after the last step of a flow.
const StepComplete = "complete"

// Sentinel causes carried by the *domain.FlowError values this package returns.
var (
	ErrInvalidFlowType = errors.New("invalid flow type")
	ErrInvalidStep     = errors.New("invalid step")
	ErrNotInFlow       = errors.New("step is not part of flow")
)

// Type identifies a flow.
type Type string

// Built-in flow types.
const (
	TypeOffer        Type = "offer"
	TypeAcceptOffer  Type = "accept_offer"
	TypeDeclineOffer Type = "decline_offer"
	TypeCancelOffer  Type = "cancel_offer"
	TypeLedger       Type = "ledger"
	TypeDashboard    Type = "dashboard"
	TypePending      Type = "pending"
)

// Step is one named stage bound to exactly one component.
type Step struct {
	Name      string         `json:"name" yaml:"name"`
	Component component.Kind `json:"component" yaml:"component"`
}

// Config describes one flow.
type Config struct {
	Type  Type   `json:"type" yaml:"type"`
	Steps []Step `json:"steps" yaml:"steps"`
	// Submit sends the collected data upstream when the flow completes.
	Submit bool `json:"submit,omitempty" yaml:"submit,omitempty"`
	// Query flows refresh the whole dashboard. Others only report an action.
	Query bool `json:"query,omitempty" yaml:"query,omitempty"`
	// TTL overrides the session TTL while the flow is in progress.
	TTL time.Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	// Requires lists top-level session fields that must be present to start.
	Requires schema.Schema `json:"requires,omitempty" yaml:"requires,omitempty"`
}

// StepNames returns the ordered step names.
func (c Config) StepNames() []string {
	names := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		names[i] = s.Name
	}
	return names
}

func (c Config) validate() error {
	if c.Type == "" {
		return errors.New("flow type is empty")
	}
	if len(c.Steps) == 0 {
		return fmt.Errorf("flow %s has no steps", c.Type)
	}
	seen := make(map[string]bool, len(c.Steps))
	for _, s := range c.Steps {
		switch {
		case s.Name == "":
			return fmt.Errorf("flow %s has a step without a name", c.Type)
		case s.Name == StepComplete:
			return fmt.Errorf("flow %s: step name %q is reserved", c.Type, StepComplete)
		case seen[s.Name]:
			return fmt.Errorf("flow %s: duplicate step %q", c.Type, s.Name)
		case s.Component.Capability() == component.CapabilityNone:
			return fmt.Errorf("flow %s: step %q has no component", c.Type, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Registry is the immutable flow table.
type Registry struct {
	flows map[Type]Config
	index map[Type]map[string]int
}

// NewRegistry builds a registry from configs. Later configs replace earlier
// ones of the same type.
func NewRegistry(configs ...Config) (*Registry, error) {
	r := &Registry{
		flows: make(map[Type]Config, len(configs)),
		index: make(map[Type]map[string]int, len(configs)),
	}
	for _, c := range configs {
		if err := c.validate(); err != nil {
			return nil, err
		}
		steps := make([]Step, len(c.Steps))
		copy(steps, c.Steps)
		c.Steps = steps

		idx := make(map[string]int, len(steps))
		for i, s := range steps {
			idx[s.Name] = i
		}
		r.flows[c.Type] = c
		r.index[c.Type] = idx
	}
	return r, nil
}

// Builtin returns the configs of the built-in flows.
func Builtin() []Config {
	selectConfirm := func(t Type) Config {
		return Config{
			Type: t,
			Steps: []Step{
				{Name: "select", Component: component.KindOfferSelectInput},
				{Name: "confirm", Component: component.KindConfirmInput},
			},
			Submit: true,
		}
	}
	view := func(t Type, k component.Kind) Config {
		return Config{Type: t, Steps: []Step{{Name: "view", Component: k}}, Submit: true, Query: true}
	}
	return []Config{
		{
			Type: TypeOffer,
			Steps: []Step{
				{Name: "amount", Component: component.KindAmountInput},
				{Name: "handle", Component: component.KindHandleInput},
				{Name: "confirm", Component: component.KindConfirmInput},
			},
			Submit: true,
		},
		selectConfirm(TypeAcceptOffer),
		selectConfirm(TypeDeclineOffer),
		selectConfirm(TypeCancelOffer),
		view(TypeLedger, component.KindLedgerDisplay),
		view(TypeDashboard, component.KindDashboardDisplay),
		view(TypePending, component.KindOfferListDisplay),
	}
}

// Default returns a registry holding the built-in flows.
func Default() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		panic(fmt.Sprintf("flow: built-in flows are invalid: %v", err))
	}
	return r
}

// With returns a new registry with configs added to (or replacing) r's flows.
func (r *Registry) With(configs ...Config) (*Registry, error) {
	all := make([]Config, 0, len(r.flows)+len(configs))
	for _, t := range r.Types() {
		all = append(all, r.flows[t])
	}
	return NewRegistry(append(all, configs...)...)
}

// Types returns the registered flow types, sorted.
func (r *Registry) Types() []Type {
	types := make([]Type, 0, len(r.flows))
	for t := range r.flows {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// FlowConfig returns the config of flow.
func (r *Registry) FlowConfig(flow Type) (Config, error) {
	c, ok := r.flows[flow]
	if !ok {
		return Config{}, flowError(flow, domain.StepUnknown, ErrInvalidFlowType)
	}
	return c, nil
}

// Steps returns the ordered step names of flow.
func (r *Registry) Steps(flow Type) ([]string, error) {
	c, err := r.FlowConfig(flow)
	if err != nil {
		return nil, err
	}
	return c.StepNames(), nil
}

// FirstStep returns the first step of flow.
func (r *Registry) FirstStep(flow Type) (Step, error) {
	c, err := r.FlowConfig(flow)
	if err != nil {
		return Step{}, err
	}
	return c.Steps[0], nil
}

// StepComponent returns the component kind bound to step.
func (r *Registry) StepComponent(flow Type, step string) (component.Kind, error) {
	c, err := r.FlowConfig(flow)
	if err != nil {
		return component.KindUnknown, err
	}
	i, ok := r.index[flow][step]
	if !ok {
		return component.KindUnknown, flowError(flow, step, ErrInvalidStep)
	}
	return c.Steps[i].Component, nil
}

// ValidateFlowStep fails unless step belongs to flow.
func (r *Registry) ValidateFlowStep(flow Type, step string) error {
	if _, err := r.FlowConfig(flow); err != nil {
		return err
	}
	if _, ok := r.index[flow][step]; !ok {
		return flowError(flow, step, ErrNotInFlow)
	}
	return nil
}

// NextStep returns the step after current, or StepComplete when current is
// the last one. A step outside the flow fails with ErrNotInFlow.
func (r *Registry) NextStep(flow Type, current string) (string, error) {
	c, err := r.FlowConfig(flow)
	if err != nil {
		return "", err
	}
	i, ok := r.index[flow][current]
	if !ok {
		return "", flowError(flow, current, ErrNotInFlow)
	}
	if i == len(c.Steps)-1 {
		return StepComplete, nil
	}
	return c.Steps[i+1].Name, nil
}

func flowError(flow Type, step string, cause error) *domain.FlowError {
	if step == "" {
		step = domain.StepUnknown
	}
	return domain.NewFlowError(fmt.Sprintf("%s: flow %q step %q", cause, flow, step), step, cause)
}
