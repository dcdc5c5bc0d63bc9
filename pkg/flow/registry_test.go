package flow_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/ledgerchat/pkg/component"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_OfferSteps(t *testing.T) {
	r := flow.Default()

	steps, err := r.Steps(flow.TypeOffer)
	require.NoError(t, err)
	assert.Equal(t, []string{"amount", "handle", "confirm"}, steps)

	next, err := r.NextStep(flow.TypeOffer, "amount")
	require.NoError(t, err)
	assert.Equal(t, "handle", next)

	next, err = r.NextStep(flow.TypeOffer, "confirm")
	require.NoError(t, err)
	assert.Equal(t, flow.StepComplete, next)

	kind, err := r.StepComponent(flow.TypeOffer, "handle")
	require.NoError(t, err)
	assert.Equal(t, component.KindHandleInput, kind)
}

func TestRegistry_UnknownStepIsNotLastStep(t *testing.T) {
	r := flow.Default()

	_, err := r.NextStep(flow.TypeOffer, "bogus")
	require.Error(t, err)
	assert.ErrorIs(t, err, flow.ErrNotInFlow)

	var flowErr *domain.FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, "bogus", flowErr.StepID)
	assert.Equal(t, domain.ErrorTypeFlow, domain.Classify(err))
}

func TestRegistry_Errors(t *testing.T) {
	r := flow.Default()

	_, err := r.FlowConfig("lottery")
	assert.ErrorIs(t, err, flow.ErrInvalidFlowType)
	var flowErr *domain.FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, domain.StepUnknown, flowErr.StepID)

	_, err = r.StepComponent(flow.TypeOffer, "select")
	assert.ErrorIs(t, err, flow.ErrInvalidStep)

	assert.NoError(t, r.ValidateFlowStep(flow.TypeAcceptOffer, "select"))
	assert.ErrorIs(t, r.ValidateFlowStep(flow.TypeAcceptOffer, "amount"), flow.ErrNotInFlow)
	assert.ErrorIs(t, r.ValidateFlowStep("nope", "amount"), flow.ErrInvalidFlowType)
}

func TestRegistry_Builtins(t *testing.T) {
	r := flow.Default()
	assert.Len(t, r.Types(), 7)

	for _, typ := range []flow.Type{flow.TypeLedger, flow.TypeDashboard, flow.TypePending} {
		c, err := r.FlowConfig(typ)
		require.NoError(t, err)
		assert.True(t, c.Query, typ)
		assert.Equal(t, component.CapabilityDisplay, c.Steps[0].Component.Capability())
	}

	first, err := r.FirstStep(flow.TypeCancelOffer)
	require.NoError(t, err)
	assert.Equal(t, "select", first.Name)
}

func TestNewRegistry_RejectsInvalidConfigs(t *testing.T) {
	tests := []struct {
		name string
		cfg  flow.Config
	}{
		{"no type", flow.Config{Steps: []flow.Step{{Name: "a", Component: component.KindAmountInput}}}},
		{"no steps", flow.Config{Type: "x"}},
		{"reserved name", flow.Config{Type: "x", Steps: []flow.Step{{Name: flow.StepComplete, Component: component.KindAmountInput}}}},
		{"duplicate", flow.Config{Type: "x", Steps: []flow.Step{
			{Name: "a", Component: component.KindAmountInput},
			{Name: "a", Component: component.KindHandleInput},
		}}},
		{"no component", flow.Config{Type: "x", Steps: []flow.Step{{Name: "a"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := flow.NewRegistry(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_ImmutableAfterConstruction(t *testing.T) {
	steps := []flow.Step{{Name: "amount", Component: component.KindAmountInput}}
	r, err := flow.NewRegistry(flow.Config{Type: "tip", Steps: steps})
	require.NoError(t, err)

	steps[0].Name = "changed"
	got, err := r.Steps("tip")
	require.NoError(t, err)
	assert.Equal(t, []string{"amount"}, got)
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	r := flow.Default()
	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, err := r.NextStep(flow.TypeOffer, "handle")
			if err == nil && next != "confirm" {
				err = errors.New("unexpected next step " + next)
			}
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
