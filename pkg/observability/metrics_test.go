package observability_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesCount(t *testing.T, m *observability.Metrics, name string) int {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return len(f.GetMetric())
		}
	}
	return 0
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *observability.Metrics
	assert.NotPanics(t, func() {
		m.StateOp("get", time.Now(), nil)
		m.Step("offer", "advanced")
		m.Merge("full", true)
		m.Submit("offer", time.Second, true)
		m.Reported("flow")
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Counts(t *testing.T) {
	m := observability.NewMetrics()

	m.StateOp("get", time.Now(), nil)
	m.StateOp("get", time.Now(), errors.New("boom"))
	m.StateOp("set", time.Now(), nil)
	m.Reported("state")

	assert.Equal(t, 3, seriesCount(t, m, "ledgerchat_state_operations_total"))
	assert.Equal(t, 1, seriesCount(t, m, "ledgerchat_reported_errors_total"))
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.Step("offer", "complete")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ledgerchat_flow_steps_total{flow="offer",status="complete"} 1`)
}

func TestHooks_TimeSubmissions(t *testing.T) {
	m := observability.NewMetrics()
	hooks := observability.Hooks(nil, m)
	ctx := context.Background()
	start := time.Now()

	hooks.OnStepEnter(ctx, &domain.StepEvent{FlowID: "offer", Step: "amount"})
	hooks.OnSubmit(ctx, &domain.SubmitEvent{
		EventBase: domain.EventBase{Timestamp: start, Type: domain.EventSubmit, ChannelID: "c1"},
		FlowID:    "offer",
	})
	hooks.OnSubmitReturn(ctx, &domain.SubmitEvent{
		EventBase: domain.EventBase{Timestamp: start.Add(time.Second), Type: domain.EventSubmitReturn, ChannelID: "c1"},
		FlowID:    "offer",
	})

	assert.Equal(t, 1, seriesCount(t, m, "ledgerchat_upstream_submit_duration_seconds"))
}
