package flow_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/ledgerchat/pkg/component"
	"github.com/aretw0/ledgerchat/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tipFlows = `
flows:
  - type: tip
    submit: true
    ttl: 10m
    requires:
      jwt_token: string
    steps:
      - name: amount
        component: AmountInput
      - name: handle
        component: handleinput
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tipFlows), 0o644))

	r, err := flow.LoadFile(flow.Default(), path)
	require.NoError(t, err)

	c, err := r.FlowConfig("tip")
	require.NoError(t, err)
	assert.True(t, c.Submit)
	assert.Equal(t, 10*time.Minute, c.TTL)
	assert.Equal(t, []string{"jwt_token"}, c.Requires.Keys())
	assert.Equal(t, component.KindHandleInput, c.Steps[1].Component)

	// Built-ins are still there.
	_, err = r.FlowConfig(flow.TypeOffer)
	assert.NoError(t, err)
}

func TestParse_RejectsUnknownComponent(t *testing.T) {
	_, err := flow.Parse([]byte(`
flows:
  - type: tip
    steps:
      - name: when
        component: DateInput
`))
	assert.ErrorContains(t, err, "unknown component")
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := flow.Parse([]byte(`
flows:
  - type: tip
    colour: blue
    steps:
      - name: amount
        component: AmountInput
`))
	assert.Error(t, err)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := flow.LoadFile(flow.Default(), filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}
