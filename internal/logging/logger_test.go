package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/ledgerchat/internal/logging"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logging.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logging.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logging.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logging.ParseLevel(""))
}

func TestNewJSON_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logging.NewJSON(&buf, slog.LevelInfo).Info("boom", "error", errors.New("bad"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "bad", line["err"])
	assert.NotContains(t, line, "error")
}

func TestReporter_Report(t *testing.T) {
	var buf bytes.Buffer
	r := logging.NewReporter(logging.NewJSON(&buf, slog.LevelDebug), nil)

	ec, err := domain.NewErrorContext(domain.ErrorTypeFlow, "invalid step", "handle", map[string]any{"flow": "offer"})
	require.NoError(t, err)
	r.Report(context.Background(), ec)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "invalid step", line["msg"])
	assert.Equal(t, "flow", line["error_type"])
	assert.Equal(t, "handle", line["step_id"])
}

func TestReporter_InputIsWarn(t *testing.T) {
	var buf bytes.Buffer
	r := logging.NewReporter(logging.NewJSON(&buf, slog.LevelDebug), nil)
	r.Report(context.Background(), domain.ErrorContext{Type: domain.ErrorTypeInput, Message: "bad amount"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.NotContains(t, line, "step_id")
}
