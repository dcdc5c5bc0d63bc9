package logging

import (
	"context"
	"log/slog"

	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/observability"
	"github.com/aretw0/ledgerchat/pkg/ports"
)

// Reporter is the default ports.ErrorReporter: one structured log line per
// classified failure, plus a counter per error type.
type Reporter struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

var _ ports.ErrorReporter = (*Reporter)(nil)

// NewReporter creates a Reporter. metrics may be nil.
func NewReporter(logger *slog.Logger, metrics *observability.Metrics) *Reporter {
	if logger == nil {
		logger = NewNop()
	}
	return &Reporter{logger: logger, metrics: metrics}
}

// Report logs ec at error level. Input errors are expected user mistakes and
// go out at warn.
func (r *Reporter) Report(ctx context.Context, ec domain.ErrorContext) {
	r.metrics.Reported(string(ec.Type))

	attrs := []any{"error_type", string(ec.Type)}
	if ec.StepID != "" {
		attrs = append(attrs, "step_id", ec.StepID)
	}
	if len(ec.Details) > 0 {
		attrs = append(attrs, "details", ec.Details)
	}
	if err := ec.Validate(); err != nil {
		attrs = append(attrs, "error", err)
	}

	level := slog.LevelError
	if ec.Type == domain.ErrorTypeInput {
		level = slog.LevelWarn
	}
	r.logger.Log(ctx, level, ec.Message, attrs...)
}
