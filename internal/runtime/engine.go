package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/flow"
	"github.com/aretw0/ledgerchat/pkg/merger"
	"github.com/aretw0/ledgerchat/pkg/observability"
	"github.com/aretw0/ledgerchat/pkg/ports"
	"github.com/aretw0/ledgerchat/pkg/session"
)

// DefaultFlowTimeout bounds the handling of one message, store and upstream
// calls included.
const DefaultFlowTimeout = 30 * time.Second

// Engine drives channel sessions through their flows.
type Engine struct {
	registry *flow.Registry
	sessions *session.Manager
	merger   *merger.Merger
	upstream ports.Upstream
	reporter ports.ErrorReporter

	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	metrics      *observability.Metrics
	flowTimeout  time.Duration
	maxInputSize int
	now          func() time.Time
	newRequestID func() string
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithUpstream sets the service flows are submitted to. Without one, flows
// complete locally.
func WithUpstream(u ports.Upstream) EngineOption {
	return func(e *Engine) { e.upstream = u }
}

// WithReporter sets the error reporter.
func WithReporter(r ports.ErrorReporter) EngineOption {
	return func(e *Engine) { e.reporter = r }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) { e.hooks = hooks }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records step outcomes.
func WithMetrics(m *observability.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithFlowTimeout overrides DefaultFlowTimeout.
func WithFlowTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.flowTimeout = d
		}
	}
}

// WithMaxInputSize overrides DefaultMaxInputSize.
func WithMaxInputSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxInputSize = n
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRequestIDs overrides how flow request ids are generated.
func WithRequestIDs(gen func() string) EngineOption {
	return func(e *Engine) { e.newRequestID = gen }
}

// NewEngine creates an engine.
func NewEngine(registry *flow.Registry, sessions *session.Manager, m *merger.Merger, opts ...EngineOption) *Engine {
	e := &Engine{
		registry:     registry,
		sessions:     sessions,
		merger:       m,
		logger:       slog.New(slog.DiscardHandler),
		flowTimeout:  DefaultFlowTimeout,
		maxInputSize: DefaultMaxInputSize,
		now:          time.Now,
		newRequestID: newRequestID,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.reporter == nil {
		e.reporter = ports.ReporterFunc(func(ctx context.Context, ec domain.ErrorContext) {
			e.logger.ErrorContext(ctx, ec.Message, "error_type", ec.Type, "step_id", ec.StepID)
		})
	}
	return e
}

// Registry returns the flow registry.
func (e *Engine) Registry() *flow.Registry {
	return e.registry
}

// Sessions returns the session manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}
