package ledgerchat

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/ledgerchat/internal/runtime"
	"github.com/aretw0/ledgerchat/pkg/adapters/memory"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/flow"
	"github.com/aretw0/ledgerchat/pkg/merger"
	"github.com/aretw0/ledgerchat/pkg/observability"
	"github.com/aretw0/ledgerchat/pkg/ports"
	"github.com/aretw0/ledgerchat/pkg/session"
	"github.com/aretw0/ledgerchat/pkg/state"
	"github.com/aretw0/ledgerchat/pkg/validator"
)

// Re-exported result types, so hosts need not import internal packages.
type (
	StepResult = runtime.StepResult
	Status     = runtime.Status
)

const (
	StatusIdle      = runtime.StatusIdle
	StatusPrompt    = runtime.StatusPrompt
	StatusRetry     = runtime.StatusRetry
	StatusAdvanced  = runtime.StatusAdvanced
	StatusComplete  = runtime.StatusComplete
	StatusCancelled = runtime.StatusCancelled
	StatusFailed    = runtime.StatusFailed
)

// Engine is the high-level entry point of the library. It wires the state
// store, session manager, response merger and flow runtime over one cache.
type Engine struct {
	runtime  *runtime.Engine
	store    *state.Store
	sessions *session.Manager
	merger   *merger.Merger

	cache        ports.Cache
	registry     *flow.Registry
	upstream     ports.Upstream
	reporter     ports.ErrorReporter
	locker       ports.DistributedLocker
	serialize    bool
	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	metrics      *observability.Metrics
	flowTimeout  time.Duration
	sessionTTL   time.Duration
	keyPrefix    string
	maxInputSize int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithCache sets the storage backend. Defaults to an in-memory cache.
func WithCache(c ports.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithRegistry replaces the built-in flows.
func WithRegistry(r *flow.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithUpstream sets the ledger service completed flows are submitted to.
func WithUpstream(u ports.Upstream) Option {
	return func(e *Engine) { e.upstream = u }
}

// WithReporter sets where classified errors are sent.
func WithReporter(r ports.ErrorReporter) Option {
	return func(e *Engine) { e.reporter = r }
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics records store, step, merge and submission metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLocker serializes each channel's messages across processes.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithSerialize serializes each channel's messages within this process.
// Without it concurrent messages race and the last write wins.
func WithSerialize() Option {
	return func(e *Engine) { e.serialize = true }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// WithFlowTimeout bounds the handling of one message.
func WithFlowTimeout(d time.Duration) Option {
	return func(e *Engine) { e.flowTimeout = d }
}

// WithSessionTTL sets how long an idle session is kept.
func WithSessionTTL(d time.Duration) Option {
	return func(e *Engine) { e.sessionTTL = d }
}

// WithKeyPrefix namespaces session keys inside the cache.
func WithKeyPrefix(prefix string) Option {
	return func(e *Engine) { e.keyPrefix = prefix }
}

// WithMaxInputSize limits the size of one message in bytes.
func WithMaxInputSize(n int) Option {
	return func(e *Engine) { e.maxInputSize = n }
}

// New initializes an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.cache == nil {
		e.cache = memory.NewStore()
	}
	if e.registry == nil {
		e.registry = flow.Default()
	}
	if e.reporter == nil {
		e.reporter = ports.ReporterFunc(func(ctx context.Context, ec domain.ErrorContext) {
			e.logger.ErrorContext(ctx, ec.Message, "error_type", ec.Type, "step_id", ec.StepID)
			e.metrics.Reported(string(ec.Type))
		})
	}

	e.store = state.New(e.cache,
		state.WithPrefix(e.keyPrefix),
		state.WithDefaultTTL(e.sessionTTL),
		state.WithLogger(e.logger),
		state.WithMetrics(e.metrics),
		state.WithCommitCheck(validator.CommitCheck(func(id, step string) error {
			return e.registry.ValidateFlowStep(flow.Type(id), step)
		})),
	)

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.serialize {
		sessionOpts = append(sessionOpts, session.WithSerialize())
	}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, sessionOpts...)

	e.merger = merger.New(e.store, e.reporter,
		merger.WithLogger(e.logger),
		merger.WithMetrics(e.metrics),
		merger.WithTTL(e.sessionTTL),
	)

	runtimeOpts := []runtime.EngineOption{
		runtime.WithReporter(e.reporter),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger),
		runtime.WithMetrics(e.metrics),
		runtime.WithFlowTimeout(e.flowTimeout),
		runtime.WithMaxInputSize(e.maxInputSize),
	}
	if e.upstream != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithUpstream(e.upstream))
	}
	e.runtime = runtime.NewEngine(e.registry, e.sessions, e.merger, runtimeOpts...)

	return e
}

// Load returns the channel's session, creating it on first contact.
func (e *Engine) Load(ctx context.Context, channelID string) (*domain.Session, error) {
	return e.runtime.Load(ctx, channelID)
}

// Session returns the channel's stored session without creating one.
// An unknown channel fails with domain.ErrSessionNotFound.
func (e *Engine) Session(ctx context.Context, channelID string) (*domain.Session, error) {
	return e.store.Get(ctx, channelID)
}

// StartFlow puts the channel at the first step of flowType.
func (e *Engine) StartFlow(ctx context.Context, channelID string, flowType flow.Type) (*StepResult, error) {
	return e.runtime.StartFlow(ctx, channelID, flowType)
}

// Handle feeds one user message to the channel.
func (e *Engine) Handle(ctx context.Context, channelID, input string) (*StepResult, error) {
	return e.runtime.Handle(ctx, channelID, input)
}

// ClearFlowState abandons the channel's flow in progress.
func (e *Engine) ClearFlowState(ctx context.Context, channelID string) (*StepResult, error) {
	return e.runtime.ClearFlowState(ctx, channelID)
}

// ClearAllState resets the channel's session.
func (e *Engine) ClearAllState(ctx context.Context, channelID string) (*StepResult, error) {
	return e.runtime.ClearAllState(ctx, channelID)
}

// Merge folds a full upstream response into the channel's session.
func (e *Engine) Merge(ctx context.Context, channelID string, resp any) (bool, string) {
	var (
		ok  bool
		msg string
	)
	err := e.sessions.WithLock(ctx, channelID, func(ctx context.Context) error {
		ok, msg = e.merger.Merge(ctx, channelID, resp)
		return nil
	})
	if err != nil {
		e.reportLockFailure(ctx, channelID, err)
		return false, domain.UserMessage(err)
	}
	return ok, msg
}

// reportLockFailure reports a merge that never ran because the channel lock
// could not be taken.
func (e *Engine) reportLockFailure(ctx context.Context, channelID string, err error) {
	errType := domain.Classify(err)
	step := ""
	if errType == domain.ErrorTypeFlow {
		step = merger.StepMerge
	}
	ec, ecErr := domain.NewErrorContext(errType, err.Error(), step, map[string]any{"channel_id": channelID, "merge": "lock"})
	if ecErr != nil {
		ec = domain.ErrorContext{Type: domain.ErrorTypeSystem, Message: err.Error()}
	}
	e.reporter.Report(context.WithoutCancel(ctx), ec)
}

// Registry returns the flows the engine serves.
func (e *Engine) Registry() *flow.Registry {
	return e.registry
}

// Store returns the state store.
func (e *Engine) Store() *state.Store {
	return e.store
}

// Sessions returns the session manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}
