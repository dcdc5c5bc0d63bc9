// Package merger folds upstream responses into session state.
//
// A response envelope looks like
//
//	{"data": {"dashboard": {"member": {"memberID": ...}, ...}, "action": {...}}}
//
// Merge checks every section before touching the store and then writes the
// dashboard and the action in one State Store update, so either both change or
// neither does.
package merger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/observability"
	"github.com/aretw0/ledgerchat/pkg/ports"
	"github.com/aretw0/ledgerchat/pkg/validator"
)

// Failure messages returned to callers.
const (
	MsgInvalidResponse  = "invalid response format"
	MsgMissingDashboard = "missing dashboard data"
	MsgMissingMemberID  = "missing member ID"
	MsgMissingAction    = "missing action data"
)

// Sentinel causes of the *domain.FlowError values Merge reports.
var (
	ErrInvalidResponse  = errors.New(MsgInvalidResponse)
	ErrMissingDashboard = errors.New(MsgMissingDashboard)
	ErrMissingMemberID  = errors.New(MsgMissingMemberID)
	ErrMissingAction    = errors.New(MsgMissingAction)
)

// StepMerge is the step id reported for envelope failures.
const StepMerge = "merge"

// Store is the subset of the state store the merger needs.
type Store interface {
	Get(ctx context.Context, key string) (*domain.Session, error)
	Update(ctx context.Context, key string, sess *domain.Session, ttl time.Duration) (domain.Validation, error)
}

// Merger validates response envelopes and commits them.
type Merger struct {
	store    Store
	reporter ports.ErrorReporter
	logger   *slog.Logger
	metrics  *observability.Metrics
	ttl      time.Duration
}

// Option configures the Merger.
type Option func(*Merger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Merger) { m.logger = logger }
}

// WithMetrics records merge outcomes.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Merger) { m.metrics = metrics }
}

// WithTTL sets the ttl of the committing update. Zero selects the store default.
func WithTTL(ttl time.Duration) Option {
	return func(m *Merger) { m.ttl = ttl }
}

// New creates a Merger. reporter receives every classified failure.
func New(store Store, reporter ports.ErrorReporter, opts ...Option) *Merger {
	m := &Merger{
		store:    store,
		reporter: reporter,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.reporter == nil {
		m.reporter = ports.ReporterFunc(func(context.Context, domain.ErrorContext) {})
	}
	return m
}

// Merge validates resp and writes its dashboard and action sections to the
// session under key in a single update. On failure the session is untouched
// and the message says why.
func (m *Merger) Merge(ctx context.Context, key string, resp any) (ok bool, msg string) {
	defer m.recoverInto(ctx, "full", &ok, &msg)

	data, err := envelope(resp)
	if err != nil {
		return m.failed(ctx, "full", err)
	}
	dashboard, err := dashboardSection(data)
	if err != nil {
		return m.failed(ctx, "full", err)
	}
	action, err := actionSection(data)
	if err != nil {
		return m.failed(ctx, "full", err)
	}

	return m.commit(ctx, key, "full", func(s *domain.Session) {
		s.Dashboard = dashboard
		s.Action = action
	})
}

// MergeAction is Merge for responses that only report an operation outcome.
// It checks the envelope and the action section and leaves the dashboard alone.
func (m *Merger) MergeAction(ctx context.Context, key string, resp any) (ok bool, msg string) {
	defer m.recoverInto(ctx, "action", &ok, &msg)

	data, err := envelope(resp)
	if err != nil {
		return m.failed(ctx, "action", err)
	}
	action, err := actionSection(data)
	if err != nil {
		return m.failed(ctx, "action", err)
	}

	return m.commit(ctx, key, "action", func(s *domain.Session) {
		s.Action = action
	})
}

func (m *Merger) commit(ctx context.Context, key, kind string, apply func(*domain.Session)) (bool, string) {
	sess, err := m.store.Get(ctx, key)
	if errors.Is(err, domain.ErrSessionNotFound) {
		sess, err = domain.NewSession(key), nil
	}
	if err != nil {
		return m.failed(ctx, kind, err)
	}

	apply(sess)
	if err := mirrorAction(sess); err != nil {
		return m.failed(ctx, kind, domain.NewFlowError("profile structure is invalid", StepMerge, err))
	}

	if _, err := m.store.Update(ctx, key, sess, m.ttl); err != nil {
		return m.failed(ctx, kind, err)
	}
	m.metrics.Merge(kind, true)
	m.logger.DebugContext(ctx, "response merged", "key", key, "kind", kind)
	return true, ""
}

// mirrorAction copies the action into profile.data.action, where older
// readers look for it. A profile whose branch is not a map is left untouched
// and reported.
func mirrorAction(s *domain.Session) error {
	if s.Action == nil {
		return nil
	}
	profile, err := validator.EnsureProfileStructure(s.Profile)
	if err != nil {
		return err
	}
	s.Profile = profile
	data := s.Profile["data"].(map[string]any)
	details := s.Action.Details
	if details == nil {
		details = map[string]any{}
	}
	mirror := map[string]any{
		"type":      s.Action.Type,
		"timestamp": s.Action.Timestamp,
		"actor":     s.Action.Actor,
		"details":   details,
	}
	if s.Action.Message != "" {
		mirror["message"] = s.Action.Message
	}
	data["action"] = mirror
	return nil
}

// failed classifies err, reports it and turns it into a result.
func (m *Merger) failed(ctx context.Context, kind string, err error) (bool, string) {
	m.metrics.Merge(kind, false)
	errType := domain.Classify(err)

	step := ""
	if errType == domain.ErrorTypeFlow {
		step = StepMerge
	}
	ec, ecErr := domain.NewErrorContext(errType, err.Error(), step, map[string]any{"merge": kind})
	if ecErr != nil {
		ec = domain.ErrorContext{Type: domain.ErrorTypeSystem, Message: err.Error()}
	}
	m.reporter.Report(ctx, ec)

	var flowErr *domain.FlowError
	if errors.As(err, &flowErr) {
		return false, flowErr.Message
	}
	return false, domain.UserMessage(err)
}

// recoverInto converts a panic inside the merge path into a reported system failure.
func (m *Merger) recoverInto(ctx context.Context, kind string, ok *bool, msg *string) {
	r := recover()
	if r == nil {
		return
	}
	err := &domain.SystemError{Code: domain.CodeStateUpdate, Service: domain.ServiceEngine, Action: "merge", Err: fmt.Errorf("panic: %v", r)}
	*ok, *msg = m.failed(ctx, kind, err)
}

func envelope(resp any) (map[string]any, error) {
	root, ok := resp.(map[string]any)
	if !ok {
		return nil, invalid(ErrInvalidResponse)
	}
	data, ok := root["data"].(map[string]any)
	if !ok {
		return nil, invalid(ErrInvalidResponse)
	}
	return data, nil
}

func dashboardSection(data map[string]any) (map[string]any, error) {
	dashboard, ok := data[domain.KeyDashboard].(map[string]any)
	if !ok || dashboard == nil {
		return nil, invalid(ErrMissingDashboard)
	}
	member, _ := dashboard["member"].(map[string]any)
	if id, _ := member["memberID"].(string); id == "" {
		return nil, invalid(ErrMissingMemberID)
	}
	return dashboard, nil
}

func actionSection(data map[string]any) (*domain.Action, error) {
	raw, ok := data[domain.KeyAction].(map[string]any)
	if !ok || raw == nil {
		return nil, invalid(ErrMissingAction)
	}
	var action domain.Action
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &action,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, domain.NewFlowError(MsgMissingAction, StepMerge, fmt.Errorf("%w: %v", ErrMissingAction, err))
	}
	return &action, nil
}

func invalid(cause error) error {
	return domain.NewFlowError(cause.Error(), StepMerge, cause)
}
