package runtime

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/aretw0/ledgerchat/pkg/component"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/flow"
	"github.com/aretw0/ledgerchat/pkg/ports"
	"github.com/aretw0/ledgerchat/pkg/validator"
)

// Load returns the channel's session, creating the empty shell on first
// contact.
func (e *Engine) Load(ctx context.Context, channelID string) (*domain.Session, error) {
	var sess *domain.Session
	err := e.sessions.WithLock(ctx, channelID, func(ctx context.Context) error {
		var err error
		sess, _, err = e.sessions.Load(ctx, channelID)
		return err
	})
	return sess, err
}

// StartFlow puts the channel at the first step of flowType, replacing any flow
// in progress.
func (e *Engine) StartFlow(ctx context.Context, channelID string, flowType flow.Type) (*StepResult, error) {
	return e.run(ctx, channelID, func(ctx context.Context) (*StepResult, error) {
		sess, _, err := e.sessions.Load(ctx, channelID)
		if err != nil {
			return nil, err
		}
		return e.start(ctx, sess, flowType)
	})
}

// Handle feeds one user message to the channel's current step.
//
// Rejected input leaves the session untouched and returns StatusRetry with the
// component failure. Without a flow in progress a message naming a flow starts
// it. Anything else returns StatusIdle.
func (e *Engine) Handle(ctx context.Context, channelID, input string) (*StepResult, error) {
	return e.run(ctx, channelID, func(ctx context.Context) (*StepResult, error) {
		return e.handle(ctx, channelID, input)
	})
}

// ClearFlowState abandons the flow in progress and keeps the rest of the session.
func (e *Engine) ClearFlowState(ctx context.Context, channelID string) (*StepResult, error) {
	return e.run(ctx, channelID, func(ctx context.Context) (*StepResult, error) {
		if _, err := e.sessions.ClearFlow(ctx, channelID); err != nil {
			return nil, err
		}
		return &StepResult{Status: StatusIdle, ChannelID: channelID}, nil
	})
}

// ClearAllState resets the session to its channel identity.
func (e *Engine) ClearAllState(ctx context.Context, channelID string) (*StepResult, error) {
	return e.run(ctx, channelID, func(ctx context.Context) (*StepResult, error) {
		if _, err := e.sessions.ClearAll(ctx, channelID); err != nil {
			return nil, err
		}
		return &StepResult{Status: StatusIdle, ChannelID: channelID}, nil
	})
}

// run applies the flow timeout and the channel lock around fn and routes any
// error through fail.
func (e *Engine) run(ctx context.Context, channelID string, fn func(context.Context) (*StepResult, error)) (*StepResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.flowTimeout)
	defer cancel()

	var res *StepResult
	err := e.sessions.WithLock(ctx, channelID, func(ctx context.Context) error {
		var err error
		res, err = fn(ctx)
		return err
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = &domain.SystemError{
				Code:    domain.CodeFlowTimeout,
				Service: domain.ServiceEngine,
				Action:  "handle",
				Err:     err,
			}
		}
		return e.fail(ctx, channelID, res, err)
	}

	e.metrics.Step(string(res.Flow), string(res.Status))
	return res, nil
}

func (e *Engine) start(ctx context.Context, sess *domain.Session, flowType flow.Type) (*StepResult, error) {
	res := &StepResult{ChannelID: sess.ChannelID, Flow: flowType}
	cfg, err := e.registry.FlowConfig(flowType)
	if err != nil {
		return res, err
	}
	first := cfg.Steps[0]
	res.Step = first.Name

	sess.FlowData = &domain.FlowData{
		ID:        string(flowType),
		Step:      first.Name,
		Data:      map[string]any{},
		RequestID: e.newRequestID(),
	}
	if _, err := e.sessions.Save(ctx, sess, cfg.TTL); err != nil {
		return res, err
	}
	e.logger.DebugContext(ctx, "flow started", "channel_id", sess.ChannelID, "flow", flowType)

	if cfg.Query && cfg.Submit && e.upstream != nil {
		refreshed, failed, err := e.refresh(ctx, sess, cfg)
		if err != nil || failed != nil {
			return failed, err
		}
		sess = refreshed
	}

	if len(cfg.Requires) > 0 {
		doc, err := validator.Document(sess)
		if err == nil {
			err = validator.ValidateFlowState(doc, cfg.Requires)
		}
		if err != nil {
			if _, clearErr := e.sessions.ClearFlow(ctx, sess.ChannelID); clearErr != nil {
				return res, clearErr
			}
			return res, domain.NewFlowError(fmt.Sprintf("flow %q cannot start: %v", flowType, err), first.Name, err)
		}
	}

	return e.enter(ctx, sess, cfg, res, StatusPrompt)
}

func (e *Engine) handle(ctx context.Context, channelID, raw string) (*StepResult, error) {
	res := &StepResult{ChannelID: channelID}
	sess, _, err := e.sessions.Load(ctx, channelID)
	if err != nil {
		return res, err
	}

	if !sess.InFlow() {
		name := flow.Type(strings.ToLower(strings.TrimSpace(raw)))
		if _, err := e.registry.FlowConfig(name); err == nil {
			return e.start(ctx, sess, name)
		}
		res.Status = StatusIdle
		res.Message = e.idleMessage()
		return res, nil
	}

	flowType := flow.Type(sess.FlowData.ID)
	step := sess.FlowData.Step
	res.Flow, res.Step = flowType, step

	if err := e.registry.ValidateFlowStep(flowType, step); err != nil {
		// A stored flow this registry cannot resolve is abandoned.
		if _, clearErr := e.sessions.ClearFlow(ctx, channelID); clearErr != nil {
			return res, clearErr
		}
		return res, err
	}
	cfg, _ := e.registry.FlowConfig(flowType)
	kind, _ := e.registry.StepComponent(flowType, step)
	res.Prompt = kind
	res.Data = maps.Clone(sess.FlowData.Data)

	comp, err := e.component(kind, sess)
	if err != nil {
		return res, domain.NewFlowError(err.Error(), step, err)
	}

	input, err := SanitizeInput(raw, e.maxInputSize)
	if err != nil {
		failure := component.Failure(err.Error(), "input", map[string]any{"limit": e.maxInputSize})
		failure.Component = kind.String()
		return e.retry(ctx, res, failure), nil
	}

	result := comp.Validate(input)
	if !result.Valid {
		return e.retry(ctx, res, result), nil
	}

	verified := comp.ToVerifiedData(input)
	if confirmed, ok := verified["confirmed"].(bool); ok && !confirmed {
		return e.cancel(ctx, sess, res)
	}
	if sess.FlowData.Data == nil {
		sess.FlowData.Data = map[string]any{}
	}
	maps.Copy(sess.FlowData.Data, verified)
	res.Data = maps.Clone(sess.FlowData.Data)

	if view, ok := result.Value.(component.View); ok {
		res.Display = &view
		if !view.LastPage() {
			res.Status = StatusPrompt
			if _, err := e.sessions.Save(ctx, sess, cfg.TTL); err != nil {
				return res, err
			}
			return res, nil
		}
	}

	return e.advance(ctx, sess, cfg, res)
}

// advance moves past the current step, completing the flow after the last one.
func (e *Engine) advance(ctx context.Context, sess *domain.Session, cfg flow.Config, res *StepResult) (*StepResult, error) {
	current := sess.FlowData.Step
	next, err := e.registry.NextStep(cfg.Type, current)
	if err != nil {
		return res, err
	}
	kind, _ := e.registry.StepComponent(cfg.Type, current)
	e.emitStepLeave(ctx, sess.ChannelID, cfg.Type, current, kind)

	if next == flow.StepComplete {
		return e.complete(ctx, sess, cfg, res)
	}
	sess.FlowData.Step = next
	res.Step = next
	return e.enter(ctx, sess, cfg, res, StatusAdvanced)
}

// enter activates the current step. Inputs wait for the next message. Displays
// render their first page and advance on their own when nothing more is left
// to page through.
func (e *Engine) enter(ctx context.Context, sess *domain.Session, cfg flow.Config, res *StepResult, status Status) (*StepResult, error) {
	step := sess.FlowData.Step
	kind, err := e.registry.StepComponent(cfg.Type, step)
	if err != nil {
		return res, err
	}
	comp, err := e.component(kind, sess)
	if err != nil {
		return res, domain.NewFlowError(err.Error(), step, err)
	}

	res.Flow, res.Step, res.Prompt = cfg.Type, step, kind
	res.Data = maps.Clone(sess.FlowData.Data)
	e.emitStepEnter(ctx, sess.ChannelID, cfg.Type, step, kind)

	result := comp.Validate(nil)
	if comp.Capability() == component.CapabilityDisplay {
		if !result.Valid {
			res.Failure = &result
			res.Message = result.Message
			return e.cancel(ctx, sess, res)
		}
		view, _ := result.Value.(component.View)
		res.Display = &view
		maps.Copy(sess.FlowData.Data, comp.ToVerifiedData(nil))
		res.Data = maps.Clone(sess.FlowData.Data)
		if view.LastPage() {
			return e.advance(ctx, sess, cfg, res)
		}
	}

	res.Status = status
	if _, err := e.sessions.Save(ctx, sess, cfg.TTL); err != nil {
		return res, err
	}
	return res, nil
}

// complete ends the flow. Submitting flows hand their data upstream after
// flow_data is cleared, so a failed submission never leaves a half-finished
// flow behind.
func (e *Engine) complete(ctx context.Context, sess *domain.Session, cfg flow.Config, res *StepResult) (*StepResult, error) {
	data := maps.Clone(sess.FlowData.Data)
	requestID := sess.FlowData.RequestID

	sess.ClearFlow()
	if _, err := e.sessions.Save(ctx, sess, 0); err != nil {
		return res, err
	}
	res.Status = StatusComplete
	res.Data = data
	res.Prompt = component.KindUnknown

	if !cfg.Submit || cfg.Query || e.upstream == nil {
		return res, nil
	}

	resp, err := e.submit(ctx, sess, cfg.Type, data, requestID)
	if err != nil {
		return res, err
	}
	if ok, msg := e.merger.MergeAction(ctx, sess.ChannelID, resp); !ok {
		// The merger has reported the failure.
		res.Status = StatusFailed
		res.ErrorType = domain.ErrorTypeFlow
		res.Error = msg
		res.Message = domain.MessageFlowFailure
		return res, nil
	}

	updated, _, err := e.sessions.Load(ctx, sess.ChannelID)
	if err != nil {
		return res, err
	}
	res.Action = updated.Action
	if updated.Action != nil {
		res.Message = updated.Action.Message
	}
	return res, nil
}

// cancel clears flow_data after the user declined, or a display had nothing
// to show.
func (e *Engine) cancel(ctx context.Context, sess *domain.Session, res *StepResult) (*StepResult, error) {
	sess.ClearFlow()
	if _, err := e.sessions.Save(ctx, sess, 0); err != nil {
		return res, err
	}
	res.Status = StatusCancelled
	res.Prompt = component.KindUnknown
	return res, nil
}

// refresh submits a query flow and merges the full response. A failed merge
// ends the flow and yields the failed result.
func (e *Engine) refresh(ctx context.Context, sess *domain.Session, cfg flow.Config) (*domain.Session, *StepResult, error) {
	res := &StepResult{ChannelID: sess.ChannelID, Flow: cfg.Type, Step: sess.FlowData.Step}
	resp, err := e.submit(ctx, sess, cfg.Type, map[string]any{}, sess.FlowData.RequestID)
	if err != nil {
		if _, clearErr := e.sessions.ClearFlow(ctx, sess.ChannelID); clearErr != nil {
			return nil, res, clearErr
		}
		return nil, res, err
	}

	if ok, msg := e.merger.Merge(ctx, sess.ChannelID, resp); !ok {
		if _, err := e.sessions.ClearFlow(ctx, sess.ChannelID); err != nil {
			return nil, res, err
		}
		res.Status = StatusFailed
		res.ErrorType = domain.ErrorTypeFlow
		res.Error = msg
		res.Message = domain.MessageFlowFailure
		return nil, res, nil
	}

	refreshed, _, err := e.sessions.Load(ctx, sess.ChannelID)
	if err != nil {
		return nil, res, err
	}
	if !refreshed.InFlow() {
		return nil, res, domain.NewFlowError("flow state lost during refresh", sess.FlowData.Step, nil)
	}
	return refreshed, nil, nil
}

func (e *Engine) submit(ctx context.Context, sess *domain.Session, flowType flow.Type, data map[string]any, requestID string) (any, error) {
	sub := ports.Submission{
		FlowID:         string(flowType),
		ChannelID:      sess.ChannelID,
		MemberID:       sess.MemberID(),
		AccountID:      accountID(sess),
		Data:           data,
		Token:          sess.JWTToken,
		IdempotencyKey: requestID,
	}

	e.emitSubmit(ctx, sess.ChannelID, flowType)
	resp, err := e.upstream.Submit(ctx, sub)
	e.emitSubmitReturn(ctx, sess.ChannelID, flowType, err != nil)
	if err == nil {
		return resp, nil
	}

	var sysErr *domain.SystemError
	if errors.As(err, &sysErr) {
		return nil, err
	}
	code := domain.CodeAPIRequest
	if errors.Is(err, context.DeadlineExceeded) {
		code = domain.CodeAPITimeout
	}
	return nil, &domain.SystemError{Code: code, Service: domain.ServiceAPI, Action: "submit " + string(flowType), Err: err}
}

// retry reports rejected input and returns the unchanged step.
func (e *Engine) retry(ctx context.Context, res *StepResult, failure component.Result) *StepResult {
	details := map[string]any{"flow": string(res.Flow), "step": res.Step}
	if cerr := failure.Err(); cerr != nil {
		details["component"] = cerr.Component
		details["field"] = cerr.Field
		maps.Copy(details, cerr.Details)
	}
	if ec, err := domain.NewErrorContext(domain.ErrorTypeInput, failure.Message, "", details); err == nil {
		e.reporter.Report(ctx, ec)
	}

	res.Status = StatusRetry
	res.Failure = &failure
	res.Message = failure.Message
	return res
}

// component builds the step's component. Displays read the session being
// handled.
func (e *Engine) component(kind component.Kind, sess *domain.Session) (component.Component, error) {
	comp, err := component.New(kind)
	if err != nil {
		return nil, err
	}
	if d, ok := comp.(component.Display); ok {
		d.Bind(component.SessionReader{Session: sess})
	}
	return comp, nil
}

func (e *Engine) idleMessage() string {
	types := e.registry.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return "No flow in progress. Start one of: " + strings.Join(names, ", ")
}

func accountID(sess *domain.Session) string {
	id, _ := sess.CurrentAccount["accountID"].(string)
	return id
}
