package runtime

import (
	"context"
	"errors"

	"github.com/aretw0/ledgerchat/pkg/domain"
)

// fail is the single place where flow and system errors are classified,
// reported and turned into a user-facing result. partial may carry the flow
// and step reached before the error.
func (e *Engine) fail(ctx context.Context, channelID string, partial *StepResult, err error) (*StepResult, error) {
	res := &StepResult{ChannelID: channelID}
	if partial != nil {
		res.Flow, res.Step = partial.Flow, partial.Step
	}

	etype := domain.Classify(err)
	res.Status = StatusFailed
	res.ErrorType = etype
	res.Message = domain.UserMessage(err)

	stepID := ""
	if etype == domain.ErrorTypeFlow {
		res.Error = err.Error()
		var flowErr *domain.FlowError
		if errors.As(err, &flowErr) && flowErr.StepID != "" {
			stepID = flowErr.StepID
		} else if res.Step != "" {
			stepID = res.Step
		} else {
			stepID = domain.StepUnknown
		}
	}

	details := map[string]any{"channel_id": channelID}
	if res.Flow != "" {
		details["flow"] = string(res.Flow)
	}
	var sysErr *domain.SystemError
	if errors.As(err, &sysErr) {
		details["code"] = sysErr.Code
		details["service"] = sysErr.Service
		details["action"] = sysErr.Action
	}

	ec, ecErr := domain.NewErrorContext(etype, err.Error(), stepID, details)
	if ecErr != nil {
		e.logger.ErrorContext(ctx, "unreportable error", "channel_id", channelID, "err", err, "context_err", ecErr)
	} else {
		// The request context may already be done; the report must still go out.
		e.reporter.Report(context.WithoutCancel(ctx), ec)
	}

	e.metrics.Step(string(res.Flow), string(res.Status))
	return res, err
}
