package cli

import (
	"context"
	"slices"

	"github.com/aretw0/ledgerchat/internal/presentation/graph"
	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/flow"
	"github.com/aretw0/ledgerchat/pkg/persistence/middleware"
	"github.com/aretw0/ledgerchat/pkg/state"
	"github.com/aretw0/ledgerchat/pkg/validator"
)

// SessionReport is what `session inspect` prints.
type SessionReport struct {
	ChannelID string         `json:"channel_id"`
	Session   map[string]any `json:"session"`
	Valid     bool           `json:"valid"`
	Problem   string         `json:"problem,omitempty"`
	// Graph is a Mermaid chart of the active flow with progress marked.
	Graph string `json:"graph,omitempty"`
}

// ListSessions returns the stored channel ids, sorted.
func ListSessions(ctx context.Context, app *App) ([]string, error) {
	ids, err := app.Engine.Sessions().List(ctx)
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

// InspectSession reads a session through the PII mask, checks it against the
// state schema and charts flow progress. Unmasked data never leaves the
// store.
func InspectSession(ctx context.Context, app *App, channelID string) (*SessionReport, error) {
	patterns := app.Config.Security.PIIPatterns
	if len(patterns) == 0 {
		patterns = middleware.DefaultPIIPatterns
	}
	pii, err := middleware.NewPIIMiddleware(patterns)
	if err != nil {
		return nil, err
	}
	masked := state.New(middleware.Chain(app.Cache, pii), state.WithPrefix(app.Config.Store.KeyPrefix))

	sess, err := masked.Get(ctx, channelID)
	if err != nil {
		return nil, err
	}
	doc, err := validator.Document(sess)
	if err != nil {
		return nil, err
	}

	report := &SessionReport{ChannelID: channelID, Session: doc, Valid: true}
	if err := validator.ValidateState(doc); err != nil {
		report.Valid = false
		report.Problem = err.Error()
	}
	if _, ok := doc[domain.KeyJWTToken]; ok {
		doc[domain.KeyJWTToken] = middleware.Mask
	}

	if sess.InFlow() {
		if cfg, err := app.Engine.Registry().FlowConfig(flow.Type(sess.FlowData.ID)); err == nil {
			report.Graph = graph.GenerateMermaid(cfg, graph.Progress(cfg, sess.FlowData.Step))
		}
	}
	return report, nil
}

// DeleteSession removes a channel's session.
func DeleteSession(ctx context.Context, app *App, channelID string) error {
	return app.Engine.Sessions().Delete(ctx, channelID)
}
