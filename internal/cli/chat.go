package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/aretw0/ledgerchat"
	"github.com/aretw0/ledgerchat/internal/presentation/tui"
)

// ChatOptions configures RunChat.
type ChatOptions struct {
	ChannelID string
	// Headless disables the banner, the prompt marker and markdown styling.
	Headless bool
	// Raw keeps the banner but prints markdown unstyled.
	Raw bool
	// JSON emits one JSON result per line, see ledgerchat.Runner.
	JSON   bool
	Input  io.Reader
	Output io.Writer
}

// RunChat runs an interactive conversation on one channel until EOF, /quit
// or cancellation.
func RunChat(ctx context.Context, app *App, opts ChatOptions) error {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := ledgerchat.NewRunner(opts.ChannelID)
	r.Input = opts.Input
	r.Output = opts.Output
	r.Headless = opts.Headless
	r.JSON = opts.JSON

	if !opts.Headless && !opts.JSON {
		tui.PrintBanner(opts.Output, ledgerchat.Version)
		if f, ok := opts.Output.(*os.File); ok && !opts.Raw && tui.IsTerminal(f) {
			r.Renderer = tui.NewRenderer()
		}
	}

	sess, err := app.Engine.Load(ctx, opts.ChannelID)
	if err != nil {
		return err
	}
	app.Logger.Info("chat started", "channel_id", opts.ChannelID, "in_flow", sess.InFlow())
	if sess.InFlow() && !opts.Headless && !opts.JSON {
		printSystemMessage(opts.Output, "Resuming %s at '%s'.", sess.FlowData.ID, sess.FlowData.Step)
	}

	err = r.Run(ctx, app.Engine)
	if errors.Is(err, context.Canceled) {
		app.Logger.Info("chat interrupted", "channel_id", opts.ChannelID)
		return nil
	}
	return err
}
