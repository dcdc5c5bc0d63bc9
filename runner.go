package ledgerchat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Runner drives one channel from line-oriented IO. It backs the console chat
// and is what tests use to script a conversation.
type Runner struct {
	Input     io.Reader
	Output    io.Writer
	ChannelID string
	// Headless suppresses the greeting and the prompt marker.
	Headless bool
	// JSON writes every result as one JSON line instead of markdown, for
	// driving the engine from another process. It implies Headless.
	JSON     bool
	Renderer ContentRenderer
}

// ContentRenderer transforms markdown before it is written, e.g. into ANSI.
type ContentRenderer func(string) (string, error)

// Commands understood by the runner itself.
const (
	CommandQuit   = "/quit"
	CommandCancel = "/cancel"
	CommandReset  = "/reset"
)

// NewRunner creates a Runner for channelID. Input and Output must be set
// before Run.
func NewRunner(channelID string) *Runner {
	return &Runner{ChannelID: channelID}
}

// Run reads messages until EOF or /quit and writes every result.
func (r *Runner) Run(ctx context.Context, engine *Engine) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	if r.ChannelID == "" {
		return fmt.Errorf("channel id must be set")
	}
	if r.JSON {
		r.Headless = true
	}
	lines := bufio.NewReader(r.Input)

	if !r.Headless {
		r.write(fmt.Sprintf("Connected as **%s**. Type a flow name to begin, `%s` to leave.", r.ChannelID, CommandQuit))
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}

		text, err := lines.ReadString('\n')
		if err != nil && (err != io.EOF || text == "") {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		input := strings.TrimSpace(text)

		var res *StepResult
		switch input {
		case CommandQuit, "exit", "quit":
			if !r.Headless {
				fmt.Fprintln(r.Output, "Bye!")
			}
			return nil
		case CommandCancel:
			res, _ = engine.ClearFlowState(ctx, r.ChannelID)
		case CommandReset:
			res, _ = engine.ClearAllState(ctx, r.ChannelID)
		default:
			// Failures are already reported; the result carries the user message.
			res, _ = engine.Handle(ctx, r.ChannelID, input)
		}
		if r.JSON {
			if encErr := json.NewEncoder(r.Output).Encode(res); encErr != nil {
				return fmt.Errorf("output error: %w", encErr)
			}
		} else {
			r.write(Markdown(res))
		}

		if err == io.EOF {
			return nil
		}
	}
}

func (r *Runner) write(markdown string) {
	if markdown == "" {
		return
	}
	out := markdown
	if r.Renderer != nil {
		if rendered, err := r.Renderer(markdown); err == nil {
			out = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(out))
}
