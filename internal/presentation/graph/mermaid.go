package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/ledgerchat/pkg/component"
	"github.com/aretw0/ledgerchat/pkg/flow"
)

// Overlay marks session progress on the chart.
type Overlay struct {
	CompletedSteps []string
	CurrentStep    string
}

// GenerateMermaid produces a Mermaid flowchart for one flow.
// Shapes:
// - Start and end: ((Circle))
// - Input step: [/Parallelogram/]
// - Display step: [Rectangle]
// - Upstream submission: [[Subroutine]]
func GenerateMermaid(cfg flow.Config, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    start((\"" + string(cfg.Type) + "\"))\n")

	prev := "start"
	if cfg.Query && cfg.Submit {
		sb.WriteString("    refresh[[\"refresh\"]]\n")
		sb.WriteString("    start --> refresh\n")
		prev = "refresh"
	}

	for _, step := range cfg.Steps {
		id := stepID(step.Name)
		opener, closer := "[", "]"
		if step.Component.Capability() == component.CapabilityInput {
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s <br/> %s\"%s\n", id, opener, step.Name, step.Component, closer)
		fmt.Fprintf(&sb, "    %s --> %s\n", prev, id)
		if step.Component == component.KindConfirmInput {
			fmt.Fprintf(&sb, "    %s -. \"no\" .-> cancelled((\"cancelled\"))\n", id)
		}
		prev = id
	}

	if cfg.Submit && !cfg.Query {
		sb.WriteString("    submit[[\"submit\"]]\n")
		fmt.Fprintf(&sb, "    %s --> submit\n", prev)
		prev = "submit"
	}
	fmt.Fprintf(&sb, "    %s --> done((\"%s\"))\n", prev, flow.StepComplete)

	if overlay != nil {
		sb.WriteString("\n    classDef completed fill:#e0f2fe,stroke:#0284c7\n")
		sb.WriteString("    classDef current fill:#fef3c7,stroke:#d97706,stroke-width:2px\n")
		for _, name := range cfg.StepNames() {
			switch {
			case name == overlay.CurrentStep:
				fmt.Fprintf(&sb, "    class %s current\n", stepID(name))
			case slices.Contains(overlay.CompletedSteps, name):
				fmt.Fprintf(&sb, "    class %s completed\n", stepID(name))
			}
		}
	}

	return sb.String()
}

// stepID prefixes step names so they never collide with the fixed nodes.
func stepID(name string) string {
	r := strings.NewReplacer("-", "_", ".", "_", " ", "_")
	return "step_" + r.Replace(name)
}

// Progress derives an overlay from a flow and the session's current step.
func Progress(cfg flow.Config, current string) *Overlay {
	o := &Overlay{CurrentStep: current}
	for _, name := range cfg.StepNames() {
		if name == current {
			break
		}
		o.CompletedSteps = append(o.CompletedSteps, name)
	}
	return o
}
