package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ledgerchat banner to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{" _          _                      _           _   ", "#34d399"},
		{"| | ___  __| | __ _  ___ _ __ ___| |__   __ _| |_ ", "#2dd4bf"},
		{"| |/ _ \\/ _` |/ _` |/ _ \\ '__/ __| '_ \\ / _` | __|", "#22d3ee"},
		{"| |  __/ (_| | (_| |  __/ | | (__| | | | (_| | |_ ", "#38bdf8"},
		{"|_|\\___|\\__,_|\\__, |\\___|_|  \\___|_| |_|\\__,_|\\__|", "#60a5fa"},
		{"              |___/                                ", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
