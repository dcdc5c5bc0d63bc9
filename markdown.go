package ledgerchat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/ledgerchat/pkg/component"
)

var prompts = map[component.Kind]string{
	component.KindAmountInput:      "How much? For example `100 USD`.",
	component.KindHandleInput:      "Who is it for? Enter their handle.",
	component.KindConfirmInput:     "Confirm? (yes/no)",
	component.KindOfferSelectInput: "Which offer? Enter its id.",
}

// Markdown renders a result for a chat channel.
func Markdown(res *StepResult) string {
	if res == nil {
		return ""
	}
	var b strings.Builder

	if res.Display != nil {
		writeView(&b, res.Display)
	}

	switch res.Status {
	case StatusRetry:
		fmt.Fprintf(&b, "⚠ %s\n\n", res.Message)
	case StatusComplete:
		if res.Message != "" {
			fmt.Fprintf(&b, "✔ %s\n\n", res.Message)
		} else if res.Display == nil {
			b.WriteString("✔ Done.\n\n")
		}
		return strings.TrimSpace(b.String())
	case StatusCancelled:
		if res.Message != "" {
			fmt.Fprintf(&b, "%s\n\n", res.Message)
		}
		b.WriteString("Cancelled.\n")
		return strings.TrimSpace(b.String())
	case StatusFailed, StatusIdle:
		b.WriteString(res.Message)
		return strings.TrimSpace(b.String())
	}

	if res.Display != nil && !res.Display.LastPage() {
		fmt.Fprintf(&b, "_Page %d of %d. Enter a page number._\n", res.Display.Page, res.Display.Pages)
	} else if p, ok := prompts[res.Prompt]; ok {
		if len(res.Data) > 0 {
			b.WriteString(summary(res.Data))
		}
		b.WriteString(p)
	}
	return strings.TrimSpace(b.String())
}

func writeView(b *strings.Builder, v *component.View) {
	if v.Title != "" {
		fmt.Fprintf(b, "### %s\n\n", v.Title)
	}
	switch {
	case len(v.Columns) > 0:
		fmt.Fprintf(b, "| %s |\n", strings.Join(v.Columns, " | "))
		fmt.Fprintf(b, "|%s\n", strings.Repeat(" --- |", len(v.Columns)))
		for _, row := range v.Rows {
			fmt.Fprintf(b, "| %s |\n", strings.Join(row, " | "))
		}
	case len(v.Items) > 0:
		for _, item := range v.Items {
			fmt.Fprintf(b, "- %s\n", item)
		}
	}
	b.WriteString("\n")
}

func summary(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: `%v`", k, data[k])
	}
	return "_" + strings.Join(parts, ", ") + "_\n\n"
}
