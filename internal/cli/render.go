package cli

import (
	"fmt"
	"strings"

	"campfire/internal/model"
)

// renderDecision formats a decision for the terminal. Blocked answers
// show only their reasons so unvalidated content never reaches the
// user.
func renderDecision(s styles, d model.Decision) string {
	var b strings.Builder

	if d.Banner != "" {
		b.WriteString(s.Warning.Render("⚠ " + d.Banner))
		b.WriteString("\n\n")
	}

	if !d.Allowed() {
		b.WriteString(s.errPrefix())
		b.WriteString(" answer blocked\n")
		for _, reason := range d.Reasons {
			fmt.Fprintf(&b, "  %s %s\n", s.dim("-"), reason)
		}
		if d.Incomplete {
			b.WriteString(s.dim("  (tool-call budget exhausted before the answer was complete)"))
			b.WriteString("\n")
		}
		return b.String()
	}

	for i, step := range d.Checklist.Steps {
		fmt.Fprintf(&b, "%s %s\n", s.Brand.Render(fmt.Sprintf("%d.", i+1)), s.Bold.Render(step.Title))
		fmt.Fprintf(&b, "   %s\n", step.Action)
		if step.Caution != "" {
			fmt.Fprintf(&b, "   %s %s\n", s.Yellow.Render("Caution:"), step.Caution)
		}
		if step.Source != nil {
			fmt.Fprintf(&b, "   %s\n", s.Citation.Render(
				fmt.Sprintf("[%s %d:%d]", step.Source.DocID, step.Source.Loc[0], step.Source.Loc[1]),
			))
		}
	}

	if d.Checklist.Meta.WhenToCallEmergency != "" {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s\n", s.Red.Render("Call emergency services if:"), d.Checklist.Meta.WhenToCallEmergency)
	}

	b.WriteString("\n")
	b.WriteString(s.dim(d.Disclaimer))
	b.WriteString("\n")
	return b.String()
}
