package build

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Report is the outcome of one Run.
type Report struct {
	Validate bool
	Targets  []TargetResult
	Duration time.Duration
}

// Succeeded counts targets that did not fail.
func (r *Report) Succeeded() int {
	n := 0
	for i := range r.Targets {
		if r.Targets[i].OK() {
			n++
		}
	}
	return n
}

// Failed counts targets that failed or never ran.
func (r *Report) Failed() int {
	return len(r.Targets) - r.Succeeded()
}

// OK reports whether every target succeeded.
func (r *Report) OK() bool { return r.Failed() == 0 }

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD787"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	headingStyle = lipgloss.NewStyle().Bold(true)
)

// PrintReport writes one line per target, an error block for every failed
// target, and the final tally.
func PrintReport(w io.Writer, r *Report) {
	for i := range r.Targets {
		t := &r.Targets[i]
		if t.OK() {
			detail := fmt.Sprintf("%d resources", t.Resources)
			if t.Path != "" {
				detail += " -> " + t.Path
			}
			fmt.Fprintf(w, "  %s %s %s\n", okStyle.Render("✓"), t.Target, dimStyle.Render(detail))
			continue
		}
		fmt.Fprintf(w, "  %s %s %s\n", failStyle.Render("✗"), t.Target, dimStyle.Render(string(t.State)))
	}

	if r.Failed() > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, headingStyle.Render("Errors:"))
		for i := range r.Targets {
			t := &r.Targets[i]
			if t.OK() {
				continue
			}
			fmt.Fprintf(w, "\n%s\n", failStyle.Render(t.Target.String()))
			if len(t.Errors) == 0 {
				fmt.Fprintln(w, "  - not built")
			}
			for _, err := range t.Errors {
				fmt.Fprintf(w, "  - %v\n", err)
			}
		}
	}

	fmt.Fprintf(w, "\n%d succeeded, %d failed\n", r.Succeeded(), r.Failed())
}
