// Package report renders the operator-facing summary printed after a run.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/systemstart/evalrun/pkg/runner"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D29922"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
)

// FormatDuration renders d as whole minutes and seconds, e.g. "3m07s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%dm%02ds", total/60, total%60)
}

// Print writes the run outcome: elapsed time and the artifact manifest for a
// completed run, or the failed step for an aborted one.
func Print(w io.Writer, r *runner.Report) error {
	var b strings.Builder

	if !r.Succeeded() {
		b.WriteString(failStyle.Render("evaluation aborted"))
		b.WriteString("\n")
		if n := len(r.Results); n > 0 {
			last := r.Results[n-1]
			fmt.Fprintf(&b, "  failed step: [%d/%d] %s\n", last.Index, r.Total, last.Label)
		}
		fmt.Fprintf(&b, "  elapsed: %s\n", FormatDuration(r.Elapsed))
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(titleStyle.Render("evaluation complete"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  run:     %s\n", dimStyle.Render(r.RunID))
	fmt.Fprintf(&b, "  elapsed: %s\n", FormatDuration(r.Elapsed))
	b.WriteString("  artifacts:\n")

	present := make(map[string]bool, len(r.Artifacts))
	for _, a := range r.Artifacts {
		present[a.Name] = a.Present()
	}

	for _, name := range r.Manifest {
		marker := okStyle.Render("✓")
		if !present[name] {
			marker = missingStyle.Render("?")
		}
		fmt.Fprintf(&b, "    %s %s\n", marker, name)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
