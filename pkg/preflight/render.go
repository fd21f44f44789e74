package preflight

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
)

// Render writes a human-readable report of checks to w.
func Render(w io.Writer, checks []Check) {
	fmt.Fprintln(w, titleStyle.Render("Pre-flight checks"))
	for _, check := range checks {
		icon, style := statusIcon(check.Status)
		fmt.Fprintf(w, "  %s %-16s %s\n", style.Render(icon), check.Name, dimStyle.Render(check.Message))
		if check.Fix != "" && check.Status != StatusOK {
			fmt.Fprintf(w, "    %s %s\n", dimStyle.Render("fix:"), check.Fix)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderSummary(Summarize(checks)))
}

func statusIcon(s CheckStatus) (string, lipgloss.Style) {
	switch s {
	case StatusOK:
		return "✓", okStyle
	case StatusMissing:
		return "✗", errStyle
	case StatusWarning:
		return "⚠", warnStyle
	case StatusError:
		return "!", errStyle
	default:
		return "-", dimStyle
	}
}

func renderSummary(s Summary) string {
	if s.Total == 0 {
		return dimStyle.Render("No checks")
	}
	parts := []string{okStyle.Render(fmt.Sprintf("✓ %d", s.OK))}
	if n := s.Missing + s.Errors; n > 0 {
		parts = append(parts, errStyle.Render(fmt.Sprintf("✗ %d", n)))
	}
	if s.Warnings > 0 {
		parts = append(parts, warnStyle.Render(fmt.Sprintf("⚠ %d", s.Warnings)))
	}
	if s.Skipped > 0 {
		parts = append(parts, dimStyle.Render(fmt.Sprintf("- %d skipped", s.Skipped)))
	}
	return strings.Join(parts, "  ")
}
