package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jaspreet-dot-casa/uinstall/pkg/registry"
	"github.com/jaspreet-dot-casa/uinstall/pkg/state"
)

// Checkpoint prints a summary of cp, or a note that there is none.
func Checkpoint(w io.Writer, path string, cp *state.Checkpoint) {
	if cp == nil {
		fmt.Fprintf(w, "No checkpoint at %s\n", path)
		return
	}

	snap := cp.Snapshot
	lines := []string{
		fmt.Sprintf("%s %s", DimStyle.Render("File:           "), path),
		fmt.Sprintf("%s %s", DimStyle.Render("Run:            "), cp.RunID),
		fmt.Sprintf("%s %s", DimStyle.Render("Last completed: "), BoldStyle.Render(cp.LastCompletedStep)),
		fmt.Sprintf("%s %s", DimStyle.Render("Saved:          "), cp.SavedAt.Local().Format("2006-01-02 15:04:05")),
	}
	if snap != nil {
		lines = append(lines,
			fmt.Sprintf("%s %s / %s / %s", DimStyle.Render("Mode/tier/hw:   "), orDash(snap.Mode), orDash(snap.SecurityTier), orDash(snap.HardwareTier)),
			fmt.Sprintf("%s %s", DimStyle.Render("Components:     "), orDash(strings.Join(snap.Components, ", "))),
		)
		if len(snap.Ports) > 0 {
			names := make([]string, 0, len(snap.Ports))
			for name := range snap.Ports {
				names = append(names, name)
			}
			slices.Sort(names)
			ports := make([]string, len(names))
			for i, name := range names {
				ports[i] = fmt.Sprintf("%s=%d", name, snap.Ports[name])
			}
			lines = append(lines, fmt.Sprintf("%s %s", DimStyle.Render("Ports:          "), strings.Join(ports, ", ")))
		}
		if len(snap.Secrets) > 0 {
			lines = append(lines, fmt.Sprintf("%s %d generated", DimStyle.Render("Secrets:        "), len(snap.Secrets)))
		}
	}

	fmt.Fprintln(w, BoxStyle.Render(strings.Join(lines, "\n")))
}

// Steps prints the registry in order, marking the steps cp records as done.
func Steps(w io.Writer, steps []registry.Step, cp *state.Checkpoint) {
	done := 0
	if cp != nil {
		for _, s := range steps {
			if s.Name == cp.LastCompletedStep {
				done = s.Ordinal
			}
		}
	}

	for _, s := range steps {
		mark := DimStyle.Render("pending")
		if s.Ordinal <= done {
			mark = SuccessStyle.Render("done") + "   "
		}
		fmt.Fprintf(w, "%2d. %s %-20s %s\n", s.Ordinal, mark, s.Name, DimStyle.Render(s.Title))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
