// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package render formats run summaries and audit reports for the terminal.
// Colors are only emitted when the writer is a terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/ManuGH/drivecopy/internal/configaudit"
	"github.com/ManuGH/drivecopy/internal/jobs"
	"github.com/charmbracelet/lipgloss"
)

type palette struct {
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Accent  lipgloss.Color
	Border  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var colors = palette{
	Text:    lipgloss.Color("#cdd6f4"),
	Muted:   lipgloss.Color("#a6adc8"),
	Accent:  lipgloss.Color("#cba6f7"),
	Border:  lipgloss.Color("#585b70"),
	Success: lipgloss.Color("#94e2d5"),
	Warning: lipgloss.Color("#f9e2af"),
	Error:   lipgloss.Color("#f38ba8"),
}

type styles struct {
	box     lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	muted   lipgloss.Style
	ok      lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Border).
			Padding(0, 1),
		title:   r.NewStyle().Bold(true).Foreground(colors.Accent),
		label:   r.NewStyle().Foreground(colors.Muted).Width(18),
		value:   r.NewStyle().Foreground(colors.Text),
		muted:   r.NewStyle().Foreground(colors.Muted),
		ok:      r.NewStyle().Bold(true).Foreground(colors.Success),
		warning: r.NewStyle().Bold(true).Foreground(colors.Warning),
		err:     r.NewStyle().Bold(true).Foreground(colors.Error),
	}
}

// Status writes a boxed summary of a run.
func Status(w io.Writer, st *jobs.Status) error {
	s := newStyles(w)

	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render(label), s.value.Render(value))
	}

	lines := []string{
		s.title.Render("drivecopy " + st.Operation),
		row("Run", st.RunID),
		row("Duration", st.Duration().String()),
		row("Source", fmt.Sprintf("%s (%d files, %d folders)", st.SourceName, st.Source.Files, st.Source.Folders)),
	}
	if st.DestinationName != "" {
		lines = append(lines, row("Destination", fmt.Sprintf("%s (%d files, %d folders)", st.DestinationName, st.Destination.Files, st.Destination.Folders)))
	}
	if c := st.Copy; c != nil {
		lines = append(lines,
			row("Files", fmt.Sprintf("%d copied, %d skipped, %d failed", c.FilesCopied, c.FilesSkipped, c.FilesFailed)),
			row("Folders", fmt.Sprintf("%d created, %d reused", c.FoldersCreated, c.FoldersReused)),
		)
		for _, f := range c.Failures {
			msg := ""
			if f.Err != nil {
				msg = ": " + f.Err.Error()
			}
			lines = append(lines, s.err.Render("  ✗ ")+s.value.Render(string(f.Kind)+" "+f.Name+msg))
		}
	}
	for _, p := range st.Reports {
		lines = append(lines, row("Report", p))
	}

	switch {
	case st.Error != "" && st.Stage != "validate":
		lines = append(lines, s.err.Render("FAILED")+s.muted.Render(" at "+st.Stage+": "+st.Error))
	case st.Operation == "run" && st.Validated:
		lines = append(lines, s.ok.Render("VALIDATED"))
	case st.Operation == "run":
		lines = append(lines, s.err.Render("NOT VALIDATED"))
	default:
		lines = append(lines, s.ok.Render("DONE"))
	}

	_, err := fmt.Fprintln(w, s.box.Render(strings.Join(lines, "\n")))
	return err
}

// Audit writes one line per finding followed by a totals line.
func Audit(w io.Writer, r configaudit.Report) error {
	s := newStyles(w)
	var b strings.Builder

	for _, f := range r.Findings() {
		sev := s.warning.Render("warning")
		if f.Severity == configaudit.SeverityError {
			sev = s.err.Render("error  ")
		}
		loc := f.Path
		if f.Line > 0 {
			loc = fmt.Sprintf("%s:%d", f.Path, f.Line)
		}
		fmt.Fprintf(&b, "%s %s %s %s\n", sev, s.value.Render(loc), s.muted.Render("["+string(f.Check)+"]"), f.Message)
	}

	errs, warns := 0, 0
	for _, bySev := range r.Count() {
		errs += bySev[configaudit.SeverityError]
		warns += bySev[configaudit.SeverityWarning]
	}
	summary := fmt.Sprintf("%d files checked, %d errors, %d warnings", len(r.Files), errs, warns)
	switch {
	case errs > 0:
		b.WriteString(s.err.Render(summary))
	case warns > 0:
		b.WriteString(s.warning.Render(summary))
	default:
		b.WriteString(s.ok.Render(summary))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
