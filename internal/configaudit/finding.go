// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package configaudit

import (
	"fmt"
	"sort"
)

// Severity of a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Check names the rule that produced a finding.
type Check string

const (
	CheckSyntax         Check = "syntax"
	CheckFormatMismatch Check = "format-mismatch"
	CheckPlaceholder    Check = "placeholder"
	CheckCoverage       Check = "coverage-threshold"
	CheckLinterRule     Check = "linter-rule"
	CheckIO             Check = "io"
)

// Finding is one defect in one file.
type Finding struct {
	Path     string
	Line     int
	Check    Check
	Severity Severity
	Message  string
}

func (f Finding) String() string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d: %s [%s] %s", f.Path, f.Line, f.Severity, f.Check, f.Message)
	}
	return fmt.Sprintf("%s: %s [%s] %s", f.Path, f.Severity, f.Check, f.Message)
}

// FileReport holds the result for a single file.
type FileReport struct {
	Path     string
	Declared Format
	Detected Format
	Findings []Finding
	// Rules maps linter rule ids to enabled (true) or disabled (false).
	Rules map[string]bool
}

// Report aggregates findings per file in walk order.
type Report struct {
	Files []FileReport
}

// HasErrors reports whether any finding has error severity.
func (r Report) HasErrors() bool {
	for _, f := range r.Findings() {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Findings returns all findings ordered by path and line.
func (r Report) Findings() []Finding {
	var out []Finding
	for _, fr := range r.Files {
		out = append(out, fr.Findings...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// Count returns the number of findings per check and severity.
func (r Report) Count() map[Check]map[Severity]int {
	out := make(map[Check]map[Severity]int)
	for _, f := range r.Findings() {
		if out[f.Check] == nil {
			out[f.Check] = make(map[Severity]int)
		}
		out[f.Check][f.Severity]++
	}
	return out
}
