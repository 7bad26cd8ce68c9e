// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package configaudit checks linter and test-runner configuration files for
// content that does not match the declared format, unresolved placeholder
// values, and missing or invalid coverage thresholds.
package configaudit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	xglog "github.com/ManuGH/drivecopy/internal/log"
	"github.com/ManuGH/drivecopy/internal/metrics"
)

// DefaultSkipDirs are never descended into.
var DefaultSkipDirs = []string{".git", "node_modules", "dist", "build", "__pycache__", "venv", ".venv"}

// toolConfigName matches file names of linter, formatter and test-runner settings.
var toolConfigName = regexp.MustCompile(`(?i)^(\.?[\w-]+\.config\.(js|cjs|mjs|ts|mts|cts|json)|\.[\w-]+rc(\.(json|ya?ml|js|cjs|toml))?|[\w.-]+\.(ini|cfg|toml|ya?ml)|pylintrc|tsconfig(\.[\w-]+)?\.json)$`)

// Options configures an Auditor.
type Options struct {
	Placeholders []string
	SkipDirs     []string
}

// Auditor runs the configuration checks.
type Auditor struct {
	placeholders []string
	skip         map[string]bool
}

// New returns an Auditor. Empty option lists fall back to the defaults.
func New(opts Options) *Auditor {
	a := &Auditor{
		placeholders: opts.Placeholders,
		skip:         make(map[string]bool),
	}
	if len(a.placeholders) == 0 {
		a.placeholders = DefaultPlaceholders
	}
	skip := opts.SkipDirs
	if len(skip) == 0 {
		skip = DefaultSkipDirs
	}
	for _, d := range skip {
		a.skip[d] = true
	}
	return a
}

// Audit checks paths with the default options.
func Audit(ctx context.Context, paths ...string) (Report, error) {
	return New(Options{}).Audit(ctx, paths...)
}

// CheckFile runs every check on one file with the default options.
func CheckFile(path string, data []byte) []Finding {
	return New(Options{}).CheckFile(path, data).Findings
}

// Audit walks the given files and directories. Explicitly named files are
// always checked; files found while walking are checked when their name
// looks like tool configuration. Files are never modified.
func (a *Auditor) Audit(ctx context.Context, paths ...string) (Report, error) {
	logger := xglog.WithComponentFromContext(ctx, "configaudit")
	var report Report

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			report.Files = append(report.Files, ioReport(root, err))
			continue
		}
		if !info.IsDir() {
			report.Files = append(report.Files, a.checkPath(root))
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				report.Files = append(report.Files, ioReport(path, err))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && a.skip[d.Name()] {
					return fs.SkipDir
				}
				return nil
			}
			if !a.Recognized(path) {
				return nil
			}
			report.Files = append(report.Files, a.checkPath(path))
			return nil
		})
		if err != nil {
			return report, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	publish(report)
	logger.Debug().Int("files", len(report.Files)).Int("findings", len(report.Findings())).Msg("configuration audit finished")
	return report, nil
}

// Recognized reports whether a walked file is treated as tool configuration.
func (a *Auditor) Recognized(path string) bool {
	base := filepath.Base(path)
	if _, ok := namedFormats[strings.ToLower(base)]; ok {
		return true
	}
	return toolConfigName.MatchString(base)
}

func (a *Auditor) checkPath(path string) FileReport {
	data, err := os.ReadFile(path) // #nosec G304 -- auditing operator-selected paths
	if err != nil {
		return ioReport(path, err)
	}
	return a.CheckFile(path, data)
}

// CheckFile runs all checks on data as the content of path.
func (a *Auditor) CheckFile(path string, data []byte) FileReport {
	fr := FileReport{
		Path:     path,
		Declared: DeclaredFormat(path),
		Detected: DetectFormat(data),
	}

	syntaxFormat := fr.Declared
	if fr.Declared == FormatScript && (fr.Detected == FormatINI || fr.Detected == FormatTOML) {
		fr.Findings = append(fr.Findings, Finding{
			Path:     path,
			Line:     1,
			Check:    CheckFormatMismatch,
			Severity: SeverityError,
			Message:  fmt.Sprintf("file is named as a JavaScript/TypeScript module but its content is %s", strings.ToUpper(string(fr.Detected))),
		})
		syntaxFormat = FormatUnknown
	}

	if p := checkSyntax(path, syntaxFormat, data); p != nil {
		fr.Findings = append(fr.Findings, Finding{
			Path:     path,
			Line:     p.Line,
			Check:    CheckSyntax,
			Severity: SeverityError,
			Message:  fmt.Sprintf("content is not valid %s: %s", strings.ToUpper(string(syntaxFormat)), p.Msg),
		})
	}

	fr.Findings = append(fr.Findings, checkPlaceholders(path, data, a.placeholders)...)

	// INI-level checks apply to whatever holds INI content, mislabeled or not.
	if fr.Declared == FormatINI || fr.Detected == FormatINI {
		if ini, err := ParseINI(data); err == nil {
			rules, findings := checkLinterRules(path, ini)
			fr.Rules = rules
			fr.Findings = append(fr.Findings, findings...)
			fr.Findings = append(fr.Findings, checkCoverage(path, ini)...)
		}
	}
	return fr
}

func ioReport(path string, err error) FileReport {
	msg := err.Error()
	var pe *fs.PathError
	if errors.As(err, &pe) {
		msg = pe.Err.Error()
	}
	return FileReport{
		Path: path,
		Findings: []Finding{{
			Path:     path,
			Check:    CheckIO,
			Severity: SeverityError,
			Message:  "cannot read file: " + msg,
		}},
	}
}

func publish(r Report) {
	counts := make(map[metrics.AuditKey]int)
	for check, bySeverity := range r.Count() {
		for sev, n := range bySeverity {
			counts[metrics.AuditKey{Check: string(check), Severity: string(sev)}] = n
		}
	}
	metrics.SetAuditFindings(counts)
}
