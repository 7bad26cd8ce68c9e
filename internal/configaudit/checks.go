// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package configaudit

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultPlaceholders are the unresolved-value markers reported by default.
var DefaultPlaceholders = []string{
	"TODO: VALUE_NEEDED",
	"VALUE_NEEDED",
	"ADD_IGNORE_FILES_HERE",
	"TODO: ADD_",
	"CHANGEME",
}

// checkPlaceholders reports each line containing a placeholder token. Longer
// tokens win over shorter ones overlapping the same span.
func checkPlaceholders(path string, data []byte, tokens []string) []Finding {
	sorted := append([]string(nil), tokens...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	var out []Finding
	for i, line := range strings.Split(string(data), "\n") {
		type span struct{ start, end int }
		var taken []span
		for _, tok := range sorted {
			if tok == "" {
				continue
			}
			offset := 0
			for {
				idx := strings.Index(line[offset:], tok)
				if idx < 0 {
					break
				}
				s := span{offset + idx, offset + idx + len(tok)}
				offset = s.end

				overlaps := false
				for _, t := range taken {
					if s.start < t.end && t.start < s.end {
						overlaps = true
						break
					}
				}
				if overlaps {
					continue
				}
				taken = append(taken, s)
				out = append(out, Finding{
					Path:     path,
					Line:     i + 1,
					Check:    CheckPlaceholder,
					Severity: SeverityError,
					Message:  fmt.Sprintf("unresolved placeholder %q", tok),
				})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

var (
	covFailUnderFlag = regexp.MustCompile(`--cov-fail-under(?:=|\s+)(\S+)`)
	covFlag          = regexp.MustCompile(`(^|\s)--cov(=|\s|$)`)
)

var coverageSections = map[string]bool{
	"coverage:report": true,
	"coverage:run":    true,
	"tool:coverage":   true,
	"report":          true,
	"run":             true,
}

// checkCoverage validates minimum coverage settings in INI content.
func checkCoverage(path string, f *INIFile) []Finding {
	var (
		out          []Finding
		hasThreshold bool
		collects     bool
		collectsLine int
	)

	invalid := func(line int, key, value string) {
		out = append(out, Finding{
			Path:     path,
			Line:     line,
			Check:    CheckCoverage,
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s must be a number between 0 and 100, got %q", key, value),
		})
	}

	for _, s := range f.Sections {
		name := strings.ToLower(s.Name)
		if coverageSections[name] {
			collects = true
			if collectsLine == 0 {
				collectsLine = s.Line
			}
		}
		for _, k := range s.Keys {
			switch strings.ToLower(k.Name) {
			case "fail_under", "cov_fail_under", "cov-fail-under":
				hasThreshold = true
				if !validPercent(k.Value) {
					invalid(k.Line, k.Name, k.Value)
				}
			case "addopts":
				if covFlag.MatchString(k.Value) {
					collects = true
					if collectsLine == 0 {
						collectsLine = k.Line
					}
				}
				for _, m := range covFailUnderFlag.FindAllStringSubmatch(k.Value, -1) {
					hasThreshold = true
					if !validPercent(m[1]) {
						invalid(k.Line, "--cov-fail-under", m[1])
					}
				}
			}
		}
	}

	if collects && !hasThreshold {
		out = append(out, Finding{
			Path:     path,
			Line:     collectsLine,
			Check:    CheckCoverage,
			Severity: SeverityWarning,
			Message:  "coverage is collected but no minimum threshold is set",
		})
	}
	return out
}

func validPercent(v string) bool {
	n, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "%"), 64)
	return err == nil && n >= 0 && n <= 100
}

// LinterRules extracts the enable/disable lists of pylint-style
// [MESSAGES CONTROL] sections. Rules listed in enable win over disable.
func LinterRules(f *INIFile) map[string]bool {
	rules, _ := linterRules(f)
	return rules
}

type ruleRef struct {
	name string
	line int
}

func linterRules(f *INIFile) (map[string]bool, []ruleRef) {
	var (
		rules map[string]bool
		dups  []ruleRef
	)
	for _, s := range f.Sections {
		if !strings.EqualFold(s.Name, "MESSAGES CONTROL") {
			continue
		}
		if rules == nil {
			rules = make(map[string]bool)
		}
		for _, key := range []string{"disable", "enable"} {
			k, ok := s.Get(key)
			if !ok {
				continue
			}
			seen := make(map[string]bool)
			for _, rule := range splitRules(k.Value) {
				if seen[rule] {
					dups = append(dups, ruleRef{name: rule, line: k.Line})
					continue
				}
				seen[rule] = true
				rules[rule] = key == "enable"
			}
		}
	}
	return rules, dups
}

func splitRules(v string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '\n' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func checkLinterRules(path string, f *INIFile) (map[string]bool, []Finding) {
	rules, dups := linterRules(f)
	var out []Finding
	for _, d := range dups {
		out = append(out, Finding{
			Path:     path,
			Line:     d.line,
			Check:    CheckLinterRule,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("rule %q is listed more than once", d.name),
		})
	}
	return rules, out
}
