// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package configaudit

import (
	"fmt"
	"strings"
)

// INIKey is one key of an INI section. Value holds the first line and all
// continuation lines joined by newlines, with inline comments removed.
type INIKey struct {
	Name  string
	Value string
	Line  int
}

// INISection is a named group of keys.
type INISection struct {
	Name string
	Line int
	Keys []INIKey
}

// Get returns the value of key and whether it is present.
func (s INISection) Get(key string) (INIKey, bool) {
	for _, k := range s.Keys {
		if strings.EqualFold(k.Name, key) {
			return k, true
		}
	}
	return INIKey{}, false
}

// INIFile is a parsed INI document.
type INIFile struct {
	Sections []INISection
}

// Section returns the first section named name, case-insensitively.
func (f *INIFile) Section(name string) (INISection, bool) {
	for _, s := range f.Sections {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return INISection{}, false
}

// SyntaxError is a parse error with a 1-based line number.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ParseINI parses the dialect shared by pylint, pytest and coverage:
// [section] headers, "key = value" or "key: value" pairs, indented
// continuation lines, and full-line or whitespace-prefixed inline
// comments starting with '#' or ';'.
func ParseINI(data []byte) (*INIFile, error) {
	f := &INIFile{}
	var (
		section *INISection
		key     *INIKey
	)

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for i, raw := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(raw)

		if trimmed == "" || trimmed[0] == '#' || trimmed[0] == ';' {
			continue
		}

		indented := raw[0] == ' ' || raw[0] == '\t'
		if indented && key != nil {
			if v := stripInlineComment(trimmed); v != "" {
				if key.Value == "" {
					key.Value = v
				} else {
					key.Value += "\n" + v
				}
			}
			continue
		}

		if strings.HasPrefix(trimmed, "[") {
			if !strings.HasSuffix(trimmed, "]") || len(trimmed) < 3 {
				return nil, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("malformed section header %q", trimmed)}
			}
			f.Sections = append(f.Sections, INISection{Name: strings.TrimSpace(trimmed[1 : len(trimmed)-1]), Line: lineNo})
			section = &f.Sections[len(f.Sections)-1]
			key = nil
			continue
		}

		if section == nil {
			return nil, &SyntaxError{Line: lineNo, Msg: "key outside of any section"}
		}

		idx := strings.IndexAny(trimmed, "=:")
		if idx <= 0 {
			return nil, &SyntaxError{Line: lineNo, Msg: fmt.Sprintf("expected key = value, got %q", trimmed)}
		}
		section.Keys = append(section.Keys, INIKey{
			Name:  strings.TrimSpace(trimmed[:idx]),
			Value: stripInlineComment(strings.TrimSpace(trimmed[idx+1:])),
			Line:  lineNo,
		})
		key = &section.Keys[len(section.Keys)-1]
	}
	return f, nil
}

// stripInlineComment removes a trailing comment introduced by whitespace and '#' or ';'.
func stripInlineComment(s string) string {
	for i := 1; i < len(s); i++ {
		if (s[i] == '#' || s[i] == ';') && (s[i-1] == ' ' || s[i-1] == '\t') {
			return strings.TrimSpace(s[:i])
		}
	}
	return strings.TrimSpace(s)
}
