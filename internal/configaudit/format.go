// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package configaudit

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Format is a configuration file syntax.
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatINI     Format = "ini"
	FormatTOML    Format = "toml"
	FormatYAML    Format = "yaml"
	FormatJSON    Format = "json"
	FormatScript  Format = "script"
)

var namedFormats = map[string]Format{
	".pylintrc":   FormatINI,
	"pylintrc":    FormatINI,
	".coveragerc": FormatINI,
	"pytest.ini":  FormatINI,
	"tox.ini":     FormatINI,
	"setup.cfg":   FormatINI,
	".flake8":     FormatINI,
	".eslintrc":   FormatJSON,
	".prettierrc": FormatJSON,
}

var extFormats = map[string]Format{
	".ini":  FormatINI,
	".cfg":  FormatINI,
	".toml": FormatTOML,
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
	".js":   FormatScript,
	".cjs":  FormatScript,
	".mjs":  FormatScript,
	".ts":   FormatScript,
	".mts":  FormatScript,
	".cts":  FormatScript,
}

// DeclaredFormat returns the format implied by the file name.
func DeclaredFormat(path string) Format {
	base := strings.ToLower(filepath.Base(path))
	if f, ok := namedFormats[base]; ok {
		return f
	}
	if f, ok := extFormats[filepath.Ext(base)]; ok {
		return f
	}
	return FormatUnknown
}

var (
	scriptMarkers = regexp.MustCompile(`(?m)^\s*(import\s|export\s|const\s|let\s|var\s|module\.exports|require\(|'use strict'|"use strict")|defineConfig\(`)
	iniSection    = regexp.MustCompile(`^\[[^\]=\s][^\]=]*\]$`)
)

// DetectFormat sniffs the syntax of data regardless of its file name.
func DetectFormat(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return FormatUnknown
	}

	if (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid(trimmed) {
		return FormatJSON
	}
	if scriptMarkers.Match(data) {
		return FormatScript
	}

	var doc map[string]any
	if md, err := toml.Decode(string(data), &doc); err == nil && len(md.Keys()) > 0 {
		return FormatTOML
	}
	if looksLikeINI(data) {
		return FormatINI
	}
	if isYAMLMapping(data) {
		return FormatYAML
	}
	return FormatUnknown
}

// looksLikeINI requires a section header and a clean INI parse.
func looksLikeINI(data []byte) bool {
	hasSection := false
	for _, line := range strings.Split(string(data), "\n") {
		if iniSection.MatchString(strings.TrimSpace(line)) {
			hasSection = true
			break
		}
	}
	if !hasSection {
		return false
	}
	_, err := ParseINI(data)
	return err == nil
}
