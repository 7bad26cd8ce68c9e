// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package configaudit

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dop251/goja"
	"gopkg.in/yaml.v3"
)

var (
	yamlLine   = regexp.MustCompile(`line (\d+)`)
	gojaLine   = regexp.MustCompile(`Line (\d+):`)
	esmMarkers = regexp.MustCompile(`(?m)^\s*(import|export)\b`)
)

// syntaxProblem is a parse failure located at Line (0 when unknown).
type syntaxProblem struct {
	Line int
	Msg  string
}

// checkSyntax parses data as format. It returns nil when the content is valid
// or when no parser is available for the file.
func checkSyntax(path string, format Format, data []byte) *syntaxProblem {
	switch format {
	case FormatINI:
		if _, err := ParseINI(data); err != nil {
			var se *SyntaxError
			if errors.As(err, &se) {
				return &syntaxProblem{Line: se.Line, Msg: se.Msg}
			}
			return &syntaxProblem{Msg: err.Error()}
		}
	case FormatTOML:
		var doc map[string]any
		if _, err := toml.Decode(string(data), &doc); err != nil {
			var pe toml.ParseError
			if errors.As(err, &pe) {
				return &syntaxProblem{Line: pe.Position.Line, Msg: pe.Message}
			}
			return &syntaxProblem{Msg: err.Error()}
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		for {
			var doc any
			err := dec.Decode(&doc)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return &syntaxProblem{Line: firstLine(yamlLine, err.Error()), Msg: err.Error()}
			}
		}
	case FormatJSON:
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			var se *json.SyntaxError
			if errors.As(err, &se) {
				return &syntaxProblem{Line: lineAt(data, se.Offset), Msg: se.Error()}
			}
			return &syntaxProblem{Msg: err.Error()}
		}
	case FormatScript:
		if !parsesAsPlainJS(path, data) {
			return nil
		}
		if _, err := goja.Compile(path, string(data), false); err != nil {
			return &syntaxProblem{Line: firstLine(gojaLine, err.Error()), Msg: err.Error()}
		}
	}
	return nil
}

// parsesAsPlainJS reports whether the script can be compiled by goja:
// plain JavaScript without ES module syntax.
func parsesAsPlainJS(path string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".cjs":
		return !esmMarkers.Match(data)
	default:
		return false
	}
}

func isYAMLMapping(data []byte) bool {
	var doc map[string]any
	return yaml.Unmarshal(data, &doc) == nil && len(doc) > 0
}

func firstLine(re *regexp.Regexp, msg string) int {
	m := re.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// lineAt converts a byte offset into a 1-based line number.
func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	return bytes.Count(data[:offset], []byte("\n")) + 1
}
