// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package configaudit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseINI(t *testing.T) {
	data := []byte(`# leading comment
; another comment
[pytest]
addopts = -v --cov=./ ; inline
python_files: test_*.py *_test.py

[coverage:report]
fail_under = 80 # TODO: VALUE_NEEDED
exclude_lines =
    pragma: no cover
    # indented comment
    raise NotImplementedError
`)

	f, err := ParseINI(data)
	require.NoError(t, err)
	require.Len(t, f.Sections, 2)

	pytest, ok := f.Section("PYTEST")
	require.True(t, ok)
	assert.Equal(t, 3, pytest.Line)

	addopts, ok := pytest.Get("addopts")
	require.True(t, ok)
	assert.Equal(t, "-v --cov=./", addopts.Value)
	assert.Equal(t, 4, addopts.Line)

	files, ok := pytest.Get("python_files")
	require.True(t, ok)
	assert.Equal(t, "test_*.py *_test.py", files.Value)

	report, ok := f.Section("coverage:report")
	require.True(t, ok)
	failUnder, _ := report.Get("fail_under")
	assert.Equal(t, "80", failUnder.Value)

	lines, _ := report.Get("exclude_lines")
	assert.Equal(t, "pragma: no cover\nraise NotImplementedError", lines.Value)
}

func TestParseINI_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		line int
	}{
		{name: "key before section", data: "# c\nkey = value\n", line: 2},
		{name: "malformed header", data: "[section\nkey = 1\n", line: 1},
		{name: "missing separator", data: "[s]\nkey = 1\njust words\n", line: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseINI([]byte(tt.data))
			require.Error(t, err)
			var se *SyntaxError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.line, se.Line)
		})
	}
}

func TestStripInlineComment(t *testing.T) {
	assert.Equal(t, "80", stripInlineComment("80 # TODO"))
	assert.Equal(t, "a;b", stripInlineComment("a;b"))
	assert.Equal(t, "url#frag", stripInlineComment("url#frag"))
	assert.Equal(t, "x", stripInlineComment("x\t; note"))
}
