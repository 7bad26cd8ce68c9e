// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCLI(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}

	tests := []struct {
		name       string
		args       []string
		wantExit   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "valid minimal config",
			args:       []string{"-f", write("valid.yaml", "logLevel: debug\ncopy:\n  maxRetries: 5\n")},
			wantStdout: "is valid",
		},
		{
			name:       "invalid unknown key",
			args:       []string{"--file", write("unknown.yaml", "sourceFolder: abc\n")},
			wantExit:   1,
			wantStderr: "Configuration error",
		},
		{
			name:       "invalid type mismatch",
			args:       []string{"-f", write("type.yaml", "copy:\n  maxRetries: lots\n")},
			wantExit:   1,
			wantStderr: "Configuration error",
		},
		{
			name:       "failed validation",
			args:       []string{"-f", write("range.yaml", "drive:\n  pageSize: 5000\n")},
			wantExit:   1,
			wantStderr: "drive.pageSize",
		},
		{
			name:       "no file flag provided",
			wantExit:   2,
			wantStderr: "--file is required",
		},
		{
			name:       "non-existent file",
			args:       []string{"-f", filepath.Join(dir, "does-not-exist.yaml")},
			wantExit:   1,
			wantStderr: "Configuration error",
		},
		{
			name:     "unknown flag",
			args:     []string{"--bogus"},
			wantExit: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.wantExit, run(tt.args, &stdout, &stderr), stderr.String())
			if tt.wantStdout != "" {
				assert.Contains(t, stdout.String(), tt.wantStdout)
			}
			if tt.wantStderr != "" {
				assert.Contains(t, stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestValidateCLI_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"--version"}, &stdout, &stderr))
	assert.NotEmpty(t, stdout.String())
}
