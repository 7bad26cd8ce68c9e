// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestToFile_LoadsBackToSameConfig(t *testing.T) {
	cfg := Defaults()
	cfg.OutputsDir = "/var/lib/drivecopy"
	cfg.Drive.TokenFile = "/var/lib/drivecopy/token.json"
	cfg.Copy.RetryBackoff = 2 * time.Second
	cfg.Copy.IncludeTrashed = true
	cfg.Metrics.ListenAddr = "127.0.0.1:9109"
	cfg.Audit.SkipDirs = []string{"vendor"}
	cfg.ClientIDFile = "/secret/client.json"

	data, err := yaml.Marshal(ToFile(cfg))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "/secret/client.json")

	fc, err := parseFile(data)
	require.NoError(t, err)
	got := Defaults()
	require.NoError(t, mergeFileConfig(&got, fc))

	want := cfg
	want.ClientIDFile = ""
	assert.Equal(t, want, got)
}
