// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Validate checks the settings that do not depend on the environment secrets.
func Validate(cfg AppConfig) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		add("logLevel: %q is not a valid level", cfg.LogLevel)
	}
	if strings.TrimSpace(cfg.OutputsDir) == "" {
		add("outputsDir must not be empty")
	}
	if cfg.Env.ClientIDFile == "" || cfg.Env.SourceFolderID == "" || cfg.Env.DestinationFolderID == "" {
		add("env: all environment variable names must be set")
	}
	if len(cfg.Drive.Scopes) == 0 {
		add("drive.scopes must list at least one scope")
	}
	if cfg.Drive.PageSize <= 0 || cfg.Drive.PageSize > 1000 {
		add("drive.pageSize must be in [1, 1000], got %d", cfg.Drive.PageSize)
	}
	if cfg.Drive.RequestsPerSecond <= 0 {
		add("drive.requestsPerSecond must be positive")
	}
	if cfg.Drive.Burst <= 0 {
		add("drive.burst must be positive")
	}
	if cfg.Drive.Timeout <= 0 {
		add("drive.timeout must be positive")
	}
	if cfg.Drive.BreakerThreshold <= 0 {
		add("drive.breakerThreshold must be positive")
	}
	if cfg.Copy.MaxRetries < 0 {
		add("copy.maxRetries must not be negative")
	}
	if cfg.Copy.Concurrency <= 0 {
		add("copy.concurrency must be positive")
	}
	if cfg.Copy.RetryBackoff < 0 {
		add("copy.retryBackoff must not be negative")
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		add("telemetry.samplingRate must be in [0, 1]")
	}
	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.Exporter {
		case "grpc", "http":
		default:
			add("telemetry.exporter must be grpc or http, got %q", cfg.Telemetry.Exporter)
		}
		if cfg.Telemetry.Endpoint == "" {
			add("telemetry.endpoint is required when telemetry is enabled")
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ValidateRun checks the resolved secrets needed to copy between two folders.
func ValidateRun(cfg AppConfig) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	var problems []string
	if cfg.SourceFolderID == cfg.DestinationFolderID {
		problems = append(problems, "source and destination folder ids must differ")
	}
	if st, err := os.Stat(cfg.ClientIDFile); err != nil {
		problems = append(problems, fmt.Sprintf("client id file %s: %v", cfg.ClientIDFile, err))
	} else if st.IsDir() {
		problems = append(problems, fmt.Sprintf("client id file %s is a directory", cfg.ClientIDFile))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
