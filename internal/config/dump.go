// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

// ToFile converts an effective configuration back into the YAML file
// layout. Resolved secrets are not part of the file layout and are omitted.
func ToFile(cfg AppConfig) FileConfig {
	pageSize := cfg.Drive.PageSize
	rps := cfg.Drive.RequestsPerSecond
	burst := cfg.Drive.Burst
	threshold := cfg.Drive.BreakerThreshold
	maxRetries := cfg.Copy.MaxRetries
	concurrency := cfg.Copy.Concurrency
	resume := cfg.Copy.Resume
	trashed := cfg.Copy.IncludeTrashed
	telemetryEnabled := cfg.Telemetry.Enabled
	sampling := cfg.Telemetry.SamplingRate
	textfile := cfg.Metrics.Textfile

	return FileConfig{
		LogLevel:   cfg.LogLevel,
		LogService: cfg.LogService,
		OutputsDir: cfg.OutputsDir,
		Env: &EnvNamesFile{
			ClientIDFile:        cfg.Env.ClientIDFile,
			SourceFolderID:      cfg.Env.SourceFolderID,
			DestinationFolderID: cfg.Env.DestinationFolderID,
		},
		Drive: &DriveFile{
			Scopes:            append([]string(nil), cfg.Drive.Scopes...),
			TokenFile:         cfg.Drive.TokenFile,
			PageSize:          &pageSize,
			RequestsPerSecond: &rps,
			Burst:             &burst,
			Timeout:           cfg.Drive.Timeout.String(),
			BreakerThreshold:  &threshold,
			BreakerReset:      cfg.Drive.BreakerReset.String(),
		},
		Copy: &CopyFile{
			MaxRetries:     &maxRetries,
			RetryBackoff:   cfg.Copy.RetryBackoff.String(),
			Concurrency:    &concurrency,
			Resume:         &resume,
			IncludeTrashed: &trashed,
		},
		Telemetry: &TelemetryFile{
			Enabled:      &telemetryEnabled,
			Exporter:     cfg.Telemetry.Exporter,
			Endpoint:     cfg.Telemetry.Endpoint,
			SamplingRate: &sampling,
		},
		Metrics: &MetricsFile{
			ListenAddr: cfg.Metrics.ListenAddr,
			Textfile:   &textfile,
		},
		Audit: &AuditFile{
			Placeholders: append([]string(nil), cfg.Audit.Placeholders...),
			SkipDirs:     append([]string(nil), cfg.Audit.SkipDirs...),
		},
	}
}
