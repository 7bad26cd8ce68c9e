// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides for file settings.
const (
	EnvLogLevel          = "DRIVECOPY_LOG_LEVEL"
	EnvOutputsDir        = "DRIVECOPY_OUTPUTS_DIR"
	EnvTokenFile         = "DRIVECOPY_TOKEN_FILE"
	EnvMaxRetries        = "DRIVECOPY_COPY_MAX_RETRIES"
	EnvConcurrency       = "DRIVECOPY_COPY_CONCURRENCY"
	EnvResume            = "DRIVECOPY_COPY_RESUME"
	EnvRequestsPerSecond = "DRIVECOPY_DRIVE_RPS"
	EnvMetricsListen     = "DRIVECOPY_METRICS_LISTEN"
	EnvTelemetryEnabled  = "DRIVECOPY_TELEMETRY_ENABLED"
	EnvTelemetryEndpoint = "DRIVECOPY_TELEMETRY_ENDPOINT"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// It does not require the Drive secrets to be present; see ResolveSecrets.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	cfg.Version = l.version

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if cfg.Drive.TokenFile == "" {
		cfg.Drive.TokenFile = filepath.Join(cfg.OutputsDir, "token.json")
	}
	if abs, err := filepath.Abs(cfg.OutputsDir); err == nil {
		cfg.OutputsDir = abs
	}

	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:   "info",
		LogService: "drivecopy",
		OutputsDir: "./outputs",
		Env: EnvNames{
			ClientIDFile:        DefaultClientIDEnv,
			SourceFolderID:      DefaultSourceFolderEnv,
			DestinationFolderID: DefaultDestinationFolderEnv,
		},
		Drive: DriveConfig{
			Scopes:            []string{ScopeDrive, ScopeDriveMetadataRead},
			PageSize:          100,
			RequestsPerSecond: 10,
			Burst:             20,
			Timeout:           30 * time.Second,
			BreakerThreshold:  5,
			BreakerReset:      30 * time.Second,
		},
		Copy: CopyConfig{
			MaxRetries:   3,
			RetryBackoff: 500 * time.Millisecond,
			Concurrency:  4,
			Resume:       true,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "http",
			SamplingRate: 1.0,
		},
		Metrics: MetricsConfig{
			Textfile: true,
		},
	}
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseFile(data)
}

func parseFile(data []byte) (*FileConfig, error) {
	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return &fc, nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &fc, nil
}

func mergeFileConfig(cfg *AppConfig, fc *FileConfig) error {
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogService != "" {
		cfg.LogService = fc.LogService
	}
	if fc.OutputsDir != "" {
		cfg.OutputsDir = fc.OutputsDir
	}

	if e := fc.Env; e != nil {
		setString(&cfg.Env.ClientIDFile, e.ClientIDFile)
		setString(&cfg.Env.SourceFolderID, e.SourceFolderID)
		setString(&cfg.Env.DestinationFolderID, e.DestinationFolderID)
	}

	if d := fc.Drive; d != nil {
		if len(d.Scopes) > 0 {
			cfg.Drive.Scopes = append([]string(nil), d.Scopes...)
		}
		setString(&cfg.Drive.TokenFile, d.TokenFile)
		setPtr(&cfg.Drive.PageSize, d.PageSize)
		setPtr(&cfg.Drive.RequestsPerSecond, d.RequestsPerSecond)
		setPtr(&cfg.Drive.Burst, d.Burst)
		setPtr(&cfg.Drive.BreakerThreshold, d.BreakerThreshold)
		if err := setDuration(&cfg.Drive.Timeout, "drive.timeout", d.Timeout); err != nil {
			return err
		}
		if err := setDuration(&cfg.Drive.BreakerReset, "drive.breakerReset", d.BreakerReset); err != nil {
			return err
		}
	}

	if c := fc.Copy; c != nil {
		setPtr(&cfg.Copy.MaxRetries, c.MaxRetries)
		setPtr(&cfg.Copy.Concurrency, c.Concurrency)
		setPtr(&cfg.Copy.Resume, c.Resume)
		setPtr(&cfg.Copy.IncludeTrashed, c.IncludeTrashed)
		if err := setDuration(&cfg.Copy.RetryBackoff, "copy.retryBackoff", c.RetryBackoff); err != nil {
			return err
		}
	}

	if t := fc.Telemetry; t != nil {
		setPtr(&cfg.Telemetry.Enabled, t.Enabled)
		setString(&cfg.Telemetry.Exporter, t.Exporter)
		setString(&cfg.Telemetry.Endpoint, t.Endpoint)
		setPtr(&cfg.Telemetry.SamplingRate, t.SamplingRate)
	}

	if m := fc.Metrics; m != nil {
		setString(&cfg.Metrics.ListenAddr, m.ListenAddr)
		setPtr(&cfg.Metrics.Textfile, m.Textfile)
	}

	if a := fc.Audit; a != nil {
		if len(a.Placeholders) > 0 {
			cfg.Audit.Placeholders = append([]string(nil), a.Placeholders...)
		}
		if len(a.SkipDirs) > 0 {
			cfg.Audit.SkipDirs = append([]string(nil), a.SkipDirs...)
		}
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.OutputsDir = l.envString(EnvOutputsDir, cfg.OutputsDir)
	cfg.Drive.TokenFile = l.envString(EnvTokenFile, cfg.Drive.TokenFile)
	cfg.Drive.RequestsPerSecond = l.envFloat(EnvRequestsPerSecond, cfg.Drive.RequestsPerSecond)
	cfg.Copy.MaxRetries = l.envInt(EnvMaxRetries, cfg.Copy.MaxRetries)
	cfg.Copy.Concurrency = l.envInt(EnvConcurrency, cfg.Copy.Concurrency)
	cfg.Copy.Resume = l.envBool(EnvResume, cfg.Copy.Resume)
	cfg.Metrics.ListenAddr = l.envString(EnvMetricsListen, cfg.Metrics.ListenAddr)
	cfg.Telemetry.Enabled = l.envBool(EnvTelemetryEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = l.envString(EnvTelemetryEndpoint, cfg.Telemetry.Endpoint)
}

// ResolveSecrets reads the client secret path and the folder ids from the
// environment variables named in cfg.Env.
func (l *Loader) ResolveSecrets(cfg *AppConfig) error {
	lookups := []struct {
		name    string
		purpose string
		dst     *string
	}{
		{cfg.Env.ClientIDFile, "Google Drive API Client ID JSON", &cfg.ClientIDFile},
		{cfg.Env.SourceFolderID, "Source folder ID", &cfg.SourceFolderID},
		{cfg.Env.DestinationFolderID, "Destination folder ID", &cfg.DestinationFolderID},
	}
	for _, lk := range lookups {
		l.ConsumedEnvKeys[lk.name] = struct{}{}
		v := strings.TrimSpace(os.Getenv(lk.name))
		if v == "" {
			return &MissingEnvError{Var: lk.name, Purpose: lk.purpose}
		}
		*lk.dst = v
	}
	return nil
}

// ResolveClientID reads only the client secret path. Used by commands that
// authenticate without touching any folder.
func (l *Loader) ResolveClientID(cfg *AppConfig) error {
	l.ConsumedEnvKeys[cfg.Env.ClientIDFile] = struct{}{}
	v := strings.TrimSpace(os.Getenv(cfg.Env.ClientIDFile))
	if v == "" {
		return &MissingEnvError{Var: cfg.Env.ClientIDFile, Purpose: "Google Drive API Client ID JSON"}
	}
	cfg.ClientIDFile = v
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, field, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, v, err)
	}
	*dst = d
	return nil
}
