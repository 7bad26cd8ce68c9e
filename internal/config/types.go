// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "time"

// Default environment variable names holding secrets and folder ids.
const (
	DefaultClientIDEnv          = "GOOGLE_DRIVE_CLIENT_ID_FILE"
	DefaultSourceFolderEnv      = "GOOGLE_DRIVE_SOURCE_FOLDER_ID"
	DefaultDestinationFolderEnv = "GOOGLE_DRIVE_DESTINATION_FOLDER_ID"
)

// Drive OAuth scopes requested by default.
const (
	ScopeDrive             = "https://www.googleapis.com/auth/drive"
	ScopeDriveMetadataRead = "https://www.googleapis.com/auth/drive.metadata.readonly"
)

// AppConfig is the effective, fully resolved configuration.
type AppConfig struct {
	Version    string
	LogLevel   string
	LogService string
	OutputsDir string

	Env EnvNames

	// Resolved from the environment variables named in Env.
	ClientIDFile        string
	SourceFolderID      string
	DestinationFolderID string

	Drive     DriveConfig
	Copy      CopyConfig
	Telemetry TelemetryConfig
	Metrics   MetricsConfig
	Audit     AuditConfig
}

// EnvNames holds the names of the environment variables to read secrets from.
type EnvNames struct {
	ClientIDFile        string
	SourceFolderID      string
	DestinationFolderID string
}

// DriveConfig controls the Drive API client.
type DriveConfig struct {
	Scopes            []string
	TokenFile         string
	PageSize          int64
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	BreakerThreshold  int
	BreakerReset      time.Duration
}

// CopyConfig controls the recursive copy.
type CopyConfig struct {
	MaxRetries     int
	RetryBackoff   time.Duration
	Concurrency    int
	Resume         bool
	IncludeTrashed bool
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
}

// MetricsConfig controls Prometheus exposition.
type MetricsConfig struct {
	ListenAddr string
	Textfile   bool
}

// AuditConfig controls the tool-configuration audit.
type AuditConfig struct {
	Placeholders []string
	SkipDirs     []string
}

// FileConfig mirrors the YAML file layout. Pointers distinguish "unset" from zero values.
type FileConfig struct {
	LogLevel   string `yaml:"logLevel,omitempty"`
	LogService string `yaml:"logService,omitempty"`
	OutputsDir string `yaml:"outputsDir,omitempty"`

	Env       *EnvNamesFile  `yaml:"env,omitempty"`
	Drive     *DriveFile     `yaml:"drive,omitempty"`
	Copy      *CopyFile      `yaml:"copy,omitempty"`
	Telemetry *TelemetryFile `yaml:"telemetry,omitempty"`
	Metrics   *MetricsFile   `yaml:"metrics,omitempty"`
	Audit     *AuditFile     `yaml:"audit,omitempty"`
}

type EnvNamesFile struct {
	ClientIDFile        string `yaml:"clientIdFile,omitempty"`
	SourceFolderID      string `yaml:"sourceFolderId,omitempty"`
	DestinationFolderID string `yaml:"destinationFolderId,omitempty"`
}

type DriveFile struct {
	Scopes            []string `yaml:"scopes,omitempty"`
	TokenFile         string   `yaml:"tokenFile,omitempty"`
	PageSize          *int64   `yaml:"pageSize,omitempty"`
	RequestsPerSecond *float64 `yaml:"requestsPerSecond,omitempty"`
	Burst             *int     `yaml:"burst,omitempty"`
	Timeout           string   `yaml:"timeout,omitempty"`
	BreakerThreshold  *int     `yaml:"breakerThreshold,omitempty"`
	BreakerReset      string   `yaml:"breakerReset,omitempty"`
}

type CopyFile struct {
	MaxRetries     *int   `yaml:"maxRetries,omitempty"`
	RetryBackoff   string `yaml:"retryBackoff,omitempty"`
	Concurrency    *int   `yaml:"concurrency,omitempty"`
	Resume         *bool  `yaml:"resume,omitempty"`
	IncludeTrashed *bool  `yaml:"includeTrashed,omitempty"`
}

type TelemetryFile struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}

type MetricsFile struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
	Textfile   *bool  `yaml:"textfile,omitempty"`
}

type AuditFile struct {
	Placeholders []string `yaml:"placeholders,omitempty"`
	SkipDirs     []string `yaml:"skipDirs,omitempty"`
}
