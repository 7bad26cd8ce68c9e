// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jobs

import (
	"errors"
	"io"
	"path/filepath"
	"time"

	"github.com/ManuGH/drivecopy/internal/assess"
	"github.com/ManuGH/drivecopy/internal/config"
	"github.com/ManuGH/drivecopy/internal/copier"
	"github.com/ManuGH/drivecopy/internal/drive"
	"github.com/google/uuid"
)

// Report and state file names inside the outputs directory.
const (
	SummaryReport     = "assessment-1.csv"
	SourceReport      = "assessment-2.csv"
	DestinationReport = "assessment-3.csv"
	ManifestFile      = "manifest.db"
	StatusFile        = "status.json"
)

// Folder names used when a root folder cannot be looked up.
const (
	UnknownSource      = "Unknown Source Folder"
	UnknownDestination = "Unknown Destination Folder"
)

// ScriptCompletedMsg is printed when a run reaches its end.
const ScriptCompletedMsg = "SCRIPT COMPLETED!"

// ErrValidationFailed is returned by Run when the copy finished but the
// source and destination reports differ.
var ErrValidationFailed = errors.New("validation failed: source and destination counts differ")

// Config holds the settings of a single run.
type Config struct {
	OutputsDir          string
	SourceFolderID      string
	DestinationFolderID string

	MaxRetries     int
	RetryBackoff   time.Duration
	Concurrency    int
	IncludeTrashed bool

	// Resume records copied items in a manifest so an interrupted run can continue.
	Resume bool
}

// ConfigFromApp derives the run settings from the application configuration.
func ConfigFromApp(cfg config.AppConfig) Config {
	return Config{
		OutputsDir:          cfg.OutputsDir,
		SourceFolderID:      cfg.SourceFolderID,
		DestinationFolderID: cfg.DestinationFolderID,
		MaxRetries:          cfg.Copy.MaxRetries,
		RetryBackoff:        cfg.Copy.RetryBackoff,
		Concurrency:         cfg.Copy.Concurrency,
		IncludeTrashed:      cfg.Copy.IncludeTrashed,
		Resume:              cfg.Copy.Resume,
	}
}

func (c Config) path(name string) string {
	return filepath.Join(c.OutputsDir, name)
}

// Deps holds the collaborators of a run.
type Deps struct {
	Client drive.Client
	// Out receives the console lines of the run; nil discards them.
	Out      io.Writer
	Clock    func() time.Time
	NewRunID func() string
}

func (d Deps) withDefaults() Deps {
	if d.Out == nil {
		d.Out = io.Discard
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.NewRunID == nil {
		d.NewRunID = func() string { return uuid.NewString() }
	}
	return d
}

// Status describes a finished or failed run.
type Status struct {
	RunID      string    `json:"run_id"`
	Operation  string    `json:"operation"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`

	SourceName      string `json:"source_name,omitempty"`
	DestinationName string `json:"destination_name,omitempty"`

	Source      assess.Counts `json:"source"`
	Destination assess.Counts `json:"destination"`
	Reports     []string      `json:"reports,omitempty"`

	Copy *copier.Result `json:"copy,omitempty"`

	// Validated is true when the source and destination reports matched.
	Validated bool   `json:"validated"`
	Diff      string `json:"diff,omitempty"`

	Stage string `json:"failed_stage,omitempty"`
	Error string `json:"error,omitempty"`
}

// Duration returns the wall time of the run.
func (s *Status) Duration() time.Duration {
	return time.Duration(s.DurationMS) * time.Millisecond
}

func (s *Status) finish(now time.Time) {
	s.FinishedAt = now
	s.DurationMS = now.Sub(s.StartedAt).Milliseconds()
}
