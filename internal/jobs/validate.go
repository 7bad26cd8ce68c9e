// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jobs

import (
	"errors"
	"fmt"
	"strings"
)

// maxConcurrency bounds parallel file copies per folder.
const maxConcurrency = 32

// validateConfig checks the settings every operation needs.
func validateConfig(cfg Config, needDestination bool) error {
	var errs []error
	if strings.TrimSpace(cfg.OutputsDir) == "" {
		errs = append(errs, errors.New("outputs directory is required"))
	}
	if strings.TrimSpace(cfg.SourceFolderID) == "" {
		errs = append(errs, errors.New("source folder id is required"))
	}
	if needDestination {
		if strings.TrimSpace(cfg.DestinationFolderID) == "" {
			errs = append(errs, errors.New("destination folder id is required"))
		} else if cfg.DestinationFolderID == cfg.SourceFolderID {
			errs = append(errs, fmt.Errorf("source and destination folder are the same (%s)", cfg.SourceFolderID))
		}
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must not be negative, got %d", cfg.MaxRetries))
	}
	return errors.Join(errs...)
}

// clampConcurrency ensures concurrency is within sane bounds [1, maxVal]
func clampConcurrency(value, defaultValue, maxVal int) int {
	if value < 1 {
		if defaultValue < 1 {
			return 1
		}
		return defaultValue
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
