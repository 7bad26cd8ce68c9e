// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	xglog "github.com/ManuGH/drivecopy/internal/log"
	"github.com/google/renameio/v2"
)

// writeStatus persists st as JSON using renameio so readers never see a
// partially written file.
func writeStatus(ctx context.Context, path string, st *Status) error {
	logger := xglog.FromContext(ctx)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create status directory: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending status file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending status file")
		}
	}()

	enc := json.NewEncoder(pendingFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("write status data: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace status file: %w", err)
	}
	return nil
}

// ReadStatus loads the status written by the last run in outputsDir.
func ReadStatus(outputsDir string) (*Status, error) {
	data, err := os.ReadFile(filepath.Join(outputsDir, StatusFile)) // #nosec G304 -- fixed name below the configured outputs directory
	if err != nil {
		return nil, err
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode %s: %w", StatusFile, err)
	}
	return &st, nil
}
