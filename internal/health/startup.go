// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ManuGH/drivecopy/internal/config"
	"github.com/ManuGH/drivecopy/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the local environment before any Drive call is made.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponentFromContext(ctx, "startup-check")
	logger.Debug().Msg("running pre-flight startup checks")

	if err := checkOutputsDir(logger, cfg.OutputsDir); err != nil {
		return fmt.Errorf("outputs directory check failed: %w", err)
	}

	if err := checkListenAddr(logger, cfg.Metrics.ListenAddr); err != nil {
		return fmt.Errorf("metrics listen address check failed: %w", err)
	}

	if cfg.ClientIDFile != "" {
		if err := checkFileReadable(cfg.ClientIDFile); err != nil {
			return fmt.Errorf("client id file check failed: %w", err)
		}
		logger.Debug().Str(log.FieldPath, cfg.ClientIDFile).Msg("client id file is readable")
	}

	logger.Debug().Msg("all startup checks passed")
	return nil
}

// checkOutputsDir creates the outputs directory if needed and verifies it is writable.
func checkOutputsDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Debug().Str(log.FieldPath, path).Msg("outputs directory is writable")
	return nil
}

func checkListenAddr(logger zerolog.Logger, addr string) error {
	if addr == "" {
		return nil
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	logger.Debug().Str("addr", addr).Msg("metrics listen address is valid")
	return nil
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- operator-configured secret path
	if err != nil {
		return err
	}
	return f.Close()
}
