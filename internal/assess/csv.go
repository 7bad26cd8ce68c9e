// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package assess

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	xglog "github.com/ManuGH/drivecopy/internal/log"
	"github.com/google/renameio/v2"
)

// WriteCSV writes report to path atomically.
func WriteCSV(ctx context.Context, path string, report Report) error {
	logger := xglog.FromContext(ctx)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending report file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending report file")
		}
	}()

	if err := Encode(pendingFile, report); err != nil {
		return fmt.Errorf("write report data: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace report file: %w", err)
	}
	return nil
}

// Encode writes report as CSV to w. Records end in CRLF, the line ending
// the reports have always had.
func Encode(w io.Writer, report Report) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(report.Header); err != nil {
		return err
	}
	for _, row := range report.Rows {
		rec := []string{row.Name, strconv.Itoa(row.Files), strconv.Itoa(row.Folders)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV loads a report written by WriteCSV.
func ReadCSV(path string) (Report, error) {
	f, err := os.Open(path) // #nosec G304 -- reports live in the configured outputs directory
	if err != nil {
		return Report{}, err
	}
	defer func() { _ = f.Close() }()

	report, err := Decode(f)
	if err != nil {
		return Report{}, fmt.Errorf("read report %s: %w", path, err)
	}
	return report, nil
}

// Decode parses a CSV report from r.
func Decode(r io.Reader) (Report, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3

	records, err := cr.ReadAll()
	if err != nil {
		return Report{}, err
	}
	if len(records) == 0 {
		return Report{}, fmt.Errorf("empty report")
	}

	report := Report{Header: records[0]}
	for i, rec := range records[1:] {
		files, err := strconv.Atoi(rec[1])
		if err != nil {
			return Report{}, fmt.Errorf("line %d: files: %w", i+2, err)
		}
		folders, err := strconv.Atoi(rec[2])
		if err != nil {
			return Report{}, fmt.Errorf("line %d: folders: %w", i+2, err)
		}
		report.Rows = append(report.Rows, Row{Name: rec[0], Counts: Counts{Files: files, Folders: folders}})
	}
	return report, nil
}
