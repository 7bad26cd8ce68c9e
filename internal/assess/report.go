// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package assess

import (
	"context"
	"fmt"

	"github.com/ManuGH/drivecopy/internal/drive"
	xglog "github.com/ManuGH/drivecopy/internal/log"
)

// Report column headers.
var (
	SummaryHeader   = []string{"Folder Name", "Number of Files", "Number of Folders"}
	BreakdownHeader = []string{"Folder Name", "Number of Files", "Number of Child Folders"}
)

// TotalRow is the name of the first breakdown row.
const TotalRow = "TOTAL"

// Row is one CSV line of a report.
type Row struct {
	Name string
	Counts
}

// Report is an assessment report: a header and its rows in output order.
type Report struct {
	Header []string
	Rows   []Row
}

// Totals returns the counts of the first row, the report's grand total.
func (r Report) Totals() Counts {
	if len(r.Rows) == 0 {
		return Counts{}
	}
	return r.Rows[0].Counts
}

// Summary builds the single-row report for a folder tree.
func Summary(ctx context.Context, client drive.Client, folderID, name string) (Report, error) {
	total, err := CountChildren(ctx, client, folderID)
	if err != nil {
		return Report{}, fmt.Errorf("summary of %s: %w", folderID, err)
	}
	return Report{
		Header: append([]string(nil), SummaryHeader...),
		Rows:   []Row{{Name: name, Counts: total}},
	}, nil
}

// Breakdown builds the per-child-folder report: a TOTAL row followed by one
// row per direct child folder, ordered by name, each with recursive counts.
func Breakdown(ctx context.Context, client drive.Client, folderID string) (Report, error) {
	logger := xglog.WithComponentFromContext(ctx, "assess")

	total, err := CountChildren(ctx, client, folderID)
	if err != nil {
		return Report{}, fmt.Errorf("breakdown of %s: %w", folderID, err)
	}
	report := Report{
		Header: append([]string(nil), BreakdownHeader...),
		Rows:   []Row{{Name: TotalRow, Counts: total}},
	}

	children, err := client.List(ctx, drive.Query{
		Parent:         folderID,
		Kind:           drive.KindFolder,
		ExcludeTrashed: true,
		OrderBy:        "name",
	})
	if err != nil {
		return Report{}, fmt.Errorf("list child folders of %s: %w", folderID, err)
	}

	for _, child := range children {
		counts, err := CountChildren(ctx, client, child.ID)
		if err != nil {
			return Report{}, err
		}
		logger.Debug().
			Str(xglog.FieldFolderID, child.ID).
			Str(xglog.FieldName, child.Name).
			Int(xglog.FieldFiles, counts.Files).
			Int(xglog.FieldFolders, counts.Folders).
			Msg("counted child folder")
		report.Rows = append(report.Rows, Row{Name: child.Name, Counts: counts})
	}
	return report, nil
}
