// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package assess counts the contents of Drive folder trees, renders the
// assessment reports and compares them.
package assess

import (
	"context"
	"fmt"

	"github.com/ManuGH/drivecopy/internal/drive"
)

// Counts holds file and folder totals.
type Counts struct {
	Files   int `json:"files"`
	Folders int `json:"folders"`
}

// Add returns the element-wise sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{Files: c.Files + o.Files, Folders: c.Folders + o.Folders}
}

// CountChildren recursively counts the non-trashed files and folders below
// folderID. Each descendant folder counts once, the root itself does not.
func CountChildren(ctx context.Context, client drive.Client, folderID string) (Counts, error) {
	items, err := client.List(ctx, drive.Query{Parent: folderID, ExcludeTrashed: true})
	if err != nil {
		return Counts{}, fmt.Errorf("list children of %s: %w", folderID, err)
	}

	var total Counts
	for _, item := range items {
		if !item.IsFolder() {
			total.Files++
			continue
		}
		sub, err := CountChildren(ctx, client, item.ID)
		if err != nil {
			return Counts{}, err
		}
		total = total.Add(sub)
		total.Folders++
	}
	return total, nil
}

// CountDirect counts the direct non-trashed children of folderID.
func CountDirect(ctx context.Context, client drive.Client, folderID string) (Counts, error) {
	files, err := client.List(ctx, drive.Query{Parent: folderID, Kind: drive.KindFile, ExcludeTrashed: true})
	if err != nil {
		return Counts{}, fmt.Errorf("list files of %s: %w", folderID, err)
	}
	folders, err := client.List(ctx, drive.Query{Parent: folderID, Kind: drive.KindFolder, ExcludeTrashed: true})
	if err != nil {
		return Counts{}, fmt.Errorf("list folders of %s: %w", folderID, err)
	}
	return Counts{Files: len(files), Folders: len(folders)}, nil
}
