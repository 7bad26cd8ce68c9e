// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package drive wraps the parts of the Google Drive v3 API the copier needs.
package drive

import (
	"context"
	"errors"
	"strings"
)

// FolderMimeType marks Drive folders.
const FolderMimeType = "application/vnd.google-apps.folder"

var (
	// ErrNotFound is returned when a file or folder id does not exist or is not visible.
	ErrNotFound = errors.New("drive: not found")
)

// File is the subset of Drive file metadata used by drivecopy.
type File struct {
	ID       string
	Name     string
	MimeType string
	Parents  []string
	Trashed  bool
}

// IsFolder reports whether f is a Drive folder.
func (f File) IsFolder() bool { return f.MimeType == FolderMimeType }

// Client is the Drive surface used by the assessor and the copier.
type Client interface {
	// Get returns metadata for a single file or folder.
	Get(ctx context.Context, id string) (File, error)
	// List returns every match of q across all result pages.
	List(ctx context.Context, q Query) ([]File, error)
	// Copy creates a server-side copy of file id named name inside parent.
	Copy(ctx context.Context, id, name, parent string) (File, error)
	// CreateFolder creates an empty folder named name inside parent.
	CreateFolder(ctx context.Context, name, parent string) (File, error)
	// Parents returns the parent folder ids of id.
	Parents(ctx context.Context, id string) ([]string, error)
}

// FolderURL returns the browser URL of a folder.
func FolderURL(id string) string {
	return "https://drive.google.com/drive/folders/" + id
}

// Kind filters a listing by folder-ness.
type Kind int

const (
	KindAny Kind = iota
	KindFile
	KindFolder
)

// Query describes a children listing of one folder.
type Query struct {
	Parent         string
	Kind           Kind
	ExcludeTrashed bool
	// OrderBy is passed through to files.list, e.g. "name".
	OrderBy string
}

// String renders q in the Drive search syntax.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString(quote(q.Parent))
	b.WriteString(" in parents")
	switch q.Kind {
	case KindFile:
		b.WriteString(" and mimeType != ")
		b.WriteString(quote(FolderMimeType))
	case KindFolder:
		b.WriteString(" and mimeType = ")
		b.WriteString(quote(FolderMimeType))
	}
	if q.ExcludeTrashed {
		b.WriteString(" and trashed = false")
	}
	return b.String()
}

// Matches reports whether f satisfies q. Used by in-memory implementations.
func (q Query) Matches(f File) bool {
	if q.ExcludeTrashed && f.Trashed {
		return false
	}
	switch q.Kind {
	case KindFile:
		if f.IsFolder() {
			return false
		}
	case KindFolder:
		if !f.IsFolder() {
			return false
		}
	}
	for _, p := range f.Parents {
		if p == q.Parent {
			return true
		}
	}
	return false
}

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quote(s string) string {
	return "'" + quoteReplacer.Replace(s) + "'"
}
