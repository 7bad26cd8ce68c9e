// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package drivetest provides an in-memory drive.Client for tests.
package drivetest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/ManuGH/drivecopy/internal/drive"
)

// ErrInjected is the default error returned by injected failures.
var ErrInjected = errors.New("drivetest: injected failure")

// Fake is a concurrency-safe in-memory Drive tree.
type Fake struct {
	mu     sync.Mutex
	files  map[string]*drive.File
	order  []string
	nextID int

	// copyFailures maps a source id to the number of failing copy calls left; -1 fails forever.
	copyFailures map[string]int
	copyErr      error
	getFailures  map[string]error
	listErr      map[string]error

	Calls map[string]int
}

var _ drive.Client = (*Fake)(nil)

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		files:        make(map[string]*drive.File),
		copyFailures: make(map[string]int),
		getFailures:  make(map[string]error),
		listErr:      make(map[string]error),
		Calls:        make(map[string]int),
		copyErr:      ErrInjected,
	}
}

// AddFolder adds a folder with a fixed id under parent ("" for a root).
func (f *Fake) AddFolder(id, name, parent string) *Fake {
	return f.add(drive.File{ID: id, Name: name, MimeType: drive.FolderMimeType}, parent)
}

// AddFile adds a regular file with a fixed id under parent.
func (f *Fake) AddFile(id, name, parent string) *Fake {
	return f.add(drive.File{ID: id, Name: name, MimeType: "text/plain"}, parent)
}

// AddTrashed adds a trashed regular file under parent.
func (f *Fake) AddTrashed(id, name, parent string) *Fake {
	return f.add(drive.File{ID: id, Name: name, MimeType: "text/plain", Trashed: true}, parent)
}

func (f *Fake) add(file drive.File, parent string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if parent != "" {
		file.Parents = []string{parent}
	}
	f.files[file.ID] = &file
	f.order = append(f.order, file.ID)
	return f
}

// FailCopy makes the next n copy calls of id fail; n < 0 fails every call.
func (f *Fake) FailCopy(id string, n int) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copyFailures[id] = n
	return f
}

// SetCopyError overrides the error returned by injected copy failures.
func (f *Fake) SetCopyError(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copyErr = err
	return f
}

// FailGet makes every Get of id return err.
func (f *Fake) FailGet(id string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getFailures[id] = err
	return f
}

// FailList makes every listing of parent return err.
func (f *Fake) FailList(parent string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr[parent] = err
	return f
}

// CallCount returns how often op was invoked.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

// Children returns the non-trashed children of parent ordered by name.
func (f *Fake) Children(parent string) []drive.File {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.listLocked(drive.Query{Parent: parent, ExcludeTrashed: true, OrderBy: "name"})
	return out
}

// Get implements drive.Client.
func (f *Fake) Get(ctx context.Context, id string) (drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["get"]++
	if err := ctx.Err(); err != nil {
		return drive.File{}, err
	}
	if err, ok := f.getFailures[id]; ok {
		return drive.File{}, err
	}
	file, ok := f.files[id]
	if !ok {
		return drive.File{}, fmt.Errorf("get %s: %w", id, drive.ErrNotFound)
	}
	return clone(*file), nil
}

// Parents implements drive.Client.
func (f *Fake) Parents(ctx context.Context, id string) ([]string, error) {
	file, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return file.Parents, nil
}

// List implements drive.Client.
func (f *Fake) List(ctx context.Context, q drive.Query) ([]drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["list"]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.listErr[q.Parent]; ok {
		return nil, err
	}
	return f.listLocked(q), nil
}

func (f *Fake) listLocked(q drive.Query) []drive.File {
	var out []drive.File
	for _, id := range f.order {
		file := f.files[id]
		if q.Matches(*file) {
			out = append(out, clone(*file))
		}
	}
	if q.OrderBy == "name" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}
	return out
}

// Copy implements drive.Client.
func (f *Fake) Copy(ctx context.Context, id, name, parent string) (drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["copy"]++
	if err := ctx.Err(); err != nil {
		return drive.File{}, err
	}
	if n, ok := f.copyFailures[id]; ok && n != 0 {
		if n > 0 {
			f.copyFailures[id] = n - 1
		}
		return drive.File{}, f.copyErr
	}
	src, ok := f.files[id]
	if !ok {
		return drive.File{}, fmt.Errorf("copy %s: %w", id, drive.ErrNotFound)
	}
	if _, ok := f.files[parent]; !ok {
		return drive.File{}, fmt.Errorf("copy into %s: %w", parent, drive.ErrNotFound)
	}
	dup := drive.File{ID: f.newIDLocked(), Name: name, MimeType: src.MimeType, Parents: []string{parent}}
	f.files[dup.ID] = &dup
	f.order = append(f.order, dup.ID)
	return clone(dup), nil
}

// CreateFolder implements drive.Client.
func (f *Fake) CreateFolder(ctx context.Context, name, parent string) (drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls["create"]++
	if err := ctx.Err(); err != nil {
		return drive.File{}, err
	}
	if _, ok := f.files[parent]; !ok {
		return drive.File{}, fmt.Errorf("create in %s: %w", parent, drive.ErrNotFound)
	}
	folder := drive.File{ID: f.newIDLocked(), Name: name, MimeType: drive.FolderMimeType, Parents: []string{parent}}
	f.files[folder.ID] = &folder
	f.order = append(f.order, folder.ID)
	return clone(folder), nil
}

func (f *Fake) newIDLocked() string {
	f.nextID++
	return "gen-" + strconv.Itoa(f.nextID)
}

func clone(file drive.File) drive.File {
	file.Parents = append([]string(nil), file.Parents...)
	return file
}
