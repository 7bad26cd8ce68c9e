// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package copier recursively copies the contents of a Drive folder into
// another folder, preserving structure.
package copier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/drivecopy/internal/drive"
	xglog "github.com/ManuGH/drivecopy/internal/log"
	"github.com/ManuGH/drivecopy/internal/manifest"
	"github.com/ManuGH/drivecopy/internal/metrics"
	"github.com/ManuGH/drivecopy/internal/resilience"
	"golang.org/x/sync/errgroup"
)

// Manifest remembers copied items across runs.
type Manifest interface {
	Lookup(ctx context.Context, sourceID string) (manifest.Entry, bool, error)
	Record(ctx context.Context, e manifest.Entry) error
}

// Options tunes a Copier.
type Options struct {
	// MaxRetries is the number of copy attempts per file, including the first.
	MaxRetries     int
	RetryBackoff   time.Duration
	Concurrency    int
	IncludeTrashed bool
	// Manifest enables resume. Nil copies everything.
	Manifest Manifest
}

// Failure describes an item that could not be copied.
type Failure struct {
	SourceID string        `json:"source_id"`
	Name     string        `json:"name"`
	Kind     manifest.Kind `json:"kind"`
	Err      error         `json:"-"`
}

// MarshalJSON renders Err as its message.
func (f Failure) MarshalJSON() ([]byte, error) {
	type plain Failure
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain(f), msg})
}

// Result summarises a copy.
type Result struct {
	FilesCopied    int       `json:"files_copied"`
	FilesSkipped   int       `json:"files_skipped"`
	FilesFailed    int       `json:"files_failed"`
	FoldersCreated int       `json:"folders_created"`
	FoldersReused  int       `json:"folders_reused"`
	Failures       []Failure `json:"failures,omitempty"`
}

// Copier copies folder trees through a drive.Client.
type Copier struct {
	client drive.Client
	opts   Options

	mu     sync.Mutex
	result Result
}

// New returns a Copier. Zero options fall back to one attempt and a concurrency of one.
func New(client drive.Client, opts Options) *Copier {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Copier{client: client, opts: opts}
}

// Copy copies every child of srcID into dstID. Individual file failures are
// recorded in the Result and do not stop the copy; a failed listing of the
// root folder or a canceled context does.
func (c *Copier) Copy(ctx context.Context, srcID, dstID string) (Result, error) {
	c.mu.Lock()
	c.result = Result{}
	c.mu.Unlock()

	err := c.copyFolder(ctx, srcID, dstID)

	c.mu.Lock()
	res := c.result
	res.Failures = append([]Failure(nil), c.result.Failures...)
	c.mu.Unlock()

	if err != nil {
		return res, err
	}
	return res, ctx.Err()
}

func (c *Copier) copyFolder(ctx context.Context, srcID, dstID string) error {
	logger := xglog.WithComponentFromContext(ctx, "copier")

	files, err := c.client.List(ctx, drive.Query{Parent: srcID, Kind: drive.KindFile, ExcludeTrashed: !c.opts.IncludeTrashed})
	if err != nil {
		return fmt.Errorf("list files of %s: %w", srcID, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for _, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return c.copyFile(gctx, f, dstID)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	folders, err := c.client.List(ctx, drive.Query{Parent: srcID, Kind: drive.KindFolder, ExcludeTrashed: !c.opts.IncludeTrashed, OrderBy: "name"})
	if err != nil {
		return fmt.Errorf("list folders of %s: %w", srcID, err)
	}

	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return err
		}
		newID, ok, err := c.ensureFolder(ctx, folder, dstID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := c.copyFolder(ctx, folder.ID, newID); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			logger.Error().Err(err).Str(xglog.FieldFolderID, folder.ID).Str(xglog.FieldName, folder.Name).Msg("skipping folder that could not be listed")
			c.fail(Failure{SourceID: folder.ID, Name: folder.Name, Kind: manifest.KindFolder, Err: err})
		}
	}
	return nil
}

// ensureFolder returns the destination folder for src, creating it unless
// the manifest already knows it. ok is false when creation failed.
func (c *Copier) ensureFolder(ctx context.Context, src drive.File, dstParent string) (string, bool, error) {
	logger := xglog.WithComponentFromContext(ctx, "copier")

	if c.opts.Manifest != nil {
		e, found, err := c.opts.Manifest.Lookup(ctx, src.ID)
		if err != nil {
			logger.Warn().Err(err).Str(xglog.FieldFolderID, src.ID).Msg("manifest lookup failed")
		} else if found {
			c.update(func(r *Result) { r.FoldersReused++ })
			metrics.RecordCopyItem("folder", "reused")
			return e.DestID, true, nil
		}
	}

	created, err := resilience.Retry(ctx, c.policy(ctx, src), func(ctx context.Context) (drive.File, error) {
		return c.client.CreateFolder(ctx, src.Name, dstParent)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, ctxErr
		}
		c.reportFailure(ctx, src, manifest.KindFolder, err)
		return "", false, nil
	}

	c.remember(ctx, src, created.ID, manifest.KindFolder)
	c.update(func(r *Result) { r.FoldersCreated++ })
	metrics.RecordCopyItem("folder", "created")
	logger.Debug().Str(xglog.FieldFolderID, src.ID).Str(xglog.FieldName, src.Name).Str("dest_id", created.ID).Msg("created folder")
	return created.ID, true, nil
}

func (c *Copier) copyFile(ctx context.Context, f drive.File, dstID string) error {
	logger := xglog.WithComponentFromContext(ctx, "copier")

	if c.opts.Manifest != nil {
		_, found, err := c.opts.Manifest.Lookup(ctx, f.ID)
		if err != nil {
			logger.Warn().Err(err).Str(xglog.FieldFileID, f.ID).Msg("manifest lookup failed")
		} else if found {
			c.update(func(r *Result) { r.FilesSkipped++ })
			metrics.RecordCopyItem("file", "skipped")
			return nil
		}
	}

	copied, err := resilience.Retry(ctx, c.policy(ctx, f), func(ctx context.Context) (drive.File, error) {
		metrics.IncCopyAttempt()
		return c.client.Copy(ctx, f.ID, f.Name, dstID)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.reportFailure(ctx, f, manifest.KindFile, err)
		return nil
	}

	c.remember(ctx, f, copied.ID, manifest.KindFile)
	c.update(func(r *Result) { r.FilesCopied++ })
	metrics.RecordCopyItem("file", "copied")
	logger.Debug().Str(xglog.FieldFileID, f.ID).Str(xglog.FieldName, f.Name).Msg("copied file")
	return nil
}

func (c *Copier) policy(ctx context.Context, item drive.File) resilience.RetryPolicy {
	logger := xglog.WithComponentFromContext(ctx, "copier")
	attempts := c.opts.MaxRetries
	return resilience.RetryPolicy{
		MaxAttempts:     attempts,
		InitialInterval: c.opts.RetryBackoff,
		Retryable: func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) &&
				!errors.Is(err, resilience.ErrCircuitOpen)
		},
		OnRetry: func(attempt int, err error, _ time.Duration) {
			logger.Error().
				Err(err).
				Str(xglog.FieldFileID, item.ID).
				Int(xglog.FieldAttempt, attempt).
				Msgf("Error copying file %s, retrying... (%d/%d)", item.Name, attempt, attempts)
		},
	}
}

// reportFailure logs the parent folder URLs of the failed item followed by
// the COPY FAILED line and records the failure.
func (c *Copier) reportFailure(ctx context.Context, item drive.File, kind manifest.Kind, cause error) {
	logger := xglog.WithComponentFromContext(ctx, "copier")

	parents, err := c.client.Parents(ctx, item.ID)
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldFileID, item.ID).Msgf("ERROR-PARENT: %v", err)
	}
	for _, p := range parents {
		url := drive.FolderURL(p)
		logger.Error().Str(xglog.FieldParentID, p).Str(xglog.FieldURL, url).Msgf("Folder URL: %s", url)
	}
	logger.Error().
		Str(xglog.FieldFileID, item.ID).
		Int(xglog.FieldAttempt, c.opts.MaxRetries).
		Msgf("COPY FAILED: %s: %v", item.Name, cause)

	metrics.RecordCopyItem(string(kind), "failed")
	c.fail(Failure{SourceID: item.ID, Name: item.Name, Kind: kind, Err: cause})
}

func (c *Copier) remember(ctx context.Context, item drive.File, destID string, kind manifest.Kind) {
	if c.opts.Manifest == nil {
		return
	}
	err := c.opts.Manifest.Record(ctx, manifest.Entry{SourceID: item.ID, DestID: destID, Kind: kind, Name: item.Name})
	if err != nil {
		logger := xglog.WithComponentFromContext(ctx, "copier")
		logger.Warn().Err(err).Str(xglog.FieldFileID, item.ID).Msg("manifest record failed")
	}
}

func (c *Copier) fail(f Failure) {
	c.update(func(r *Result) {
		if f.Kind == manifest.KindFile {
			r.FilesFailed++
		}
		r.Failures = append(r.Failures, f)
	})
}

func (c *Copier) update(fn func(*Result)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.result)
}
