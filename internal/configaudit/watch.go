// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package configaudit

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	xglog "github.com/ManuGH/drivecopy/internal/log"
	"github.com/fsnotify/fsnotify"
)

// debounce coalesces bursts of events from editors that write in several steps.
const debounce = 200 * time.Millisecond

// Watch runs Auditor.Watch with the default options.
func Watch(ctx context.Context, paths []string, fn func(Report)) error {
	return New(Options{}).Watch(ctx, paths, fn)
}

// Watch audits paths once, then again after every change to a watched
// configuration file, passing each report to fn. It returns when ctx is done.
func (a *Auditor) Watch(ctx context.Context, paths []string, fn func(Report)) error {
	logger := xglog.WithComponentFromContext(ctx, "configaudit")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// Named files are matched exactly; their parent directories are watched
	// so atomic-rename saves are seen.
	explicit := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		if !info.IsDir() {
			explicit[abs] = true
			if err := watcher.Add(filepath.Dir(abs)); err != nil {
				return fmt.Errorf("watch directory %s: %w", filepath.Dir(abs), err)
			}
			continue
		}
		if err := a.addTree(watcher, abs); err != nil {
			return err
		}
	}

	run := func() {
		report, err := a.Audit(ctx, paths...)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn().Err(err).Msg("configuration audit failed")
			}
			return
		}
		fn(report)
	}
	run()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher channel closed")
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !a.skip[filepath.Base(event.Name)] {
					if err := a.addTree(watcher, event.Name); err != nil {
						logger.Warn().Err(err).Str(xglog.FieldPath, event.Name).Msg("cannot watch new directory")
					}
					continue
				}
			}
			if !explicit[event.Name] && !a.Recognized(event.Name) {
				continue
			}
			logger.Debug().Str(xglog.FieldPath, event.Name).Str("op", event.Op.String()).Msg("configuration changed")
			timer.Reset(debounce)
		case <-timer.C:
			run()
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			logger.Warn().Err(err).Msg("fsnotify watcher error")
		}
	}
}

// addTree watches root and every non-skipped directory below it.
func (a *Auditor) addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && a.skip[d.Name()] {
			return fs.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch directory %s: %w", path, err)
		}
		return nil
	})
}
