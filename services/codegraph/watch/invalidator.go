// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch invalidates cache entries when watched repositories change
// on disk. Source edits change the derived cache key anyway (dirty-status
// hash), but invalidation also frees the memory held by the stale graph
// instead of waiting out its TTL.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long to wait for the change burst to settle
// before invalidating. Editors write files in flurries.
const DefaultDebounce = 500 * time.Millisecond

// ignoredDirs are never watched.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".idea":        true,
	"__pycache__":  true,
}

// InvalidateFunc is called once per settled change burst.
type InvalidateFunc func()

// Invalidator watches one repository directory and fires a debounced
// invalidation callback when source files change.
//
// Thread Safety:
//
//	Safe for concurrent use. The callback runs on a single goroutine.
type Invalidator struct {
	root     string
	watcher  *fsnotify.Watcher
	onChange InvalidateFunc
	debounce time.Duration
	logger   *slog.Logger

	stopOnce sync.Once
	done     chan struct{}
}

// NewInvalidator creates an invalidator for root. The callback typically
// closes over a store key: func() { store.Invalidate(key) }.
func NewInvalidator(root string, onChange InvalidateFunc, debounce time.Duration, logger *slog.Logger) (*Invalidator, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Invalidator{
		root:     root,
		watcher:  watcher,
		onChange: onChange,
		debounce: debounce,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching root and all subdirectories. Returns after the
// watches are registered; events are processed on a background goroutine
// until Stop is called or ctx is canceled.
func (inv *Invalidator) Start(ctx context.Context) error {
	if err := inv.addRecursive(inv.root); err != nil {
		inv.watcher.Close()
		return err
	}
	go inv.loop(ctx)
	return nil
}

// Stop ends watching. Safe to call more than once.
func (inv *Invalidator) Stop() {
	inv.stopOnce.Do(func() {
		close(inv.done)
		inv.watcher.Close()
	})
}

// addRecursive registers watches for root and every non-ignored subdirectory.
func (inv *Invalidator) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (ignoredDirs[name] || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		return inv.watcher.Add(path)
	})
}

// loop coalesces events with a debounce timer and fires the callback once
// per settled burst.
func (inv *Invalidator) loop(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			inv.Stop()
			return
		case <-inv.done:
			return

		case event, ok := <-inv.watcher.Events:
			if !ok {
				return
			}
			// New directories need watches of their own.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					inv.maybeWatchDir(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(inv.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(inv.debounce)
			}

		case err, ok := <-inv.watcher.Errors:
			if !ok {
				return
			}
			inv.logger.Warn("file watcher error", "root", inv.root, "error", err)

		case <-fire:
			timer = nil
			fire = nil
			inv.logger.Debug("repository changed, invalidating", "root", inv.root)
			inv.onChange()
		}
	}
}

// maybeWatchDir adds a watch if path is a non-ignored directory.
func (inv *Invalidator) maybeWatchDir(path string) {
	base := filepath.Base(path)
	if ignoredDirs[base] || strings.HasPrefix(base, ".") {
		return
	}
	if err := inv.watcher.Add(path); err == nil {
		inv.logger.Debug("watching new directory", "path", path)
	}
}
