// Copyright 2023 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package pathwatcher provides helper functions for watching grammar files
// for changes.
package pathwatcher

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"
)

// CreatePathWatcher creates a watcher monitoring the directories holding the
// given files. Editors often replace a file instead of writing it, so the
// files themselves are not watched.
func CreatePathWatcher(paths []string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range watchDirs(paths) {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return watcher, nil
}

// Changed returns true if the event creates, writes, removes or renames one
// of the files.
func Changed(evt fsnotify.Event, paths []string) bool {
	mask := fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	if evt.Op&mask == 0 {
		return false
	}
	name := filepath.Clean(evt.Name)
	for _, p := range paths {
		if filepath.Clean(p) == name {
			return true
		}
	}
	return false
}

// Wait blocks until one of the files changes. Events for other files in the
// watched directories are skipped. If the context is done first, the
// context's error is returned.
func Wait(ctx context.Context, watcher *fsnotify.Watcher, paths []string) (fsnotify.Event, error) {
	for {
		select {
		case evt, ok := <-watcher.Events:
			if !ok {
				return fsnotify.Event{}, fsnotify.ErrClosed
			}
			if Changed(evt, paths) {
				return evt, nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fsnotify.Event{}, fsnotify.ErrClosed
			}
			return fsnotify.Event{}, err
		case <-ctx.Done():
			return fsnotify.Event{}, ctx.Err()
		}
	}
}

func watchDirs(paths []string) []string {
	var dirs []string
	for _, p := range paths {
		dir := filepath.Dir(filepath.Clean(p))
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
