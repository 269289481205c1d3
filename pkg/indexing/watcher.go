// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package indexing

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher is a single-threaded cooperative dispatcher per Repository
// (spec §4.12): it debounces raw filesystem events into a coalesced
// {added, modified, deleted} batch and drives a blocking call into the
// incremental indexer (C11).
type Watcher struct {
	fsw      *fsnotify.Watcher
	indexer  *IncrementalIndexer
	repo     Repository
	rootPath string
	debounce time.Duration
	logger   *slog.Logger
	metrics  *Metrics

	mu       sync.Mutex
	pending  map[string]ChangeStatus
	timer    *time.Timer
	inFlight sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	loopWg sync.WaitGroup
}

// NewWatcher creates a Watcher over rootPath, wired to dispatch
// coalesced batches to indexer. debounce defaults to 500ms (spec
// §4.12) when zero.
func NewWatcher(repo Repository, rootPath string, indexer *IncrementalIndexer, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		fsw:      fsw,
		indexer:  indexer,
		repo:     repo,
		rootPath: rootPath,
		debounce: debounce,
		logger:   logger,
		metrics:  NewMetrics(),
		pending:  map[string]ChangeStatus{},
		ctx:      ctx,
		cancel:   cancel,
	}
	return w, nil
}

// Start adds recursive watches under rootPath and begins dispatching
// debounced batches.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.rootPath); err != nil {
		return err
	}
	w.loopWg.Add(1)
	go w.loop()
	return nil
}

// Stop cancels the debounce timer, closes the underlying event source,
// and waits for any in-flight incremental run to complete (spec §4.12
// cancellation semantics).
func (w *Watcher) Stop() {
	w.cancel()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.fsw.Close()
	w.loopWg.Wait()
	w.inFlight.Wait()
}

func (w *Watcher) addWatches(root string) error {
	visited := map[string]bool{}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if d.Name() != filepath.Base(root) && ignoredDirs[d.Name()] {
			return filepath.SkipDir
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil || visited[real] {
			return nil
		}
		visited[real] = true
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop() {
	defer w.loopWg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher.fsnotify.error", "err", err)
		}
	}
}

// handleEvent classifies and debounces one raw fsnotify event (spec
// §4.12 event classification, change kind, debouncing).
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.rootPath, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if w.isIgnored(rel) {
		return
	}
	w.metrics.WatcherEventsObserved.Inc()

	_, statErr := os.Stat(ev.Name)
	status := ChangeModified
	if statErr != nil {
		status = ChangeDeleted
	}

	w.mu.Lock()
	if _, existed := w.pending[rel]; existed {
		w.metrics.WatcherEventsCoalesced.Inc()
	} else if status != ChangeDeleted {
		status = ChangeAdded
	}
	w.pending[rel] = status

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
	w.mu.Unlock()
}

// isIgnored drops events under an ignored directory or with an
// unwatched extension (spec §4.12 event classification).
func (w *Watcher) isIgnored(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if ignoredDirs[part] {
			return true
		}
	}
	ext := strings.ToLower(filepath.Ext(relPath))
	return !supportedExtensions[ext]
}

// flush drains the accumulated event map and dispatches it to the
// incremental indexer. New events arriving during dispatch accumulate
// for the next flush (spec §4.12).
func (w *Watcher) flush() {
	w.mu.Lock()
	events := w.pending
	w.pending = map[string]ChangeStatus{}
	w.mu.Unlock()

	if len(events) == 0 {
		return
	}

	changes := make([]FileChange, 0, len(events))
	for path, status := range events {
		changes = append(changes, FileChange{Path: path, Status: status})
	}

	w.inFlight.Add(1)
	defer w.inFlight.Done()

	w.metrics.WatcherRunsTriggered.Inc()
	if _, err := w.indexer.Run(w.ctx, w.repo, w.rootPath, changes); err != nil {
		w.logger.Error("watcher.incremental.error", "repository_id", w.repo.ID, "err", err)
	}
}
