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
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var errBackendUnavailable = errors.New("backend unavailable")

// TestIncrementalRunUpdatesThenDeletes covers §8 scenario 4: a file
// indexed by a full run is later deleted; the incremental indexer
// removes its row and appends a manifest entry rather than leaving it
// orphaned.
func TestIncrementalRunUpdatesThenDeletes(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "widget.go")
	if err := os.WriteFile(path, []byte("package main\n\nfunc Widget() {}\n"), 0o644); err != nil {
		t.Fatalf("setup error: %v", err)
	}

	backend := newFakeBackend()
	p := NewPipeline(backend, DefaultConfig(), nil)
	repo := Repository{ID: "repo-inc"}
	if err := p.Run(context.Background(), repo, root, &IndexJob{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := backend.rowCount("indexed_file"); got != 1 {
		t.Fatalf("indexed_file rows after full run = %d, want 1", got)
	}

	manifestDir := t.TempDir()
	manifest, err := NewDeletionManifest(manifestDir)
	if err != nil {
		t.Fatalf("NewDeletionManifest() error = %v", err)
	}
	ix := NewIncrementalIndexer(p, manifest, nil)

	if err := os.Remove(path); err != nil {
		t.Fatalf("setup error: %v", err)
	}
	result, err := ix.Run(context.Background(), repo, root, []FileChange{{Path: "widget.go", Status: ChangeDeleted}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.FilesDeleted != 1 {
		t.Errorf("FilesDeleted = %d, want 1", result.FilesDeleted)
	}
	if got := backend.rowCount("indexed_file"); got != 0 {
		t.Errorf("indexed_file rows after delete = %d, want 0", got)
	}

	records, err := manifest.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("manifest records = %+v, want exactly one deletion entry", records)
	}
	if records[0].Table != "indexed_file" {
		t.Errorf("record.Table = %q, want %q", records[0].Table, "indexed_file")
	}
}

// TestIncrementalRunModifiedFile covers the add/modify path: an
// incremental run over a single changed file re-parses just that file
// and the new symbol shows up in storage.
func TestIncrementalRunModifiedFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "widget.go")
	if err := os.WriteFile(path, []byte("package main\n\nfunc Widget() {}\n"), 0o644); err != nil {
		t.Fatalf("setup error: %v", err)
	}

	backend := newFakeBackend()
	p := NewPipeline(backend, DefaultConfig(), nil)
	repo := Repository{ID: "repo-mod"}
	if err := p.Run(context.Background(), repo, root, &IndexJob{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("package main\n\nfunc Widget() {}\n\nfunc Gadget() {}\n"), 0o644); err != nil {
		t.Fatalf("setup error: %v", err)
	}

	ix := NewIncrementalIndexer(p, nil, nil)
	result, err := ix.Run(context.Background(), repo, root, []FileChange{{Path: "widget.go", Status: ChangeModified}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.FilesUpdated != 1 {
		t.Errorf("FilesUpdated = %d, want 1", result.FilesUpdated)
	}

	var names []string
	for _, row := range backend.tables["symbol"] {
		names = append(names, row[2])
	}
	var sawGadget bool
	for _, n := range names {
		if n == "Gadget" {
			sawGadget = true
		}
	}
	if !sawGadget {
		t.Errorf("symbol names = %v, want Gadget present after incremental update", names)
	}
}

// TestIncrementalRunCoalescesOverlappingChanges covers P6: merging two
// FileChange batches for the same path before the run drains produces
// the same end state as running them one at a time (the later status
// wins, per the pending-map overwrite in Run).
func TestIncrementalRunCoalescesOverlappingChanges(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "widget.go"), []byte("package main\n\nfunc Widget() {}\n"), 0o644); err != nil {
		t.Fatalf("setup error: %v", err)
	}

	backend := newFakeBackend()
	p := NewPipeline(backend, DefaultConfig(), nil)
	repo := Repository{ID: "repo-coalesce"}
	if err := p.Run(context.Background(), repo, root, &IndexJob{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	ix := NewIncrementalIndexer(p, nil, nil)
	state := ix.stateFor(repo.ID)
	state.mergeMu.Lock()
	state.pending["widget.go"] = ChangeModified
	state.pending["widget.go"] = ChangeDeleted
	state.mergeMu.Unlock()

	result, err := ix.Run(context.Background(), repo, root, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.FilesDeleted != 1 {
		t.Errorf("FilesDeleted = %d, want 1 (deleted status should win the coalesce)", result.FilesDeleted)
	}
	if got := backend.rowCount("indexed_file"); got != 0 {
		t.Errorf("indexed_file rows = %d, want 0 after coalesced delete", got)
	}
}

// TestIncrementalRunNoChangesIsNoop covers the drained-by-concurrent-
// caller boundary: an empty change set returns a zero result without
// touching the backend.
func TestIncrementalRunNoChangesIsNoop(t *testing.T) {
	backend := newFakeBackend()
	p := NewPipeline(backend, DefaultConfig(), nil)
	ix := NewIncrementalIndexer(p, nil, nil)

	result, err := ix.Run(context.Background(), Repository{ID: "repo-empty"}, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result != (IncrementalResult{}) {
		t.Errorf("result = %+v, want zero value", result)
	}
	if backend.executedCount() != 0 {
		t.Errorf("executedCount() = %d, want 0 for a no-op run", backend.executedCount())
	}
}

// TestIncrementalRunPropagatesPipelineError covers that an incremental
// pipeline error surfaces in IncrementalResult.Errors rather than being
// silently dropped.
func TestIncrementalRunPropagatesPipelineError(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "widget.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("setup error: %v", err)
	}

	backend := newFakeBackend()
	p := NewPipeline(backend, DefaultConfig(), nil)
	ix := NewIncrementalIndexer(p, nil, nil)

	backend.execErr = nil
	repo := Repository{ID: "repo-err"}
	if err := p.Run(context.Background(), repo, root, &IndexJob{}); err != nil {
		t.Fatalf("initial Run() error = %v", err)
	}

	backend.execErr = errBackendUnavailable
	result, err := ix.Run(context.Background(), repo, root, []FileChange{{Path: "widget.go", Status: ChangeModified}})
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (errors collected on result)", err)
	}
	if len(result.Errors) == 0 {
		t.Errorf("result.Errors is empty, want the backend failure to be recorded")
	}
}
