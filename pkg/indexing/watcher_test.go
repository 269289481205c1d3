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
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestWatcherIsIgnoredDirectories covers spec §4.12 event classification:
// paths under an ignored directory segment never reach the pending map,
// regardless of extension.
func TestWatcherIsIgnoredDirectories(t *testing.T) {
	w := &Watcher{}
	cases := []struct {
		path string
		want bool
	}{
		{"node_modules/lib/index.js", true},
		{".git/HEAD", true},
		{"src/widget.go", false},
		{"src/widget.ts", false},
		{"src/image.png", true},
		{"README", true},
	}
	for _, tc := range cases {
		if got := w.isIgnored(tc.path); got != tc.want {
			t.Errorf("isIgnored(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

// TestWatcherStartDetectsAndDispatchesChanges covers §8 scenario 3: a
// running watcher over a real directory coalesces a debounce window of
// filesystem edits into a single incremental run against the backend.
func TestWatcherStartDetectsAndDispatchesChanges(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "widget.go"), []byte("package main\n\nfunc Widget() {}\n"), 0o644); err != nil {
		t.Fatalf("setup error: %v", err)
	}

	backend := newFakeBackend()
	p := NewPipeline(backend, DefaultConfig(), nil)
	repo := Repository{ID: "repo-watch"}
	if err := p.Run(context.Background(), repo, root, &IndexJob{}); err != nil {
		t.Fatalf("initial Run() error = %v", err)
	}
	if got := backend.rowCount("indexed_file"); got != 1 {
		t.Fatalf("indexed_file rows after initial run = %d, want 1", got)
	}

	ix := NewIncrementalIndexer(p, nil, nil)
	w, err := NewWatcher(repo, root, ix, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(root, "gadget.go"), []byte("package main\n\nfunc Gadget() {}\n"), 0o644); err != nil {
		t.Fatalf("write error: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if backend.rowCount("indexed_file") == 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if got := backend.rowCount("indexed_file"); got != 2 {
		t.Fatalf("indexed_file rows after watched create = %d, want 2", got)
	}
}

// TestWatcherStopWaitsForInFlightRun covers the cancellation semantics in
// spec §4.12: Stop blocks until a dispatched incremental run completes
// rather than abandoning it mid-flight.
func TestWatcherStopWaitsForInFlightRun(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "widget.go"), []byte("package main\n\nfunc Widget() {}\n"), 0o644); err != nil {
		t.Fatalf("setup error: %v", err)
	}

	backend := newFakeBackend()
	p := NewPipeline(backend, DefaultConfig(), nil)
	repo := Repository{ID: "repo-watch-stop"}
	if err := p.Run(context.Background(), repo, root, &IndexJob{}); err != nil {
		t.Fatalf("initial Run() error = %v", err)
	}

	ix := NewIncrementalIndexer(p, nil, nil)
	w, err := NewWatcher(repo, root, ix, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "gadget.go"), []byte("package main\n\nfunc Gadget() {}\n"), 0o644); err != nil {
		t.Fatalf("write error: %v", err)
	}

	// Give the debounce timer time to fire and the run to start before
	// Stop races it; Stop itself must still block until flush's
	// inFlight.Done() regardless of this sleep's exact timing.
	time.Sleep(40 * time.Millisecond)
	w.Stop()

	if got := backend.rowCount("indexed_file"); got != 2 {
		t.Fatalf("indexed_file rows after Stop() = %d, want 2 (in-flight run must complete)", got)
	}
}
