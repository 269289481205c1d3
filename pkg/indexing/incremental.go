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
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ChangeStatus classifies one path in an incremental batch (spec §4.11
// input).
type ChangeStatus string

const (
	ChangeAdded    ChangeStatus = "added"
	ChangeModified ChangeStatus = "modified"
	ChangeDeleted  ChangeStatus = "deleted"
)

// FileChange is one entry of the incremental indexer's input list.
type FileChange struct {
	Path   string
	Status ChangeStatus
}

// IncrementalResult is what C11 returns per run.
type IncrementalResult struct {
	FilesUpdated        int
	FilesDeleted        int
	SymbolsExtracted    int
	ReferencesExtracted int
	Errors              []error
}

// repoRunState tracks per-Repository coalescing and serialization.
type repoRunState struct {
	runMu   sync.Mutex // held for the duration of one actual pipeline run
	mergeMu sync.Mutex // guards pending
	pending map[string]ChangeStatus
}

// IncrementalIndexer implements C11: diff-and-update for a changed-file
// set, with bounded concurrency per Repository (spec §4.11 guarantees:
// exactly one pass runs at a time; overlapping events coalesce into the
// next run).
type IncrementalIndexer struct {
	pipeline *Pipeline
	manifest *DeletionManifest
	logger   *slog.Logger

	mu     sync.Mutex
	states map[string]*repoRunState
}

// NewIncrementalIndexer wires C11 against a Pipeline and the deletion
// manifest deletions get appended to.
func NewIncrementalIndexer(pipeline *Pipeline, manifest *DeletionManifest, logger *slog.Logger) *IncrementalIndexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &IncrementalIndexer{
		pipeline: pipeline,
		manifest: manifest,
		logger:   logger,
		states:   map[string]*repoRunState{},
	}
}

func (ix *IncrementalIndexer) stateFor(repositoryID string) *repoRunState {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	s, ok := ix.states[repositoryID]
	if !ok {
		s = &repoRunState{pending: map[string]ChangeStatus{}}
		ix.states[repositoryID] = s
	}
	return s
}

// Run merges changes into the Repository's pending set and, once it
// becomes the sole runner for that Repository, drains and processes
// the coalesced set. A caller whose changes get swept up by a
// concurrently-running caller returns a zero IncrementalResult rather
// than duplicating the work.
func (ix *IncrementalIndexer) Run(ctx context.Context, repo Repository, rootPath string, changes []FileChange) (IncrementalResult, error) {
	state := ix.stateFor(repo.ID)

	state.mergeMu.Lock()
	for _, c := range changes {
		state.pending[normalizePath(c.Path)] = c.Status
	}
	state.mergeMu.Unlock()

	state.runMu.Lock()
	defer state.runMu.Unlock()

	state.mergeMu.Lock()
	toRun := state.pending
	state.pending = map[string]ChangeStatus{}
	state.mergeMu.Unlock()

	if len(toRun) == 0 {
		return IncrementalResult{}, nil
	}

	batch := make([]FileChange, 0, len(toRun))
	for path, status := range toRun {
		batch = append(batch, FileChange{Path: path, Status: status})
	}

	return ix.runOnce(ctx, repo, rootPath, batch)
}

func (ix *IncrementalIndexer) runOnce(ctx context.Context, repo Repository, rootPath string, changes []FileChange) (IncrementalResult, error) {
	var result IncrementalResult

	var deletedPaths, changedPaths []string
	for _, c := range changes {
		switch c.Status {
		case ChangeDeleted:
			deletedPaths = append(deletedPaths, c.Path)
		default:
			changedPaths = append(changedPaths, c.Path)
		}
	}

	if len(deletedPaths) > 0 {
		if err := ix.deletePaths(ctx, repo.ID, deletedPaths, &result); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("delete paths: %w", err))
		} else {
			result.FilesDeleted = len(deletedPaths)
		}
	}

	if len(changedPaths) > 0 {
		job := &IndexJob{ID: "incremental", RepositoryID: repo.ID, Status: JobProcessing}
		if err := ix.pipeline.RunIncremental(ctx, repo, rootPath, changedPaths, job); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("incremental pipeline: %w", err))
		} else {
			result.FilesUpdated = len(changedPaths)
			result.SymbolsExtracted = job.Stats.SymbolsExtracted
			result.ReferencesExtracted = job.Stats.ReferencesFound
		}
	}

	return result, nil
}

// deletePaths removes a file's rows (and its symbols/references/edges)
// and appends a deletion-manifest entry per spec §4.11.
func (ix *IncrementalIndexer) deletePaths(ctx context.Context, repositoryID string, paths []string, result *IncrementalResult) error {
	fileIDs, err := ix.pipeline.fileIDsForPaths(ctx, repositoryID, paths)
	if err != nil {
		return err
	}

	for _, stmt := range buildDeleteFileChildrenScript(fileIDs) {
		if err := ix.pipeline.backend.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	if stmt := buildDeletePathsScript(repositoryID, paths); stmt != "" {
		if err := ix.pipeline.backend.Execute(ctx, stmt); err != nil {
			return err
		}
	}

	if ix.manifest != nil {
		now := time.Now().UTC()
		records := make([]DeletionRecord, 0, len(fileIDs))
		for _, id := range fileIDs {
			records = append(records, DeletionRecord{Table: "indexed_file", ID: id, DeletedAt: now})
		}
		if err := ix.manifest.Append(records...); err != nil {
			ix.logger.Error("incremental.manifest.append_error", "repository_id", repositoryID, "err", err)
		}
	}

	return nil
}
