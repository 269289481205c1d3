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
	"fmt"
	"strings"
	"testing"
	"time"
)

func sampleIndexedFile(n int) IndexedFile {
	path := fmt.Sprintf("src/file%d.go", n)
	return IndexedFile{
		ID:           GenerateFileID("repo-1", path),
		RepositoryID: "repo-1",
		Path:         path,
		Content:      "package main",
		Language:     "go",
		SizeBytes:    12,
		IndexedAt:    time.Unix(0, 0).UTC(),
	}
}

func TestBatcherSplitStatementsCountsWrappedRecords(t *testing.T) {
	var stmts []string
	for i := 0; i < 3; i++ {
		stmts = append(stmts, wrapCompound(buildInsertFilesScript([]IndexedFile{sampleIndexedFile(i)})))
	}
	combined := strings.Join(stmts, "\n\n")

	b := NewBatcher(500, 2*1024*1024)
	got := b.splitStatements(combined)

	if len(got) != 3 {
		t.Fatalf("splitStatements() returned %d statements, want 3", len(got))
	}
	for i, s := range got {
		if !strings.HasPrefix(strings.TrimSpace(s), "{") {
			t.Errorf("statement %d does not start with the compound-statement brace: %q", i, s)
		}
		if !strings.Contains(s, ":put indexed_file") {
			t.Errorf("statement %d missing :put indexed_file: %q", i, s)
		}
	}
}

func TestBatcherBatchRespectsMutationTarget(t *testing.T) {
	var stmts []string
	for i := 0; i < 10; i++ {
		stmts = append(stmts, wrapCompound(buildInsertFilesScript([]IndexedFile{sampleIndexedFile(i)})))
	}
	combined := strings.Join(stmts, "\n\n")

	b := NewBatcher(4, 2*1024*1024)
	batches, err := b.Batch(combined)
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}

	// 10 statements at 4 per batch -> 3 batches (4, 4, 2).
	if len(batches) != 3 {
		t.Fatalf("len(batches) = %d, want 3", len(batches))
	}

	var totalRecords int
	for _, batch := range batches {
		totalRecords += strings.Count(batch, ":put indexed_file")
	}
	if totalRecords != 10 {
		t.Errorf("total :put indexed_file occurrences across batches = %d, want 10", totalRecords)
	}
}

func TestBatcherBatchRespectsByteCeiling(t *testing.T) {
	one := wrapCompound(buildInsertFilesScript([]IndexedFile{sampleIndexedFile(0)}))
	// Force a split well before the mutation-count target by capping the
	// byte budget to a little more than two statements' worth.
	ceiling := len(one)*2 + 10

	var stmts []string
	for i := 0; i < 5; i++ {
		stmts = append(stmts, wrapCompound(buildInsertFilesScript([]IndexedFile{sampleIndexedFile(i)})))
	}
	combined := strings.Join(stmts, "\n\n")

	b := NewBatcher(500, ceiling)
	batches, err := b.Batch(combined)
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	if len(batches) < 2 {
		t.Fatalf("len(batches) = %d, want at least 2 given a tight byte ceiling", len(batches))
	}
	for i, batch := range batches {
		if len(batch) > ceiling+len("\n") {
			t.Errorf("batch %d size %d bytes exceeds ceiling %d", i, len(batch), ceiling)
		}
	}
}

func TestBatcherBatchSingleStatementExceedsCeiling(t *testing.T) {
	stmt := wrapCompound(buildInsertFilesScript([]IndexedFile{sampleIndexedFile(0)}))
	b := NewBatcher(500, len(stmt)-1)

	if _, err := b.Batch(stmt); err == nil {
		t.Fatal("Batch() error = nil, want an error for a statement exceeding the byte ceiling")
	}
}

func TestBatcherBatchEmptyScript(t *testing.T) {
	b := NewBatcher(500, 2*1024*1024)
	batches, err := b.Batch("")
	if err != nil {
		t.Fatalf("Batch() error = %v", err)
	}
	if batches != nil {
		t.Errorf("Batch(\"\") = %v, want nil", batches)
	}
}

// TestBatcherSplitStatementsUnwrappedDeleteScript documents that a flat,
// non-compound script (as produced by buildDeleteRepositoryFilesScript
// and friends, which pipeline.go executes directly rather than through
// the Batcher) is not a single statement under this line-by-line
// brace-depth scan: each line's braces close before the next line
// starts, so the filter and its mutation verb split apart. This is why
// pipeline.go never routes these flat delete scripts through Batch.
func TestBatcherSplitStatementsUnwrappedDeleteScript(t *testing.T) {
	b := NewBatcher(500, 2*1024*1024)
	script := buildDeleteRepositoryFilesScript("repo-1")

	got := b.splitStatements(script)
	if len(got) != 2 {
		t.Fatalf("splitStatements() returned %d statements, want 2 (unwrapped script splits per line)", len(got))
	}
}

func TestBatcherSplitStatementsIgnoresBracesInStringLiterals(t *testing.T) {
	b := NewBatcher(500, 2*1024*1024)
	script := wrapCompound(`?[id, path] <- [["id1", "has } and [ inside"]]
:put indexed_file {id, path}`)

	got := b.splitStatements(script)
	if len(got) != 1 {
		t.Fatalf("splitStatements() returned %d statements, want 1", len(got))
	}
}
