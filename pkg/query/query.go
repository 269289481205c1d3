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

// Package query provides a read-only API over the graph store for
// graphidx's consumers (a search API, an MCP tool surface, a CLI): "which
// files depend on X", "what symbols are defined in file Y", "find
// textual occurrences of term Z", and job status lookups.
//
// Every method issues a single Datalog query or delegates to the job
// tracker; none of them mutate the graph store.
package query

import (
	"context"
	"fmt"

	"github.com/kotadb/graphidx/pkg/indexing"
	"github.com/kotadb/graphidx/pkg/storage"
)

// quoteCozoPattern wraps a pattern in CozoDB's raw string notation so
// arbitrary characters, including quotes, are safe to embed without
// escaping.
func quoteCozoPattern(pattern string) string {
	return `___"` + pattern + `"___`
}

// Client answers read-only questions against a repository's graph store.
type Client struct {
	backend storage.Backend
	jobs    *indexing.JobTracker
}

// NewClient creates a Client backed by the given store and job tracker.
// jobs may be nil if the embedding application never calls GetJob.
func NewClient(backend storage.Backend, jobs *indexing.JobTracker) *Client {
	return &Client{backend: backend, jobs: jobs}
}

// FileDependency describes one file->file edge discovered by the
// dependency builder (spec §4.7).
type FileDependency struct {
	EdgeID         string
	FromFileID     string
	FromPath       string
	ToFileID       string
	ToPath         string
	DependencyType string
}

// FilesDependingOn returns every file in repositoryID that depends on
// targetPath, i.e. every dependency_edge whose to_file_id resolves to
// targetPath.
func (c *Client) FilesDependingOn(ctx context.Context, repositoryID, targetPath string) ([]FileDependency, error) {
	script := fmt.Sprintf(`
?[edge_id, from_id, from_path, to_id, to_path, dep_type] :=
    *indexed_file { id: to_id, repository_id: %q, path: %q },
    *dependency_edge { id: edge_id, from_file_id: from_id, to_file_id: to_id, dependency_type: dep_type },
    *indexed_file { id: from_id, path: from_path }
:limit 1000`, repositoryID, targetPath)

	result, err := c.backend.Query(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("query files depending on %q: %w", targetPath, err)
	}

	deps := make([]FileDependency, 0, len(result.Rows))
	for _, row := range result.Rows {
		deps = append(deps, FileDependency{
			EdgeID:         asString(row[0]),
			FromFileID:     asString(row[1]),
			FromPath:       asString(row[2]),
			ToFileID:       asString(row[3]),
			ToPath:         asString(row[4]),
			DependencyType: asString(row[5]),
		})
	}
	return deps, nil
}

// SymbolInfo describes one Symbol row (spec §3).
type SymbolInfo struct {
	ID        string
	Name      string
	Kind      string
	LineStart int
	LineEnd   int
	Signature string
}

// SymbolsInFile returns every symbol defined in fileID, ordered by
// starting line.
func (c *Client) SymbolsInFile(ctx context.Context, fileID string) ([]SymbolInfo, error) {
	script := fmt.Sprintf(`
?[id, name, kind, line_start, line_end, signature] :=
    *symbol { id, file_id: %q, name, kind, line_start, line_end, signature }
:sort line_start
:limit 5000`, fileID)

	result, err := c.backend.Query(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("query symbols in file %q: %w", fileID, err)
	}

	symbols := make([]SymbolInfo, 0, len(result.Rows))
	for _, row := range result.Rows {
		symbols = append(symbols, SymbolInfo{
			ID:        asString(row[0]),
			Name:      asString(row[1]),
			Kind:      asString(row[2]),
			LineStart: asInt(row[3]),
			LineEnd:   asInt(row[4]),
			Signature: asString(row[5]),
		})
	}
	return symbols, nil
}

// TextMatch describes one file whose content matched a SearchText
// pattern.
type TextMatch struct {
	FileID string
	Path   string
}

// SearchText finds files in repositoryID whose content matches the
// regular expression pattern, capped at limit results (default 100 if
// limit <= 0). The pattern is escaped and wrapped in CozoDB's raw
// string notation so arbitrary characters, including quotes, are safe
// to embed.
func (c *Client) SearchText(ctx context.Context, repositoryID, pattern string, limit int) ([]TextMatch, error) {
	if limit <= 0 {
		limit = 100
	}

	script := fmt.Sprintf(`
?[id, path] :=
    *indexed_file { id, repository_id: %q, path, content },
    regex_matches(content, %s)
:limit %d`, repositoryID, quoteCozoPattern(pattern), limit)

	result, err := c.backend.Query(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("search text %q: %w", pattern, err)
	}

	matches := make([]TextMatch, 0, len(result.Rows))
	for _, row := range result.Rows {
		matches = append(matches, TextMatch{FileID: asString(row[0]), Path: asString(row[1])})
	}
	return matches, nil
}

// GetJob looks up an index job on behalf of caller. When the Client was
// built with a JobTracker, that in-process tracker is authoritative
// (and enforces the tracker's own access control). Otherwise GetJob
// falls back to the persisted index_job row (jobstore.go), for callers
// running in a different process than the one that created the job; in
// that path access control is reduced to AllowAllAccess, since the
// tracker that knows the repository's real AccessChecker isn't
// available. A caller lacking access, or a genuinely missing job, both
// surface as indexing.ErrJobNotFound.
func (c *Client) GetJob(ctx context.Context, jobID, caller string) (indexing.IndexJob, error) {
	if c.jobs != nil {
		job, err := c.jobs.Get(jobID, caller)
		if err == nil {
			return job, nil
		}
		if c.backend == nil {
			return indexing.IndexJob{}, err
		}
	}
	return indexing.LoadJob(ctx, c.backend, jobID)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
