// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package indexing provides the code-intelligence indexing pipeline for
// graphidx.
//
// The indexing package discovers source files, parses them with
// Tree-sitter, extracts symbols and references, resolves imports and
// cross-file dependencies, and writes the result into a CozoDB-backed
// graph store for later traversal.
//
// # Pipeline Overview
//
//  1. Walk: discover source files under a repository root (walker.go)
//  2. Read: load file content and tag a language (reader.go)
//  3. Parse: build an AST per file via Tree-sitter (parser*.go)
//  4. Extract: walk the AST into Symbols and unresolved References
//  5. Resolve: match import specifiers against tsconfig-style path
//     aliases and in-repo files (resolver.go, tsconfig.go)
//  6. Link: turn resolved references into DependencyEdges (dependency.go)
//  7. Persist: write files+symbols, query back their IDs, then resolve
//     and write references+edges in a second pass (datalog.go, pipeline.go)
//
// Re-indexing after the first run is incremental: IncrementalIndexer.Run
// takes an explicit list of changed files, supplied by the caller or by
// a debounced filesystem watcher (watcher.go), and only those files flow
// back through steps 2-7 (incremental.go). No content-hash comparison
// against stored rows is made.
//
// # Supported Languages
//
// Go, TypeScript, and JavaScript are parsed with Tree-sitter grammars
// and yield full Symbol/Reference extraction. Protocol Buffers (.proto)
// are parsed with a simplified, non-AST extractor. Other recognized
// extensions, Python source among them, are stored as content-only
// IndexedFiles without symbol or reference extraction.
//
// # Quick Start
//
//	cfg := indexing.DefaultConfig()
//	p := indexing.NewPipeline(backend, cfg, logger)
//
//	err := p.Run(ctx, repo, "/path/to/repo", job)
//
// # Key Components
//
// Pipeline orchestrates the two-pass run described in the overview:
//
//	err := pipeline.Run(ctx, repo, rootPath, job)
//
// Batcher splits generated Datalog scripts into chunks that stay under
// CozoDB's practical script-size limits:
//
//	batcher := indexing.NewBatcher(500, 2*1024*1024)
//	chunks, err := batcher.Batch(script)
//
// Resolver maps import specifiers to files using tsconfig/jsconfig
// `paths`/`baseUrl`/`extends` semantics:
//
//	resolver := indexing.LoadResolver(repoRoot, fileSet, cfg)
//	target, ok := resolver.Resolve(fromFile, importSpecifier)
//
// JobTracker records IndexJob lifecycle transitions with per-caller
// access control:
//
//	tracker := indexing.NewJobTracker(access)
//	job, err := tracker.Get(jobID, callerID) // "not found" if not owned
//
// Watcher debounces filesystem events and triggers incremental runs:
//
//	w, err := indexing.NewWatcher(repo, repoRoot, incremental, debounce, logger)
//	err = w.Start()
//	defer w.Stop()
//
// # Configuration
//
// Config carries the walker's exclude globs and size limits, the
// parser's max-text truncation size, and the pipeline's chunk/batch
// sizes. Use DefaultConfig() for the documented defaults.
//
// # Metrics
//
// Prometheus counters, gauges and a histogram track files parsed,
// symbols, references and dependencies extracted, chunks written, job
// lifecycle counts, worker-pool activity, watcher events and triggered
// runs, and pipeline run duration (metrics.go).
package indexing
