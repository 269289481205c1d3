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
	"strings"
	"time"

	"github.com/kotadb/graphidx/pkg/storage"
)

// Pipeline runs the two-pass indexing protocol (spec §4.8) over a
// working tree: walk, read, parse, write files+symbols, query back
// IDs, resolve references, build edges, write references+edges.
type Pipeline struct {
	backend storage.Backend
	walker  *Walker
	reader  *Reader
	parser  CodeParser
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics
	batcher *Batcher
}

// NewPipeline wires a Pipeline against a storage backend. A nil logger
// falls back to slog.Default; metrics come from the shared NewMetrics set.
func NewPipeline(backend storage.Backend, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	chunkTarget := cfg.FileWriteChunkSize
	if chunkTarget <= 0 {
		chunkTarget = 500
	}
	return &Pipeline{
		backend: backend,
		walker:  NewWalker(logger),
		reader:  NewReader(logger),
		parser:  NewTreeSitterParser(logger),
		cfg:     cfg,
		logger:  logger,
		metrics: NewMetrics(),
		batcher: NewBatcher(chunkTarget, cfg.MaxScriptBytes),
	}
}

// fileUnit bundles a file's persisted record with the raw extraction
// output the pass-2 reference resolver and dependency builder need.
type fileUnit struct {
	file    IndexedFile
	symbols []Symbol
	refs    []ExtractedReference
}

// Run executes a full index of rootPath into repo, mutating job.Stats
// as it progresses. A chunk failure aborts with the chunk's error;
// prior chunks remain persisted (spec §4.8 failure semantics).
func (p *Pipeline) Run(ctx context.Context, repo Repository, rootPath string, job *IndexJob) error {
	units, skipReasons := p.discoverAndParse(repo, rootPath)
	p.logger.Info("pipeline.run.discovered",
		"repository_id", repo.ID, "files", len(units), "skip_reasons", skipReasons)

	if err := p.wipeRepository(ctx, repo.ID); err != nil {
		return fmt.Errorf("wipe repository: %w", err)
	}

	if err := p.writePass1(ctx, units, job); err != nil {
		return fmt.Errorf("pass 1: %w", err)
	}

	idToPath, pathToID, err := p.queryBackFiles(ctx, repo.ID)
	if err != nil {
		return fmt.Errorf("query back files: %w", err)
	}

	symbolsByFile, err := p.queryBackSymbols(ctx, idToPath)
	if err != nil {
		return fmt.Errorf("query back symbols: %w", err)
	}

	return p.writePass2(ctx, rootPath, units, idToPath, pathToID, symbolsByFile, job)
}

// RunIncremental re-indexes only changedPaths (spec §4.8 incremental
// path): deletes rows for those exact paths, then runs a scoped
// pass 1+2 over just them. Callers of symbols that were deleted are
// left with unresolved references rather than being re-parsed.
func (p *Pipeline) RunIncremental(ctx context.Context, repo Repository, rootPath string, changedPaths []string, job *IndexJob) error {
	if len(changedPaths) == 0 {
		return nil
	}

	existingIDs, err := p.fileIDsForPaths(ctx, repo.ID, changedPaths)
	if err != nil {
		return fmt.Errorf("lookup existing file ids: %w", err)
	}
	if len(existingIDs) > 0 {
		for _, stmt := range buildDeleteFileChildrenScript(existingIDs) {
			if err := p.backend.Execute(ctx, stmt); err != nil {
				return fmt.Errorf("delete file children: %w", err)
			}
		}
	}
	if stmt := buildDeletePathsScript(repo.ID, changedPaths); stmt != "" {
		if err := p.backend.Execute(ctx, stmt); err != nil {
			return fmt.Errorf("delete changed paths: %w", err)
		}
	}

	units, _ := p.discoverAndParse(repo, rootPath)
	scoped := make([]fileUnit, 0, len(changedPaths))
	wanted := make(map[string]bool, len(changedPaths))
	for _, cp := range changedPaths {
		wanted[normalizePath(cp)] = true
	}
	for _, u := range units {
		if wanted[normalizePath(u.file.Path)] {
			scoped = append(scoped, u)
		}
	}

	if err := p.writePass1(ctx, scoped, job); err != nil {
		return fmt.Errorf("incremental pass 1: %w", err)
	}

	idToPath, pathToID, err := p.queryBackFiles(ctx, repo.ID)
	if err != nil {
		return fmt.Errorf("incremental query back files: %w", err)
	}
	symbolsByFile, err := p.queryBackSymbols(ctx, idToPath)
	if err != nil {
		return fmt.Errorf("incremental query back symbols: %w", err)
	}

	return p.writePass2(ctx, rootPath, scoped, idToPath, pathToID, symbolsByFile, job)
}

func (p *Pipeline) discoverAndParse(repo Repository, rootPath string) ([]fileUnit, map[string]int) {
	discovered, skipReasons := p.walker.Walk(rootPath, p.cfg.ExcludeGlobs, p.cfg.MaxFileSizeBytes)
	loaded := p.reader.ReadAll(discovered)

	units := make([]fileUnit, 0, len(loaded))
	for _, lf := range loaded {
		fileID := GenerateFileID(repo.ID, lf.Path)

		parsed, err := p.parser.ParseFile(lf)
		if err != nil {
			p.logger.Warn("pipeline.parse.error", "path", lf.Path, "err", err)
			parsed = &ParseResult{}
		}

		symbols := make([]Symbol, 0, len(parsed.Symbols))
		for _, es := range parsed.Symbols {
			symbols = append(symbols, Symbol{
				ID:            GenerateSymbolID(fileID, es.Name, string(es.Kind), es.LineStart, es.LineEnd),
				FileID:        fileID,
				Name:          es.Name,
				Kind:          es.Kind,
				LineStart:     es.LineStart,
				LineEnd:       es.LineEnd,
				Signature:     es.Signature,
				Documentation: es.Documentation,
				Metadata:      mergeMetadata(map[string]string{"is_exported": boolString(es.IsExported)}),
			})
		}

		units = append(units, fileUnit{
			file: IndexedFile{
				ID:           fileID,
				RepositoryID: repo.ID,
				Path:         lf.Path,
				Content:      lf.Content,
				Language:     lf.Language,
				SizeBytes:    lf.SizeBytes,
				IndexedAt:    time.Now().UTC(),
			},
			symbols: symbols,
			refs:    parsed.References,
		})

		p.metrics.FilesParsed.Inc()
		p.metrics.SymbolsExtracted.Add(float64(len(symbols)))
	}

	return units, skipReasons
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return ""
}

func (p *Pipeline) wipeRepository(ctx context.Context, repositoryID string) error {
	existingIDs, _, err := p.queryBackFiles(ctx, repositoryID)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(existingIDs))
	for id := range existingIDs {
		ids = append(ids, id)
	}
	for _, stmt := range buildDeleteFileChildrenScript(ids) {
		if err := p.backend.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	return p.backend.Execute(ctx, buildDeleteRepositoryFilesScript(repositoryID))
}

// wrapCompound marks a single generated `:put`/`:rm` script as one
// atomic Cozo compound statement (https://docs.cozodb.org/en/latest/stored.html),
// so the Batcher's brace-depth statement splitter never tears a row
// literal apart from the mutation clause that consumes it.
func wrapCompound(stmt string) string {
	return "{\n" + stmt + "\n}"
}

// executeBatched concatenates a set of already-wrapped compound
// statements and runs them through the Batcher (spec §4.8's
// max-script-size ceiling, pkg/indexing/batcher.go), executing each
// resulting batch against the backend in turn. It reports how many
// source statements and how many backend round trips were made so
// callers can update job stats against the real batch boundaries
// rather than an assumed chunk size.
func (p *Pipeline) executeBatched(ctx context.Context, statements []string) (written, batches int, err error) {
	if len(statements) == 0 {
		return 0, 0, nil
	}
	combined := strings.Join(statements, "\n\n")
	batchScripts, err := p.batcher.Batch(combined)
	if err != nil {
		return 0, 0, err
	}
	for _, batch := range batchScripts {
		if err := p.backend.Execute(ctx, batch); err != nil {
			return 0, 0, err
		}
	}
	return len(statements), len(batchScripts), nil
}

func (p *Pipeline) writePass1(ctx context.Context, units []fileUnit, job *IndexJob) error {
	fileStmts := make([]string, 0, len(units))
	var symbolStmts []string
	for _, u := range units {
		if stmt := buildInsertFilesScript([]IndexedFile{u.file}); stmt != "" {
			fileStmts = append(fileStmts, wrapCompound(stmt))
		}
		for _, s := range u.symbols {
			if stmt := buildInsertSymbolsScript([]Symbol{s}); stmt != "" {
				symbolStmts = append(symbolStmts, wrapCompound(stmt))
			}
		}
	}

	filesWritten, fileBatches, err := p.executeBatched(ctx, fileStmts)
	if err != nil {
		if job != nil {
			job.ErrorMessage = fmt.Sprintf("pass1 file insert: %v", err)
		}
		return err
	}
	symbolsWritten, symbolBatches, err := p.executeBatched(ctx, symbolStmts)
	if err != nil {
		if job != nil {
			job.ErrorMessage = fmt.Sprintf("pass1 symbol insert: %v", err)
		}
		return err
	}

	if job != nil {
		job.Stats.FilesIndexed += filesWritten
		job.Stats.SymbolsExtracted += symbolsWritten
		job.Stats.ChunksCompleted += fileBatches + symbolBatches
		job.Stats.CurrentChunk = fileBatches + symbolBatches
	}
	return nil
}

// queryBackFiles pages through a repository's files (spec §4.8 step 2),
// returning id->path and path->id maps.
func (p *Pipeline) queryBackFiles(ctx context.Context, repositoryID string) (map[string]string, map[string]string, error) {
	batchSize := p.cfg.FileQueryBatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	idToPath := map[string]string{}
	pathToID := map[string]string{}
	offset := 0
	for {
		res, err := p.backend.Query(ctx, buildQueryFilesByRepositoryScript(repositoryID, batchSize, offset))
		if err != nil {
			return nil, nil, err
		}
		for _, row := range res.Rows {
			if len(row) < 3 {
				continue
			}
			id := anyToString(row[0])
			path := anyToString(row[2])
			idToPath[id] = path
			pathToID[path] = id
		}
		if len(res.Rows) < batchSize {
			break
		}
		offset += batchSize
	}
	return idToPath, pathToID, nil
}

// queryBackSymbols fetches symbols in bounded file-ID batches (spec
// §4.8 "batches of at most 200 file IDs").
func (p *Pipeline) queryBackSymbols(ctx context.Context, idToPath map[string]string) (map[string][]Symbol, error) {
	batchSize := p.cfg.SymbolQueryBatchSize
	if batchSize <= 0 {
		batchSize = 200
	}

	fileIDs := make([]string, 0, len(idToPath))
	for id := range idToPath {
		fileIDs = append(fileIDs, id)
	}

	symbolsByFile := map[string][]Symbol{}
	for start := 0; start < len(fileIDs); start += batchSize {
		end := start + batchSize
		if end > len(fileIDs) {
			end = len(fileIDs)
		}
		batch := fileIDs[start:end]
		if len(batch) == 0 {
			continue
		}
		res, err := p.backend.Query(ctx, buildQuerySymbolsByFileIDsScript(batch))
		if err != nil {
			return nil, err
		}
		for _, row := range res.Rows {
			if len(row) < 9 {
				continue
			}
			fileID := anyToString(row[1])
			sym := Symbol{
				ID:            anyToString(row[0]),
				FileID:        fileID,
				Name:          anyToString(row[2]),
				Kind:          SymbolKind(anyToString(row[3])),
				LineStart:     anyToInt(row[4]),
				LineEnd:       anyToInt(row[5]),
				Signature:     anyToString(row[6]),
				Documentation: anyToString(row[7]),
				Metadata:      DecodeMetadata(anyToString(row[8])),
			}
			symbolsByFile[fileID] = append(symbolsByFile[fileID], sym)
		}
	}
	return symbolsByFile, nil
}

func (p *Pipeline) fileIDsForPaths(ctx context.Context, repositoryID string, paths []string) ([]string, error) {
	idToPath, _, err := p.queryBackFiles(ctx, repositoryID)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(paths))
	for _, pth := range paths {
		wanted[normalizePath(pth)] = true
	}
	var ids []string
	for id, path := range idToPath {
		if wanted[normalizePath(path)] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// writePass2 resolves references against the just-written file set,
// builds dependency edges, and writes both in one chunked insert
// without touching files or symbols (spec §4.8 pass 2).
func (p *Pipeline) writePass2(ctx context.Context, rootPath string, units []fileUnit, idToPath, pathToID map[string]string, symbolsByFile map[string][]Symbol, job *IndexJob) error {
	fileSet := make(map[string]bool, len(idToPath))
	for _, path := range idToPath {
		fileSet[path] = true
	}

	resolver := LoadResolver(rootPath, fileSet, p.cfg)

	refsByFileID := make(map[string][]ExtractedReference, len(units))
	var references []Reference

	for _, u := range units {
		fileID, ok := pathToID[u.file.Path]
		if !ok {
			continue
		}
		refsByFileID[fileID] = u.refs

		for _, er := range u.refs {
			targetFileID := ""
			if er.ReferenceType == ReferenceImport {
				spec := er.Metadata[MetaImportSource]
				if spec == "" {
					spec = er.TargetName
				}
				if resolved, ok := resolver.Resolve(u.file.Path, spec); ok {
					targetFileID = pathToID[resolved]
				}
			}
			references = append(references, Reference{
				ID:            GenerateReferenceID(fileID, er.LineNumber, er.ColumnNumber, string(er.ReferenceType)),
				SourceFileID:  fileID,
				TargetFileID:  targetFileID,
				LineNumber:    er.LineNumber,
				ColumnNumber:  er.ColumnNumber,
				ReferenceType: er.ReferenceType,
				Metadata:      mergeMetadata(er.Metadata),
			})
		}
	}
	p.metrics.ReferencesFound.Add(float64(len(references)))

	edges := BuildDependencyEdges(idToPath, symbolsByFile, refsByFileID, resolver)
	for i := range edges {
		edges[i].ID = GenerateEdgeID(edges[i].FromFileID, edges[i].ToFileID, edges[i].FromSymbolID, edges[i].ToSymbolID, string(edges[i].DependencyType))
	}
	p.metrics.DependenciesExtracted.Add(float64(len(edges)))

	refStmts := make([]string, 0, len(references))
	for _, r := range references {
		if stmt := buildInsertReferencesScript([]Reference{r}); stmt != "" {
			refStmts = append(refStmts, wrapCompound(stmt))
		}
	}
	if _, _, err := p.executeBatched(ctx, refStmts); err != nil {
		return fmt.Errorf("insert references: %w", err)
	}

	edgeStmts := make([]string, 0, len(edges))
	for i := range edges {
		if stmt := buildInsertEdgesScript([]DependencyEdge{edges[i]}); stmt != "" {
			edgeStmts = append(edgeStmts, wrapCompound(stmt))
		}
	}
	if _, _, err := p.executeBatched(ctx, edgeStmts); err != nil {
		return fmt.Errorf("insert edges: %w", err)
	}

	if job != nil {
		job.Stats.ReferencesFound += len(references)
		job.Stats.DependenciesExtracted += len(edges)
	}
	return nil
}
