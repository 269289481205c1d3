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
	"encoding/json"
	"fmt"
	"strings"
)

// encodeMetadata serializes a reference/symbol metadata map to the
// JSON string the schema stores it as (pkg/storage.schemaTables).
func encodeMetadata(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// DecodeMetadata is the inverse of encodeMetadata, used when reading
// persisted rows back out.
func DecodeMetadata(raw string) map[string]string {
	if raw == "" {
		return map[string]string{}
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return map[string]string{}
	}
	return m
}

// buildDeleteRepositoryFilesScript removes every file (and, via CozoDB
// cascade-by-convention, its symbols/references/edges get removed by
// the same full-repository sweep the pipeline issues) belonging to a
// repository. Spec §4.8 pass 1, chunk 0.
func buildDeleteRepositoryFilesScript(repositoryID string) string {
	return fmt.Sprintf(
		`?[id] := *indexed_file{id, repository_id}, repository_id = %q
:rm indexed_file {id}`,
		repositoryID,
	)
}

// buildDeleteRepositorySymbolsScript mirrors buildDeleteRepositoryFilesScript
// for the symbol relation, joined through indexed_file since symbol has
// no repository_id column of its own.
func buildDeleteRepositorySymbolsScript(fileIDs []string) string {
	if len(fileIDs) == 0 {
		return ""
	}
	return fmt.Sprintf(
		`?[id] := *symbol{id, file_id}, file_id in %s
:rm symbol {id}`,
		quotedStringList(fileIDs),
	)
}

// buildDeletePathsScript removes the indexed_file rows for an exact set
// of repo-relative paths, used by the incremental path (spec §4.8,
// "delete rows for the exact changed paths").
func buildDeletePathsScript(repositoryID string, paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	return fmt.Sprintf(
		`?[id] := *indexed_file{id, repository_id, path}, repository_id = %q, path in %s
:rm indexed_file {id}`,
		repositoryID, quotedStringList(paths),
	)
}

// buildDeleteFileChildrenScript removes symbol/reference/dependency_edge
// rows that hung off a set of now-deleted file IDs.
func buildDeleteFileChildrenScript(fileIDs []string) []string {
	if len(fileIDs) == 0 {
		return nil
	}
	idList := quotedStringList(fileIDs)
	return []string{
		fmt.Sprintf(`?[id] := *symbol{id, file_id}, file_id in %s
:rm symbol {id}`, idList),
		fmt.Sprintf(`?[id] := *reference{id, source_file_id}, source_file_id in %s
:rm reference {id}`, idList),
		fmt.Sprintf(`?[id] := *dependency_edge{id, from_file_id}, from_file_id in %s
:rm dependency_edge {id}`, idList),
	}
}

func quotedStringList(ss []string) string {
	var b strings.Builder
	b.WriteString("[")
	for i, s := range ss {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(fmt.Sprintf("%q", s))
	}
	b.WriteString("]")
	return b.String()
}

// buildInsertFilesScript builds a `:put indexed_file` script inserting
// every file in one chunk (spec §4.8 pass 1).
func buildInsertFilesScript(files []IndexedFile) string {
	if len(files) == 0 {
		return ""
	}
	var rows strings.Builder
	for i, f := range files {
		if i > 0 {
			rows.WriteString(", ")
		}
		fmt.Fprintf(&rows, "[%q, %q, %q, %q, %q, %d, %q, %q]",
			f.ID, f.RepositoryID, f.Path, f.Content, f.Language, f.SizeBytes,
			f.IndexedAt.UTC().Format(timeFormat), encodeMetadata(f.Metadata))
	}
	return fmt.Sprintf(
		`?[id, repository_id, path, content, language, size_bytes, indexed_at, metadata] <- [%s]
:put indexed_file {id => repository_id, path, content, language, size_bytes, indexed_at, metadata}`,
		rows.String(),
	)
}

// buildInsertSymbolsScript builds a `:put symbol` script for every
// symbol extracted across a chunk's files.
func buildInsertSymbolsScript(symbols []Symbol) string {
	if len(symbols) == 0 {
		return ""
	}
	var rows strings.Builder
	for i, s := range symbols {
		if i > 0 {
			rows.WriteString(", ")
		}
		fmt.Fprintf(&rows, "[%q, %q, %q, %q, %d, %d, %q, %q, %q]",
			s.ID, s.FileID, s.Name, string(s.Kind), s.LineStart, s.LineEnd,
			s.Signature, s.Documentation, encodeMetadata(s.Metadata))
	}
	return fmt.Sprintf(
		`?[id, file_id, name, kind, line_start, line_end, signature, documentation, metadata] <- [%s]
:put symbol {id => file_id, name, kind, line_start, line_end, signature, documentation, metadata}`,
		rows.String(),
	)
}

// buildInsertReferencesScript builds a `:put reference` script for a
// chunk of resolved references (spec §4.8 pass 2).
func buildInsertReferencesScript(refs []Reference) string {
	if len(refs) == 0 {
		return ""
	}
	var rows strings.Builder
	for i, r := range refs {
		if i > 0 {
			rows.WriteString(", ")
		}
		fmt.Fprintf(&rows, "[%q, %q, %q, %q, %d, %d, %q, %q]",
			r.ID, r.SourceFileID, r.TargetSymbolKey, r.TargetFileID,
			r.LineNumber, r.ColumnNumber, string(r.ReferenceType), encodeMetadata(r.Metadata))
	}
	return fmt.Sprintf(
		`?[id, source_file_id, target_symbol_key, target_file_id, line_number, column_number, reference_type, metadata] <- [%s]
:put reference {id => source_file_id, target_symbol_key, target_file_id, line_number, column_number, reference_type, metadata}`,
		rows.String(),
	)
}

// buildInsertEdgesScript builds a `:put dependency_edge` script for a
// chunk of built edges.
func buildInsertEdgesScript(edges []DependencyEdge) string {
	if len(edges) == 0 {
		return ""
	}
	var rows strings.Builder
	for i, e := range edges {
		if i > 0 {
			rows.WriteString(", ")
		}
		fmt.Fprintf(&rows, "[%q, %q, %q, %q, %q, %q, %q]",
			e.ID, e.FromFileID, e.ToFileID, e.FromSymbolID, e.ToSymbolID,
			string(e.DependencyType), encodeMetadata(e.Metadata))
	}
	return fmt.Sprintf(
		`?[id, from_file_id, to_file_id, from_symbol_id, to_symbol_id, dependency_type, metadata] <- [%s]
:put dependency_edge {id => from_file_id, to_file_id, from_symbol_id, to_symbol_id, dependency_type, metadata}`,
		rows.String(),
	)
}

// buildQueryFilesByRepositoryScript pages through a repository's files
// by ID, offset/limit style (spec §4.8 query-back), ordered by id for
// stable pagination.
func buildQueryFilesByRepositoryScript(repositoryID string, limit, offset int) string {
	return fmt.Sprintf(
		`?[id, repository_id, path, content, language, size_bytes, indexed_at, metadata] :=
  *indexed_file{id, repository_id, path, content, language, size_bytes, indexed_at, metadata},
  repository_id = %q
:sort id
:limit %d
:offset %d`,
		repositoryID, limit, offset,
	)
}

// buildQuerySymbolsByFileIDsScript fetches every symbol belonging to a
// bounded batch of file IDs (spec §4.8 "batches of at most 200 file
// IDs").
func buildQuerySymbolsByFileIDsScript(fileIDs []string) string {
	return fmt.Sprintf(
		`?[id, file_id, name, kind, line_start, line_end, signature, documentation, metadata] :=
  *symbol{id, file_id, name, kind, line_start, line_end, signature, documentation, metadata},
  file_id in %s`,
		quotedStringList(fileIDs),
	)
}

const timeFormat = "2006-01-02T15:04:05.999999999Z07:00"
