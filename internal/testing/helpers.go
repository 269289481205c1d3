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

package testing

import (
	"context"
	"testing"

	"github.com/kotadb/graphidx/pkg/storage"
)

// SetupTestBackend creates an in-memory graph store backend for
// testing. The backend is automatically cleaned up when the test
// finishes.
//
// This helper:
//   - Creates a temporary directory
//   - Initializes an in-memory CozoDB backend
//   - Ensures the graphidx schema is created
//   - Registers cleanup to close the backend
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    backend := testing.SetupTestBackend(t)
//
//	    testing.InsertTestFile(t, backend, "file1", "repo1", "main.go", "go", 100)
//
//	    // Run your tests...
//	}
func SetupTestBackend(t *testing.T) *storage.EmbeddedBackend {
	t.Helper()

	backend, err := storage.NewEmbeddedBackend(storage.EmbeddedConfig{
		Engine:  "mem",
		DataDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("failed to create test backend: %v", err)
	}

	if err := backend.EnsureSchema(); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}

	t.Cleanup(func() {
		backend.Close()
	})

	return backend
}

// InsertTestRepository adds a test Repository row.
func InsertTestRepository(t *testing.T, backend *storage.EmbeddedBackend, id, fullName string) {
	t.Helper()

	query := `?[id, full_name, default_ref, installation_id, owner_user_id, owner_org_id] <- [[
		$id, $full_name, "main", "", "", ""
	]]
	:put repository { id, full_name, default_ref, installation_id, owner_user_id, owner_org_id }`

	db := backend.DB()
	_, err := db.Run(query, map[string]any{"id": id, "full_name": fullName})
	if err != nil {
		t.Fatalf("failed to insert test repository: %v", err)
	}
}

// InsertTestFile adds a test IndexedFile row.
//
// Example:
//
//	testing.InsertTestFile(t, backend, "file_123", "repo_1", "auth.go", "go", 1234)
func InsertTestFile(t *testing.T, backend *storage.EmbeddedBackend, id, repositoryID, path, language string, sizeBytes int64) {
	t.Helper()

	query := `?[id, repository_id, path, content, language, size_bytes, indexed_at, metadata] <- [[
		$id, $repository_id, $path, "", $language, $size_bytes, "", "{}"
	]]
	:put indexed_file { id, repository_id, path, content, language, size_bytes, indexed_at, metadata }`

	db := backend.DB()
	_, err := db.Run(query, map[string]any{
		"id":            id,
		"repository_id": repositoryID,
		"path":          path,
		"language":      language,
		"size_bytes":    sizeBytes,
	})
	if err != nil {
		t.Fatalf("failed to insert test file: %v", err)
	}
}

// InsertTestSymbol adds a test Symbol row.
//
// Example:
//
//	testing.InsertTestSymbol(t, backend, "sym_123", "file_123", "HandleAuth", "function", 10, 25)
func InsertTestSymbol(t *testing.T, backend *storage.EmbeddedBackend, id, fileID, name, kind string, lineStart, lineEnd int) {
	t.Helper()

	query := `?[id, file_id, name, kind, line_start, line_end, signature, documentation, metadata] <- [[
		$id, $file_id, $name, $kind, $line_start, $line_end, "", "", "{}"
	]]
	:put symbol { id, file_id, name, kind, line_start, line_end, signature, documentation, metadata }`

	db := backend.DB()
	_, err := db.Run(query, map[string]any{
		"id":         id,
		"file_id":    fileID,
		"name":       name,
		"kind":       kind,
		"line_start": lineStart,
		"line_end":   lineEnd,
	})
	if err != nil {
		t.Fatalf("failed to insert test symbol: %v", err)
	}
}

// InsertTestReference adds a test Reference row of type "import"
// resolved to targetFileID (pass "" for an unresolved reference).
//
// Example:
//
//	testing.InsertTestReference(t, backend, "ref_123", "file_a", "file_b", 1, 0)
func InsertTestReference(t *testing.T, backend *storage.EmbeddedBackend, id, sourceFileID, targetFileID string, line, col int) {
	t.Helper()

	query := `?[id, source_file_id, target_symbol_key, target_file_id, line_number, column_number, reference_type, metadata] <- [[
		$id, $source_file_id, "", $target_file_id, $line, $col, "import", "{}"
	]]
	:put reference { id, source_file_id, target_symbol_key, target_file_id, line_number, column_number, reference_type, metadata }`

	db := backend.DB()
	_, err := db.Run(query, map[string]any{
		"id":             id,
		"source_file_id": sourceFileID,
		"target_file_id": targetFileID,
		"line":           line,
		"col":            col,
	})
	if err != nil {
		t.Fatalf("failed to insert test reference: %v", err)
	}
}

// InsertTestFileEdge adds a test file->file DependencyEdge row of type
// "import".
//
// Example:
//
//	testing.InsertTestFileEdge(t, backend, "edge_123", "file_a", "file_b")
func InsertTestFileEdge(t *testing.T, backend *storage.EmbeddedBackend, id, fromFileID, toFileID string) {
	t.Helper()

	query := `?[id, from_file_id, to_file_id, from_symbol_id, to_symbol_id, dependency_type, metadata] <- [[
		$id, $from, $to, "", "", "import", "{}"
	]]
	:put dependency_edge { id, from_file_id, to_file_id, from_symbol_id, to_symbol_id, dependency_type, metadata }`

	db := backend.DB()
	_, err := db.Run(query, map[string]any{"id": id, "from": fromFileID, "to": toFileID})
	if err != nil {
		t.Fatalf("failed to insert test file edge: %v", err)
	}
}

// QueryFiles returns every IndexedFile row as [id, path] columns.
func QueryFiles(t *testing.T, backend *storage.EmbeddedBackend) *storage.QueryResult {
	t.Helper()

	ctx := context.Background()
	result, err := backend.Query(ctx, "?[id, path] := *indexed_file { id, path }")
	if err != nil {
		t.Fatalf("failed to query files: %v", err)
	}
	return result
}

// QuerySymbols returns every Symbol row as [id, name] columns.
func QuerySymbols(t *testing.T, backend *storage.EmbeddedBackend) *storage.QueryResult {
	t.Helper()

	ctx := context.Background()
	result, err := backend.Query(ctx, "?[id, name] := *symbol { id, name }")
	if err != nil {
		t.Fatalf("failed to query symbols: %v", err)
	}
	return result
}

// QueryFileEdges returns every file-pair DependencyEdge row as
// [id, from_file_id, to_file_id] columns.
func QueryFileEdges(t *testing.T, backend *storage.EmbeddedBackend) *storage.QueryResult {
	t.Helper()

	ctx := context.Background()
	result, err := backend.Query(ctx, "?[id, from_file_id, to_file_id] := *dependency_edge { id, from_file_id, to_file_id }")
	if err != nil {
		t.Fatalf("failed to query file edges: %v", err)
	}
	return result
}
