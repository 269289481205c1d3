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
	"testing"
)

func TestGenerateRepositoryID_Deterministic(t *testing.T) {
	id1 := GenerateRepositoryID("acme/widgets")
	id2 := GenerateRepositoryID("acme/widgets")

	if id1 != id2 {
		t.Errorf("GenerateRepositoryID should be deterministic: got %q and %q", id1, id2)
	}
	if !hasPrefix(id1, "repo:") {
		t.Errorf("GenerateRepositoryID should start with 'repo:': got %q", id1)
	}
}

func TestGenerateRepositoryID_DifferentNames(t *testing.T) {
	id1 := GenerateRepositoryID("acme/widgets")
	id2 := GenerateRepositoryID("acme/gadgets")

	if id1 == id2 {
		t.Errorf("GenerateRepositoryID should differ for different full_names: both got %q", id1)
	}
}

func TestGenerateFileID_Deterministic(t *testing.T) {
	path := "test/path/to/file.go"

	id1 := GenerateFileID("repo:abc", path)
	id2 := GenerateFileID("repo:abc", path)

	if id1 != id2 {
		t.Errorf("GenerateFileID should be deterministic: got %q and %q", id1, id2)
	}
	if !hasPrefix(id1, "file:") {
		t.Errorf("GenerateFileID should start with 'file:': got %q", id1)
	}
}

func TestGenerateFileID_DifferentPaths(t *testing.T) {
	id1 := GenerateFileID("repo:abc", "test/path/to/file1.go")
	id2 := GenerateFileID("repo:abc", "test/path/to/file2.go")

	if id1 == id2 {
		t.Errorf("GenerateFileID should produce different IDs for different paths: both got %q", id1)
	}
}

func TestGenerateFileID_DifferentRepositories(t *testing.T) {
	path := "test/path/to/file.go"
	id1 := GenerateFileID("repo:abc", path)
	id2 := GenerateFileID("repo:xyz", path)

	if id1 == id2 {
		t.Errorf("GenerateFileID should produce different IDs for the same path under different repositories: both got %q", id1)
	}
}

func TestGenerateFileID_NormalizesPath(t *testing.T) {
	id1 := GenerateFileID("repo:abc", "./test/path/to/file.go")
	id2 := GenerateFileID("repo:abc", "test/path/to/file.go")

	if id1 != id2 {
		t.Errorf("GenerateFileID should normalize paths: got %q and %q", id1, id2)
	}
}

func TestGenerateSymbolID_Deterministic(t *testing.T) {
	id1 := GenerateSymbolID("file:1", "Handle", "function", 10, 20)
	id2 := GenerateSymbolID("file:1", "Handle", "function", 10, 20)

	if id1 != id2 {
		t.Errorf("GenerateSymbolID should be deterministic: got %q and %q", id1, id2)
	}
	if !hasPrefix(id1, "sym:") {
		t.Errorf("GenerateSymbolID should start with 'sym:': got %q", id1)
	}
}

func TestGenerateSymbolID_DifferentNames(t *testing.T) {
	id1 := GenerateSymbolID("file:1", "Handle", "function", 10, 20)
	id2 := GenerateSymbolID("file:1", "Other", "function", 10, 20)

	if id1 == id2 {
		t.Errorf("GenerateSymbolID should differ for different names: both got %q", id1)
	}
}

func TestGenerateSymbolID_DifferentRanges(t *testing.T) {
	id1 := GenerateSymbolID("file:1", "Handle", "function", 10, 20)
	id2 := GenerateSymbolID("file:1", "Handle", "function", 30, 40)

	if id1 == id2 {
		t.Errorf("GenerateSymbolID should differ for different ranges: both got %q", id1)
	}
}

func TestGenerateSymbolID_SignatureNotIncluded(t *testing.T) {
	// Signature and documentation are stored as plain columns, not part
	// of the identity, so re-parsing with better signature extraction
	// doesn't churn the symbol's ID.
	id1 := GenerateSymbolID("file:1", "Handle", "function", 10, 20)
	id2 := GenerateSymbolID("file:1", "Handle", "function", 10, 20)
	if id1 != id2 {
		t.Errorf("expected stable symbol ID regardless of signature changes")
	}
}

func TestGenerateReferenceID_Deterministic(t *testing.T) {
	id1 := GenerateReferenceID("file:1", 12, 4, "call")
	id2 := GenerateReferenceID("file:1", 12, 4, "call")

	if id1 != id2 {
		t.Errorf("GenerateReferenceID should be deterministic: got %q and %q", id1, id2)
	}
	if !hasPrefix(id1, "ref:") {
		t.Errorf("GenerateReferenceID should start with 'ref:': got %q", id1)
	}
}

func TestGenerateReferenceID_DifferentTypes(t *testing.T) {
	id1 := GenerateReferenceID("file:1", 12, 4, "call")
	id2 := GenerateReferenceID("file:1", 12, 4, "import")

	if id1 == id2 {
		t.Errorf("GenerateReferenceID should differ for different reference types: both got %q", id1)
	}
}

func TestGenerateEdgeID_Deterministic(t *testing.T) {
	id1 := GenerateEdgeID("file:1", "file:2", "", "", "imports")
	id2 := GenerateEdgeID("file:1", "file:2", "", "", "imports")

	if id1 != id2 {
		t.Errorf("GenerateEdgeID should be deterministic: got %q and %q", id1, id2)
	}
	if !hasPrefix(id1, "edge:") {
		t.Errorf("GenerateEdgeID should start with 'edge:': got %q", id1)
	}
}

func TestGenerateEdgeID_FileVsSymbolEdges(t *testing.T) {
	fileEdge := GenerateEdgeID("file:1", "file:2", "", "", "imports")
	symbolEdge := GenerateEdgeID("", "", "sym:1", "sym:2", "calls")

	if fileEdge == symbolEdge {
		t.Errorf("file-level and symbol-level edges should not collide: both got %q", fileEdge)
	}
}

func TestGenerateJobID_Unique(t *testing.T) {
	id1 := GenerateJobID()
	id2 := GenerateJobID()

	if id1 == id2 {
		t.Errorf("GenerateJobID should produce distinct IDs across calls: both got %q", id1)
	}
	if !hasPrefix(id1, "job:") {
		t.Errorf("GenerateJobID should start with 'job:': got %q", id1)
	}
}

// Helper function to check prefix (avoid importing strings package)
func hasPrefix(s, prefix string) bool {
	if len(prefix) > len(s) {
		return false
	}
	return s[:len(prefix)] == prefix
}
