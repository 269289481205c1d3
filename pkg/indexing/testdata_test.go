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
	"os"
	"path/filepath"
	"testing"
)

// TestParseFileTestdataGoFixtures exercises the Go extractor against
// every fixture under testdata/go, covering shapes a synthetic inline
// snippet would not: blank/dot/named imports, embedded structs,
// generics, interface embedding, and multi-value returns.
func TestParseFileTestdataGoFixtures(t *testing.T) {
	entries, err := os.ReadDir(filepath.Join("testdata", "go"))
	if err != nil {
		t.Fatalf("ReadDir(testdata/go) error = %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("testdata/go contains no fixtures")
	}

	parser := NewTreeSitterParser(nil)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		t.Run(e.Name(), func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join("testdata", "go", e.Name()))
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			result, err := parser.ParseFile(LoadedFile{
				Path:     e.Name(),
				Content:  string(data),
				Language: "go",
			})
			if err != nil {
				t.Fatalf("ParseFile() error = %v", err)
			}
			if len(result.Symbols) == 0 {
				t.Errorf("Symbols is empty for %s, want at least one declaration", e.Name())
			}
		})
	}
}

// TestParseFileTestdataGoImports checks the blank/dot/named import
// fixture specifically: every import spec produces a reference, and
// the dot/blank aliases are tagged in metadata rather than dropped.
func TestParseFileTestdataGoImports(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "go", "imports.go"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	parser := NewTreeSitterParser(nil)
	result, err := parser.ParseFile(LoadedFile{Path: "imports.go", Content: string(data), Language: "go"})
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	imports := map[string]ExtractedReference{}
	for _, ref := range result.References {
		if ref.ReferenceType == ReferenceImport {
			imports[ref.TargetName] = ref
		}
	}

	if imports["image/png"].Metadata[MetaIsSideEffect] != "true" {
		t.Errorf("image/png import not tagged side-effect: %+v", imports["image/png"])
	}
	if imports["math"].Metadata[MetaIsNamespace] != "true" {
		t.Errorf("math import not tagged namespace (dot import): %+v", imports["math"])
	}
	if imports["strings"].Metadata[MetaImportAlias] != "str" {
		t.Errorf("strings import alias = %q, want %q", imports["strings"].Metadata[MetaImportAlias], "str")
	}
}

// TestParseFileTestdataSampleProject walks testdata/sample_project to
// confirm every real-project .go file parses without error, matching
// how the walker/reader pipeline would present them to the parser.
func TestParseFileTestdataSampleProject(t *testing.T) {
	root := filepath.Join("testdata", "sample_project")
	parser := NewTreeSitterParser(nil)
	var parsed int

	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ".go" {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		if _, err := parser.ParseFile(LoadedFile{Path: rel, Content: string(data), Language: "go"}); err != nil {
			t.Errorf("ParseFile(%s) error = %v", rel, err)
		}
		parsed++
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir(%s) error = %v", root, err)
	}
	if parsed == 0 {
		t.Fatalf("no .go files found under %s", root)
	}
}
