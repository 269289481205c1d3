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

import "testing"

// TestParseFileTypeScriptTinyProject covers the §8 tiny-project scenario
// at the extraction layer: b.ts exports function g; a.ts imports it.
func TestParseFileTypeScriptTinyProject(t *testing.T) {
	parser := NewTreeSitterParser(nil)

	bResult, err := parser.ParseFile(LoadedFile{
		Path:     "b.ts",
		Content:  "export function g() {}\n",
		Language: "typescript",
	})
	if err != nil {
		t.Fatalf("ParseFile(b.ts) error = %v", err)
	}
	if len(bResult.Symbols) != 1 || bResult.Symbols[0].Name != "g" {
		t.Fatalf("b.ts Symbols = %+v, want a single symbol named g", bResult.Symbols)
	}
	if !bResult.Symbols[0].IsExported {
		t.Errorf("b.ts g.IsExported = false, want true")
	}

	aResult, err := parser.ParseFile(LoadedFile{
		Path:     "a.ts",
		Content:  `import { g } from "./b";` + "\n",
		Language: "typescript",
	})
	if err != nil {
		t.Fatalf("ParseFile(a.ts) error = %v", err)
	}

	var imp *ExtractedReference
	for i := range aResult.References {
		if aResult.References[i].ReferenceType == ReferenceImport {
			imp = &aResult.References[i]
		}
	}
	if imp == nil {
		t.Fatalf("a.ts References = %+v, want an import reference", aResult.References)
	}
	if imp.Metadata[MetaImportSource] != "./b" {
		t.Errorf("import Metadata[%s] = %q, want %q", MetaImportSource, imp.Metadata[MetaImportSource], "./b")
	}
	if imp.TargetName != "g" {
		t.Errorf("import TargetName = %q, want %q", imp.TargetName, "g")
	}
}

func TestParseFileTypeScriptClassAndMethod(t *testing.T) {
	parser := NewTreeSitterParser(nil)
	src := `export class Widget {
	render() {
		return true;
	}
}
`
	result, err := parser.ParseFile(LoadedFile{Path: "widget.ts", Content: src, Language: "typescript"})
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	var sawClass, sawMethod bool
	for _, s := range result.Symbols {
		if s.Name == "Widget" && s.Kind == SymbolClass {
			sawClass = true
		}
		if s.Name == "Widget.render" && s.Kind == SymbolMethod {
			sawMethod = true
		}
	}
	if !sawClass {
		t.Errorf("Symbols = %+v, want class Widget", result.Symbols)
	}
	if !sawMethod {
		t.Errorf("Symbols = %+v, want method Widget.render", result.Symbols)
	}
}

func TestParseFileTypeScriptInterfaceAndTypeAlias(t *testing.T) {
	parser := NewTreeSitterParser(nil)
	src := `interface Shape {
	area(): number;
}

type ID = string;
`
	result, err := parser.ParseFile(LoadedFile{Path: "types.ts", Content: src, Language: "typescript"})
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	var sawInterface, sawAlias bool
	for _, s := range result.Symbols {
		if s.Name == "Shape" && s.Kind == SymbolInterface {
			sawInterface = true
		}
		if s.Name == "ID" && s.Kind == SymbolTypeAlias {
			sawAlias = true
		}
	}
	if !sawInterface {
		t.Errorf("Symbols = %+v, want interface Shape", result.Symbols)
	}
	if !sawAlias {
		t.Errorf("Symbols = %+v, want type alias ID", result.Symbols)
	}
}

// TestParseFileJavaScriptSingleFunction covers that a plain JavaScript
// file with one function declaration yields exactly that one Symbol.
func TestParseFileJavaScriptSingleFunction(t *testing.T) {
	parser := NewTreeSitterParser(nil)
	src := `function add(a, b) {
	return a + b;
}
`
	result, err := parser.ParseFile(LoadedFile{Path: "add.js", Content: src, Language: "javascript"})
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(result.Symbols) != 1 || result.Symbols[0].Name != "add" {
		t.Fatalf("Symbols = %+v, want a single function add", result.Symbols)
	}
}

func TestParseFileTypeScriptSideEffectImport(t *testing.T) {
	parser := NewTreeSitterParser(nil)
	result, err := parser.ParseFile(LoadedFile{
		Path:     "polyfill.ts",
		Content:  `import "./polyfill";` + "\n",
		Language: "typescript",
	})
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(result.References) != 1 {
		t.Fatalf("References = %+v, want exactly one side-effect import", result.References)
	}
	ref := result.References[0]
	if ref.Metadata[MetaIsSideEffect] != "true" {
		t.Errorf("Metadata[%s] = %q, want %q", MetaIsSideEffect, ref.Metadata[MetaIsSideEffect], "true")
	}
	if ref.TargetName != "./polyfill" {
		t.Errorf("TargetName = %q, want %q", ref.TargetName, "./polyfill")
	}
}
