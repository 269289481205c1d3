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

import "fmt"

// resolvedReference pairs a persisted Reference with the file it was
// read from and, once resolution has run, whatever it was tied to.
type resolvedReference struct {
	Reference
	SourceFileID string
	SourcePath   string
}

// symbolKey is the opaque tie-breaker spec §4.7 uses to disambiguate
// same-named symbols within a file: path::name::line_start.
func symbolKey(path, name string, lineStart int) string {
	return fmt.Sprintf("%s::%s::%d", path, name, lineStart)
}

// symbolIndex looks up a Symbol's database ID by its symbolKey, built
// once per pass-2 run from the freshly queried-back symbol rows.
type symbolIndex struct {
	byKey  map[string]string            // symbolKey -> symbol ID
	byFile map[string]map[string]string // fileID -> name -> symbol ID (first match wins)
}

func newSymbolIndex() *symbolIndex {
	return &symbolIndex{byKey: map[string]string{}, byFile: map[string]map[string]string{}}
}

func (si *symbolIndex) add(fileID, filePath string, sym Symbol) {
	si.byKey[symbolKey(filePath, sym.Name, sym.LineStart)] = sym.ID
	if si.byFile[fileID] == nil {
		si.byFile[fileID] = map[string]string{}
	}
	if _, exists := si.byFile[fileID][sym.Name]; !exists {
		si.byFile[fileID][sym.Name] = sym.ID
	}
}

// lookup resolves a reference's TargetName to a symbol ID within the
// file it was found in, the only scope a bare name reference can
// unambiguously bind to without full type analysis.
func (si *symbolIndex) lookup(fileID, name string) (string, bool) {
	byName, ok := si.byFile[fileID]
	if !ok {
		return "", false
	}
	id, ok := byName[name]
	return id, ok
}

// BuildDependencyEdges implements the spec §4.7 dependency builder.
// files maps a file's database ID to its repo-relative path (needed to
// resolve relative/aliased import strings); symbols are every Symbol
// already persisted for those files; refs are the raw references
// collected during parsing, each already attributed to its source file
// ID. resolver may be nil (no project config found), in which case
// every import reference resolves to "external" and produces no edge.
func BuildDependencyEdges(files map[string]string, symbols map[string][]Symbol, refs map[string][]ExtractedReference, resolver *Resolver) []DependencyEdge {
	pathToFileID := make(map[string]string, len(files))
	for id, p := range files {
		pathToFileID[p] = id
	}

	fileSet := make(map[string]bool, len(files))
	for _, p := range files {
		fileSet[p] = true
	}

	symIdx := newSymbolIndex()
	for fileID, syms := range symbols {
		path := files[fileID]
		for _, s := range syms {
			symIdx.add(fileID, path, s)
		}
	}

	type edgeKey struct {
		from, to string
		kind     DependencyType
	}
	seen := make(map[edgeKey]bool)
	var edges []DependencyEdge

	addEdge := func(e DependencyEdge) {
		k := edgeKey{kind: e.DependencyType}
		if e.FromFileID != "" {
			k.from, k.to = e.FromFileID, e.ToFileID
		} else {
			k.from, k.to = e.FromSymbolID, e.ToSymbolID
		}
		if seen[k] {
			return
		}
		seen[k] = true
		edges = append(edges, e)
	}

	for fileID, fileRefs := range refs {
		sourcePath := files[fileID]
		for _, ref := range fileRefs {
			switch ref.ReferenceType {
			case ReferenceImport:
				if resolver == nil {
					continue
				}
				spec := ref.Metadata[MetaImportSource]
				if spec == "" {
					spec = ref.TargetName
				}
				resolvedPath, ok := resolver.Resolve(sourcePath, spec)
				if !ok {
					continue
				}
				toFileID, ok := pathToFileID[resolvedPath]
				if !ok {
					continue
				}
				depType := DependencyImport
				if ref.Metadata[MetaIsNamespace] == "true" {
					depType = DependencyReExport
				}
				addEdge(DependencyEdge{
					FromFileID:     fileID,
					ToFileID:       toFileID,
					DependencyType: depType,
					Metadata:       mergeMetadata(map[string]string{MetaImportSource: spec}),
				})

			case ReferenceCall, ReferenceTypeReference, ReferencePropertyAccess:
				toSymbolID, ok := symIdx.lookup(fileID, ref.TargetName)
				if !ok {
					continue
				}
				fromSymbolID, ok := enclosingSymbolID(symbols[fileID], ref.LineNumber)
				if !ok {
					continue
				}
				if fromSymbolID == toSymbolID {
					continue
				}
				addEdge(DependencyEdge{
					FromSymbolID:   fromSymbolID,
					ToSymbolID:     toSymbolID,
					DependencyType: dependencyTypeFor(ref.ReferenceType),
					Metadata:       mergeMetadata(ref.Metadata),
				})
			}
		}
	}

	return edges
}

func dependencyTypeFor(rt ReferenceType) DependencyType {
	switch rt {
	case ReferenceCall:
		return DependencyCalls
	case ReferenceTypeReference:
		return DependencyReferencesType
	case ReferencePropertyAccess:
		return DependencyPropertyOf
	default:
		return DependencyImport
	}
}

// enclosingSymbolID finds the innermost symbol in a file whose line
// range contains line, used to attribute a reference to the symbol it
// was found inside of. Symbols are not guaranteed non-overlapping
// (methods nest inside classes), so the smallest matching range wins.
func enclosingSymbolID(syms []Symbol, line int) (string, bool) {
	best := -1
	bestSpan := int(^uint(0) >> 1)
	for i, s := range syms {
		if line < s.LineStart || line > s.LineEnd {
			continue
		}
		span := s.LineEnd - s.LineStart
		if span < bestSpan {
			bestSpan = span
			best = i
		}
	}
	if best == -1 {
		return "", false
	}
	return syms[best].ID, true
}
