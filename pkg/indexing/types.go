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

// Package indexing implements the code-intelligence indexing pipeline:
// source discovery, AST-based symbol/reference extraction, path-alias
// import resolution, dependency-edge construction, two-pass graph
// persistence, job lifecycle management, and incremental/watched
// re-indexing.
package indexing

import "time"

// SymbolKind enumerates the declared Symbol variants.
type SymbolKind string

const (
	SymbolFunction  SymbolKind = "function"
	SymbolClass     SymbolKind = "class"
	SymbolInterface SymbolKind = "interface"
	SymbolTypeAlias SymbolKind = "type_alias"
	SymbolEnum      SymbolKind = "enum"
	SymbolVariable  SymbolKind = "variable"
	SymbolMethod    SymbolKind = "method"
	SymbolProperty  SymbolKind = "property"
)

// ReferenceType enumerates the declared Reference variants.
type ReferenceType string

const (
	ReferenceImport         ReferenceType = "import"
	ReferenceCall           ReferenceType = "call"
	ReferencePropertyAccess ReferenceType = "property_access"
	ReferenceTypeReference  ReferenceType = "type_reference"
)

// DependencyType enumerates the declared DependencyEdge variants.
type DependencyType string

const (
	DependencyImport          DependencyType = "import"
	DependencyReExport        DependencyType = "re_export"
	DependencyExportAll       DependencyType = "export_all"
	DependencyCalls           DependencyType = "calls"
	DependencyReferencesType  DependencyType = "references_type"
	DependencyPropertyOf      DependencyType = "property_of"
)

// JobStatus enumerates the IndexJob state machine (spec §4.9).
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobSkipped    JobStatus = "skipped"
)

// Repository is the ownership root for everything in the graph store.
type Repository struct {
	ID             string
	FullName       string
	DefaultRef     string
	InstallationID string
	OwnerUserID    string
	OwnerOrgID     string
}

// IndexedFile is a persisted snapshot of one source file.
type IndexedFile struct {
	ID             string
	RepositoryID   string
	Path           string // repo-root-relative, forward-slashed, no leading "./"
	Content        string
	Language       string
	SizeBytes      int64
	IndexedAt      time.Time
	Metadata       map[string]string
}

// Symbol is a definition site inside a file.
type Symbol struct {
	ID            string
	FileID        string
	Name          string
	Kind          SymbolKind
	LineStart     int
	LineEnd       int
	Signature     string
	Documentation string
	Metadata      map[string]string
}

// Reference is a use site pointing by name at a symbol or import source.
// At most one of TargetSymbolKey / TargetFileID is set, and only after
// resolution (C6/C7); before resolution both are empty.
type Reference struct {
	ID              string
	SourceFileID    string
	TargetSymbolKey string
	TargetFileID    string
	LineNumber      int
	ColumnNumber    int
	ReferenceType   ReferenceType
	Metadata        map[string]string
}

// Reference metadata keys (spec §3).
const (
	MetaImportSource        = "import_source"
	MetaImportAlias         = "import_alias"
	MetaIsDefault           = "is_default"
	MetaIsNamespace         = "is_namespace"
	MetaIsSideEffect        = "is_side_effect"
	MetaIsOptionalChaining  = "is_optional_chaining"
	MetaCalleeName          = "callee_name"
	MetaIsMethodCall        = "is_method_call"
	MetaPropertyName        = "property_name"
	MetaTargetName          = "target_name"
)

// DependencyEdge is a directed relationship between two files or two
// symbols. Exactly one of the file-pair / symbol-pair is populated.
type DependencyEdge struct {
	ID             string
	FromFileID     string
	ToFileID       string
	FromSymbolID   string
	ToSymbolID     string
	DependencyType DependencyType
	Metadata       map[string]string
}

// IndexJobStats tracks per-job counters surfaced to the submitter.
type IndexJobStats struct {
	FilesIndexed         int
	SymbolsExtracted     int
	ReferencesFound      int
	DependenciesExtracted int
	ChunksCompleted      int
	CurrentChunk         int
}

// IndexJob is one indexing run against a Repository.
type IndexJob struct {
	ID           string
	RepositoryID string
	Ref          string
	CommitSHA    string
	Status       JobStatus
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
	SkipReason   string
	RetryCount   int
	Stats        IndexJobStats
}

// FileInfo describes one file discovered by the source walker (C1),
// before its content has been read (C2).
type FileInfo struct {
	Path     string // repo-root-relative
	FullPath string // absolute
	Size     int64
	Language string
}

// LoadedFile is the output of C2: file content plus inferred language.
type LoadedFile struct {
	Path      string
	Content   string
	SizeBytes int64
	Language  string
}

// ExtractedSymbol is what C4 (the symbol extractor) emits before a
// database ID has been assigned. Lines are 1-indexed, columns are
// 0-indexed, matching the AST adapter's reported positions.
type ExtractedSymbol struct {
	Name          string
	Kind          SymbolKind
	LineStart     int
	LineEnd       int
	ColumnStart   int
	ColumnEnd     int
	Signature     string
	Documentation string
	IsExported    bool
}

// ExtractedReference is what C5 (the reference extractor) emits before
// resolution. TargetName carries whatever name-like token the visitor
// saw: an imported or local binding name (or the source string for
// imports that bind no name), a callee name, a property name, or a type
// identifier. For imports, Metadata[MetaImportSource] holds the source
// string that resolution uses.
type ExtractedReference struct {
	TargetName    string
	LineNumber    int
	ColumnNumber  int
	ReferenceType ReferenceType
	Metadata      map[string]string
}

// ParseResult is what C3+C4+C5 emit for one file.
type ParseResult struct {
	Symbols    []ExtractedSymbol
	References []ExtractedReference
}

// mergeMetadata returns a new map containing base overlaid with extra,
// skipping empty values so optional metadata fields don't round-trip
// as empty-string columns.
func mergeMetadata(extra map[string]string) map[string]string {
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
