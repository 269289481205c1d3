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

// Package cozodb provides a Go binding for CozoDB v0.7.6+.
//
// CozoDB is a Datalog-based embedded database designed for graph queries
// and complex data relationships. graphidx uses it to store the indexed
// code graph: files, symbols, references, dependency edges, and index
// jobs, each as its own CozoDB relation keyed the way the two-pass write
// protocol expects.
//
// # Requirements
//
// This package requires CGO and the CozoDB C library (libcozo_c). Build with:
//
//	CGO_ENABLED=1 go build
//
// The CozoDB library must be installed on your system:
//
//	# macOS (Homebrew)
//	brew install cozodb
//
//	# Linux (from source or package manager)
//	# See https://github.com/cozodb/cozo for installation
//
// You may need to set library paths:
//
//	export CGO_LDFLAGS="-L/path/to/libcozo_c"
//	export CGO_CFLAGS="-I/path/to/cozo_c.h"
//
// # Storage Engines
//
// CozoDB supports multiple storage backends:
//   - "mem": In-memory, fast but not persisted (used by tests)
//   - "sqlite": SQLite-backed, single-file persistence
//   - "rocksdb": RocksDB-backed, the default for a real repository index
//
// # Quick Start
//
// Open a database and run queries:
//
//	db, err := cozodb.New("rocksdb", "/path/to/data", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	result, err := db.Run(`?[x] := x = 1 + 1`, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("1 + 1 = %v\n", result.Rows[0][0])
//
// # Read-Only Queries
//
// Use RunReadOnly for queries that should not modify data; the engine
// rejects any write statement:
//
//	result, err := db.RunReadOnly(`?[path] := *indexed_file{path}`, nil)
//
// # Parameterized Queries
//
// Pass parameters to avoid building Datalog strings by concatenation:
//
//	params := map[string]any{"repository_id": repoID}
//	result, err := db.Run(`
//	    ?[path] := *indexed_file{repository_id, path}, repository_id == $repository_id
//	`, params)
//
// # Backup and Restore
//
//	err := db.Backup("/path/to/backup.db")
//	err := db.Restore("/path/to/backup.db")
//
// # graphidx relations
//
//	repository        - tracked source trees
//	indexed_file       - file snapshots (content, language, size, indexed_at)
//	symbol             - definition sites inside a file
//	reference          - use sites (import, call, property_access, type_reference)
//	dependency_edge     - file-file or symbol-symbol edges
//	index_job          - job lifecycle and stats
//
// # Version Compatibility
//
// This binding targets CozoDB v0.7.6+, which includes the immutable_query
// parameter in the C API. Earlier versions may not work correctly with
// RunReadOnly.
package cozodb
