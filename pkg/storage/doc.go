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

// Package storage provides the graph store abstraction graphidx indexes
// into: the Backend interface and its embedded CozoDB implementation.
//
// # Quick Start
//
//	backend, err := storage.NewEmbeddedBackend(storage.EmbeddedConfig{
//	    DataDir:      "/path/to/data",
//	    Engine:       "rocksdb",
//	    RepositoryID: "myrepo",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	if err := backend.EnsureSchema(); err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := backend.Query(ctx, `
//	    ?[name, path] := *symbol{name, file_id}, *indexed_file{id: file_id, path}
//	    :limit 10
//	`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, row := range result.Rows {
//	    fmt.Printf("%s in %s\n", row[0], row[1])
//	}
//
// # Schema
//
// EnsureSchema is idempotent and creates the six relations backing the
// data model: repository, indexed_file, symbol, reference,
// dependency_edge, index_job.
//
// # Query vs Execute
//
// Query is read-only (backed by RunReadOnly, so the engine itself
// rejects any write statement); Execute runs a mutation.
//
//	result, err := backend.Query(ctx, `?[count(f)] := *symbol{id: f}`)
//	err = backend.Execute(ctx, `:rm symbol { id: "sym123" }`)
//
// # Configuration
//
//	config := storage.EmbeddedConfig{
//	    DataDir:      "/path/to/data",
//	    Engine:       "rocksdb", // mem, sqlite, rocksdb
//	    RepositoryID: "myrepo",
//	}
//
// Defaults: DataDir ~/.graphidx/data/<repository_id>, Engine "rocksdb".
//
// # Thread Safety
//
// EmbeddedBackend is safe for concurrent use: reads take a read lock,
// writes take the exclusive lock, matching CozoDB's own single-writer
// model.
//
// # Direct Database Access
//
//	db := backend.DB()
//	result, err := db.Run(`::relations`, nil)
package storage
