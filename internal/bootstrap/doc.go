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

// Package bootstrap handles repository initialization and setup for the
// local graph store.
//
// This internal package provides the core initialization logic: it
// creates CozoDB databases with the schema pkg/storage declares and
// ensures all prerequisites are met before a repository can be
// indexed or queried.
//
// # Initialization Workflow
//
// A typical workflow for setting up a new repository:
//
//	// Initialize the repository (creates database and schema)
//	info, err := bootstrap.InitRepository(bootstrap.RepositoryConfig{
//	    RepositoryID: indexing.GenerateRepositoryID("acme/widgets"),
//	    Engine:       "rocksdb", // Optional: defaults to rocksdb
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Repository initialized at: %s\n", info.DataDir)
//
//	// Later, open the repository for queries
//	backend, err := bootstrap.OpenRepository(bootstrap.RepositoryConfig{
//	    RepositoryID: info.RepositoryID,
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Idempotency
//
// InitRepository is idempotent: calling it multiple times on the same
// repository is safe and will not corrupt existing data. This makes it
// suitable for use in scripts and automated workflows.
//
// # Configuration
//
// RepositoryConfig controls the initialization behavior:
//
//   - RepositoryID: Required. The graph store's ownership-scope key.
//   - DataDir: Optional. Where to store CozoDB data. Defaults to
//     ~/.graphidx/data/<repository_id>.
//   - Engine: Optional. CozoDB storage engine. One of "mem", "sqlite",
//     "rocksdb". Defaults to "rocksdb" for persistent storage.
//
// # Storage Engines
//
//   - rocksdb: Production-grade persistent storage (default, recommended)
//   - sqlite: Lightweight persistent storage for smaller repositories
//   - mem: In-memory storage for testing and temporary use
//
// # Repository Discovery
//
// List repositories with local data in the default data directory:
//
//	repos, err := bootstrap.ListRepositories()
//	for _, id := range repos {
//	    fmt.Println(id)
//	}
package bootstrap
