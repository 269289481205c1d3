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

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	cozo "github.com/kotadb/graphidx/pkg/cozodb"
)

// EmbeddedBackend implements Backend using a local CozoDB instance. This
// is the only backend graphidx ships; a remote/Enterprise backend is an
// out-of-scope collaborator concern.
type EmbeddedBackend struct {
	db     *cozo.CozoDB
	mu     sync.RWMutex
	closed bool
}

// EmbeddedConfig configures the embedded backend.
type EmbeddedConfig struct {
	// DataDir is the directory where CozoDB stores its data.
	// Defaults to ~/.graphidx/data/<repository_id>
	DataDir string

	// Engine is the CozoDB storage engine: "rocksdb", "sqlite", or "mem".
	// Defaults to "rocksdb" for persistence.
	Engine string

	// RepositoryID namespaces the default data directory.
	RepositoryID string
}

// NewEmbeddedBackend creates a new embedded CozoDB backend.
func NewEmbeddedBackend(config EmbeddedConfig) (*EmbeddedBackend, error) {
	if config.Engine == "" {
		config.Engine = "rocksdb"
	}
	if config.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		config.DataDir = filepath.Join(homeDir, ".graphidx", "data")
		if config.RepositoryID != "" {
			config.DataDir = filepath.Join(config.DataDir, config.RepositoryID)
		}
	}

	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := cozo.New(config.Engine, config.DataDir, nil)
	if err != nil {
		return nil, fmt.Errorf("open cozodb: %w", err)
	}

	return &EmbeddedBackend{db: &db}, nil
}

// Query executes a read-only Datalog query.
func (b *EmbeddedBackend) Query(ctx context.Context, datalog string) (*QueryResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("backend is closed")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result, err := b.db.RunReadOnly(datalog, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	return FromNamedRows(result), nil
}

// Execute runs a Datalog mutation.
func (b *EmbeddedBackend) Execute(ctx context.Context, datalog string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("backend is closed")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	_, err := b.db.Run(datalog, nil)
	if err != nil {
		return fmt.Errorf("execute failed: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (b *EmbeddedBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	b.db.Close()
	return nil
}

// DB returns the underlying CozoDB instance for advanced operations.
// Use with caution - prefer the Backend interface methods.
func (b *EmbeddedBackend) DB() *cozo.CozoDB {
	return b.db
}

// schemaTables holds the relation DDL for every entity in the data
// model (spec §3). metadata columns store a JSON-encoded string rather
// than a native Cozo struct, matching the teacher's flattened-column
// approach to store optional/variant data.
var schemaTables = []string{
	`:create repository { id: String => full_name: String, default_ref: String, installation_id: String, owner_user_id: String, owner_org_id: String }`,
	`:create indexed_file { id: String => repository_id: String, path: String, content: String, language: String, size_bytes: Int, indexed_at: String, metadata: String }`,
	`:create symbol { id: String => file_id: String, name: String, kind: String, line_start: Int, line_end: Int, signature: String, documentation: String, metadata: String }`,
	`:create reference { id: String => source_file_id: String, target_symbol_key: String, target_file_id: String, line_number: Int, column_number: Int, reference_type: String, metadata: String }`,
	`:create dependency_edge { id: String => from_file_id: String, to_file_id: String, from_symbol_id: String, to_symbol_id: String, dependency_type: String, metadata: String }`,
	`:create index_job { id: String => repository_id: String, ref: String, commit_sha: String, status: String, started_at: String, completed_at: String, error_message: String, skip_reason: String, retry_count: Int, stats: String }`,
}

// EnsureSchema creates the graphidx relations if they don't exist. This
// is idempotent and safe to call multiple times.
func (b *EmbeddedBackend) EnsureSchema() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, table := range schemaTables {
		if _, err := b.db.Run(table, nil); err != nil {
			// Ignore "already exists" errors; any other failure surfaces
			// on the first real query against the missing relation.
			continue
		}
	}

	return nil
}
