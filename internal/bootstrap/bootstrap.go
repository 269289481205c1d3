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

package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kotadb/graphidx/pkg/storage"
)

// RepositoryConfig holds configuration for initializing a tracked
// repository's local graph store.
type RepositoryConfig struct {
	// RepositoryID is the logical repository identifier (spec §3,
	// typically GenerateRepositoryID(fullName)).
	RepositoryID string

	// DataDir is the directory where CozoDB stores its data.
	// Defaults to ~/.graphidx/data/<repository_id>
	DataDir string

	// Engine is the CozoDB storage engine: "rocksdb", "sqlite", or "mem".
	// Defaults to "rocksdb" for persistence.
	Engine string
}

// RepositoryInfo describes a repository's local graph store after
// initialization or open.
type RepositoryInfo struct {
	RepositoryID string
	DataDir      string
	Engine       string
}

func defaultDataDir(repositoryID string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(homeDir, ".graphidx", "data", repositoryID), nil
}

// InitRepository initializes local graph storage for a Repository,
// creating its data directory and schema if missing. Idempotent:
// calling it multiple times is safe.
func InitRepository(config RepositoryConfig, logger *slog.Logger) (*RepositoryInfo, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if config.RepositoryID == "" {
		return nil, fmt.Errorf("repository_id is required")
	}
	if config.Engine == "" {
		config.Engine = "rocksdb"
	}
	if config.DataDir == "" {
		dataDir, err := defaultDataDir(config.RepositoryID)
		if err != nil {
			return nil, err
		}
		config.DataDir = dataDir
	}

	logger.Info("bootstrap.repository.init.start",
		"repository_id", config.RepositoryID,
		"data_dir", config.DataDir,
		"engine", config.Engine,
	)

	backend, err := storage.NewEmbeddedBackend(storage.EmbeddedConfig{
		DataDir:      config.DataDir,
		Engine:       config.Engine,
		RepositoryID: config.RepositoryID,
	})
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	defer func() { _ = backend.Close() }()

	if err := backend.EnsureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	logger.Info("bootstrap.repository.init.success",
		"repository_id", config.RepositoryID,
		"data_dir", config.DataDir,
	)

	return &RepositoryInfo{
		RepositoryID: config.RepositoryID,
		DataDir:      config.DataDir,
		Engine:       config.Engine,
	}, nil
}

// OpenRepository opens an already-initialized repository's graph store.
func OpenRepository(config RepositoryConfig, logger *slog.Logger) (*storage.EmbeddedBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if config.RepositoryID == "" {
		return nil, fmt.Errorf("repository_id is required")
	}
	if config.Engine == "" {
		config.Engine = "rocksdb"
	}
	if config.DataDir == "" {
		dataDir, err := defaultDataDir(config.RepositoryID)
		if err != nil {
			return nil, err
		}
		config.DataDir = dataDir
	}

	if _, err := os.Stat(config.DataDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("repository not found: %s (run 'graphidx init' first)", config.DataDir)
	}

	logger.Debug("bootstrap.repository.open",
		"repository_id", config.RepositoryID,
		"data_dir", config.DataDir,
	)

	backend, err := storage.NewEmbeddedBackend(storage.EmbeddedConfig{
		DataDir:      config.DataDir,
		Engine:       config.Engine,
		RepositoryID: config.RepositoryID,
	})
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	return backend, nil
}

// ListRepositories returns the repository IDs with local data under
// the default data directory.
func ListRepositories() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}

	dataDir := filepath.Join(homeDir, ".graphidx", "data")
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var repos []string
	for _, entry := range entries {
		if entry.IsDir() {
			repos = append(repos, entry.Name())
		}
	}

	return repos, nil
}
