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

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigDirName is the per-repository configuration directory, created
// by 'graphidx init' alongside the working tree root.
const ConfigDirName = ".graphidx"

// Config is the on-disk repository configuration written by
// 'graphidx init' and read by every other subcommand.
type Config struct {
	RepositoryID string `yaml:"repository_id"`
	FullName     string `yaml:"full_name"`
	Engine       string `yaml:"engine"`
	Exclude      []string `yaml:"exclude,omitempty"`
}

// DefaultConfig returns the configuration 'graphidx init' writes for a
// freshly registered repository.
func DefaultConfig(fullName string) *Config {
	return &Config{
		FullName: fullName,
		Engine:   "rocksdb",
	}
}

// ConfigDir returns the .graphidx directory under root.
func ConfigDir(root string) string {
	return filepath.Join(root, ConfigDirName)
}

// ConfigPath returns the config.yaml path under root.
func ConfigPath(root string) string {
	return filepath.Join(ConfigDir(root), "config.yaml")
}

// LoadConfig reads and parses the repository configuration at root. If
// path is non-empty it overrides the default ConfigPath(root).
func LoadConfig(root, path string) (*Config, error) {
	if path == "" {
		path = ConfigPath(root)
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path derived from repo root
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path, creating its parent directory if
// necessary.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
