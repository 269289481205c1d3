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
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kotadb/graphidx/internal/bootstrap"
	"github.com/kotadb/graphidx/internal/errors"
	"github.com/kotadb/graphidx/internal/output"
	"github.com/kotadb/graphidx/internal/ui"
	"github.com/kotadb/graphidx/pkg/indexing"
)

// runInit executes 'graphidx init <path> --repo <full_name>': it
// registers a Repository, creates its graph store and schema, and
// writes a .graphidx/config.yaml pointing at it.
func runInit(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	fullName := fs.String("repo", "", "Repository full name (e.g. acme/widgets)")
	engine := fs.String("engine", "rocksdb", "CozoDB storage engine: rocksdb, sqlite, or mem")
	force := fs.Bool("force", false, "Overwrite an existing configuration")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: graphidx init <path> --repo <full_name> [options]

Registers a repository, creates its local graph store, and writes
.graphidx/config.yaml under <path>.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	root, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		errors.FatalError(errors.NewInputError("invalid path", err.Error(), "pass an existing directory"), globals.JSON)
	}
	if *fullName == "" {
		errors.FatalError(errors.NewInputError("--repo is required", "no repository full name given", "pass --repo <owner>/<name>"), globals.JSON)
	}

	configPath := ConfigPath(root)
	if _, err := os.Stat(configPath); err == nil && !*force {
		errors.FatalError(errors.NewConfigError(
			fmt.Sprintf("%s already exists", configPath),
			"a configuration is already present",
			"pass --force to overwrite",
			nil,
		), globals.JSON)
	}

	repositoryID := indexing.GenerateRepositoryID(*fullName)
	info, err := bootstrap.InitRepository(bootstrap.RepositoryConfig{
		RepositoryID: repositoryID,
		Engine:       *engine,
	}, nil)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("failed to initialize graph store", err.Error(), "check disk space and permissions", err), globals.JSON)
	}

	cfg := DefaultConfig(*fullName)
	cfg.RepositoryID = repositoryID
	cfg.Engine = info.Engine
	if err := SaveConfig(cfg, configPath); err != nil {
		errors.FatalError(errors.NewConfigError("failed to write configuration", err.Error(), "check write permissions", err), globals.JSON)
	}
	addToGitignore(root)

	if globals.JSON {
		_ = output.JSON(map[string]any{
			"repository_id": repositoryID,
			"full_name":     *fullName,
			"data_dir":      info.DataDir,
			"config_path":   configPath,
		})
		return
	}

	ui.Success(fmt.Sprintf("Initialized %s", *fullName))
	fmt.Printf("  repository_id: %s\n", repositoryID)
	fmt.Printf("  data_dir:      %s\n", info.DataDir)
	fmt.Printf("  config:        %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  graphidx index %s --repo %s\n", fs.Arg(0), *fullName)
}

// addToGitignore adds .graphidx/ to dir's .gitignore if present and not
// already listed.
func addToGitignore(dir string) {
	gitignorePath := filepath.Join(dir, ".gitignore")
	content, err := os.ReadFile(gitignorePath) //nolint:gosec // G304: path built from repo root
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == ".graphidx/" || line == ".graphidx" || line == "/.graphidx/" || line == "/.graphidx" {
			return
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // G304: path built from repo root
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()
	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}
	_, _ = f.WriteString("\n# graphidx local graph store\n.graphidx/\n")
}
