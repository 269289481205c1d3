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
	"context"
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/kotadb/graphidx/internal/bootstrap"
	cliErrors "github.com/kotadb/graphidx/internal/errors"
	"github.com/kotadb/graphidx/internal/ui"
	"github.com/kotadb/graphidx/pkg/indexing"
)

// runExport executes 'graphidx export <path> --repo <full_name>',
// writing the graph store's tables to JSONL under
// <path>/.kotadb/export/ (indexing.DefaultExportDir).
func runExport(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fullName := fs.String("repo", "", "Repository full name")
	dir := fs.String("dir", "", "Export directory (default: <path>/"+indexing.DefaultExportDir+")")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: graphidx export <path> --repo <full_name> [options]

Exports the repository's graph store to JSONL files for sync/merge.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 || *fullName == "" {
		fs.Usage()
		os.Exit(1)
	}

	root, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		cliErrors.FatalError(cliErrors.NewInputError("invalid path", err.Error(), "pass an existing directory"), globals.JSON)
	}
	exportDir := *dir
	if exportDir == "" {
		exportDir = filepath.Join(root, indexing.DefaultExportDir)
	}

	logger := newCLILogger(globals)
	repositoryID := indexing.GenerateRepositoryID(*fullName)

	backend, err := bootstrap.OpenRepository(bootstrap.RepositoryConfig{RepositoryID: repositoryID}, logger)
	if err != nil {
		cliErrors.FatalError(cliErrors.NewDatabaseError("cannot open graph store", err.Error(), "run 'graphidx init' first", err), globals.JSON)
	}
	defer func() { _ = backend.Close() }()

	exporter := indexing.NewExporter(backend, logger)
	if err := exporter.Export(context.Background(), exportDir); err != nil {
		cliErrors.FatalError(cliErrors.NewInternalError("export failed", err.Error(), "", err), globals.JSON)
	}

	if !globals.Quiet {
		ui.Success(fmt.Sprintf("Exported %s to %s", *fullName, exportDir))
	}
}

// runImport executes 'graphidx import <export-dir> --repo <full_name>',
// loading JSONL tables back into the graph store and applying any
// pending deletion-manifest records recorded by the watcher.
func runImport(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	fullName := fs.String("repo", "", "Repository full name")
	manifestDir := fs.String("manifest-dir", "", "Directory holding the deletion manifest (default: <export-dir>)")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: graphidx import <export-dir> --repo <full_name> [options]

Imports JSONL tables previously written by 'graphidx export'.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 || *fullName == "" {
		fs.Usage()
		os.Exit(1)
	}

	exportDir, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		cliErrors.FatalError(cliErrors.NewInputError("invalid path", err.Error(), "pass an existing export directory"), globals.JSON)
	}
	manDir := *manifestDir
	if manDir == "" {
		manDir = exportDir
	}

	logger := newCLILogger(globals)
	repositoryID := indexing.GenerateRepositoryID(*fullName)

	backend, err := bootstrap.OpenRepository(bootstrap.RepositoryConfig{RepositoryID: repositoryID}, logger)
	if err != nil {
		cliErrors.FatalError(cliErrors.NewDatabaseError("cannot open graph store", err.Error(), "run 'graphidx init' first", err), globals.JSON)
	}
	defer func() { _ = backend.Close() }()

	manifest, err := indexing.NewDeletionManifest(manDir)
	if err != nil {
		cliErrors.FatalError(cliErrors.NewInternalError("cannot open deletion manifest", err.Error(), "", err), globals.JSON)
	}

	exporter := indexing.NewExporter(backend, logger)
	if err := exporter.Import(context.Background(), exportDir, manifest); err != nil {
		cliErrors.FatalError(cliErrors.NewInternalError("import failed", err.Error(), "", err), globals.JSON)
	}

	if !globals.Quiet {
		ui.Success(fmt.Sprintf("Imported %s from %s", *fullName, exportDir))
	}
}
