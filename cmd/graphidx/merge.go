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

	flag "github.com/spf13/pflag"

	cliErrors "github.com/kotadb/graphidx/internal/errors"
	"github.com/kotadb/graphidx/internal/ui"
	"github.com/kotadb/graphidx/pkg/indexing"
)

// mergeTables lists the per-table JSONL filenames a 'graphidx export'
// directory holds, matching pkg/indexing's unexported syncTables.
var mergeTables = []string{"repository", "indexed_file", "symbol", "reference", "dependency_edge", "index_job"}

// runMerge executes 'graphidx merge <base> <ours> <theirs> <out>': a
// three-way merge of exported JSONL directories, one table at a time.
func runMerge(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: graphidx merge <base-dir> <ours-dir> <theirs-dir> <out-dir>

Three-way merges three 'graphidx export' JSONL directories, writing the
merged per-table JSONL files to <out-dir>.
`)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 4 {
		fs.Usage()
		os.Exit(1)
	}
	baseDir, oursDir, theirsDir, outDir := fs.Arg(0), fs.Arg(1), fs.Arg(2), fs.Arg(3)

	logger := newCLILogger(globals)
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		cliErrors.FatalError(cliErrors.NewInternalError("cannot create output directory", err.Error(), "", err), globals.JSON)
	}

	for _, table := range mergeTables {
		name := table + ".jsonl"
		base, err := readOptionalFile(filepath.Join(baseDir, name))
		if err != nil {
			cliErrors.FatalError(cliErrors.NewInputError("cannot read base export", err.Error(), "pass a directory produced by 'graphidx export'"), globals.JSON)
		}
		ours, err := readOptionalFile(filepath.Join(oursDir, name))
		if err != nil {
			cliErrors.FatalError(cliErrors.NewInputError("cannot read ours export", err.Error(), "pass a directory produced by 'graphidx export'"), globals.JSON)
		}
		theirs, err := readOptionalFile(filepath.Join(theirsDir, name))
		if err != nil {
			cliErrors.FatalError(cliErrors.NewInputError("cannot read theirs export", err.Error(), "pass a directory produced by 'graphidx export'"), globals.JSON)
		}

		merged, err := indexing.ThreeWayMerge(logger, base, ours, theirs)
		if err != nil {
			cliErrors.FatalError(cliErrors.NewInternalError(fmt.Sprintf("merge of %s failed", table), err.Error(), "", err), globals.JSON)
		}

		if err := os.WriteFile(filepath.Join(outDir, name), merged, 0o600); err != nil {
			cliErrors.FatalError(cliErrors.NewInternalError("cannot write merged table", err.Error(), "", err), globals.JSON)
		}
	}

	if !globals.Quiet {
		ui.Success(fmt.Sprintf("Merged %d tables into %s", len(mergeTables), outDir))
	}
}

// readOptionalFile reads path, returning nil (not an error) when it
// does not exist: a table absent from one side of a merge is valid
// (e.g. a fresh export with no index_job rows yet).
func readOptionalFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path built from CLI-provided export dirs
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}
