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

// runReset executes 'graphidx reset --repo <full_name> --yes': it
// deletes a repository's entire local graph store, for recovering from
// a corrupted database or forcing a clean re-index.
func runReset(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	fullName := fs.String("repo", "", "Repository full name")
	confirm := fs.Bool("yes", false, "Confirm the reset (required)")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: graphidx reset --repo <full_name> --yes

Deletes all local indexed data for a repository.

WARNING: This operation is destructive and cannot be undone!

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *fullName == "" {
		fs.Usage()
		os.Exit(1)
	}
	if !*confirm {
		cliErrors.FatalError(cliErrors.NewInputError("reset not confirmed", "the --yes flag was not passed", "re-run with --yes to confirm the reset"), globals.JSON)
	}

	repositoryID := indexing.GenerateRepositoryID(*fullName)
	homeDir, err := os.UserHomeDir()
	if err != nil {
		cliErrors.FatalError(cliErrors.NewInternalError("cannot get home directory", err.Error(), "", err), globals.JSON)
	}
	dataDir := filepath.Join(homeDir, ".graphidx", "data", repositoryID)

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		if !globals.Quiet {
			ui.Info(fmt.Sprintf("No local data found for %s", *fullName))
		}
		return
	}

	if !globals.Quiet {
		ui.Warning(fmt.Sprintf("Resetting %s (deleting %s)...", *fullName, dataDir))
	}

	if err := os.RemoveAll(dataDir); err != nil {
		cliErrors.FatalError(cliErrors.NewInternalError("failed to delete data", err.Error(), "check permissions under ~/.graphidx/data", err), globals.JSON)
	}

	if lock, err := lockPath(repositoryID); err == nil {
		_ = os.Remove(lock)
	}

	if !globals.Quiet {
		ui.Success("Reset complete. All local indexed data has been deleted.")
		fmt.Println("Next steps:")
		fmt.Println("  graphidx init <path> --repo " + *fullName)
		fmt.Println("  graphidx index <path> --repo " + *fullName)
	}
}
