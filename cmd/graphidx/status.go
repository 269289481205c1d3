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
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kotadb/graphidx/internal/bootstrap"
	cliErrors "github.com/kotadb/graphidx/internal/errors"
	"github.com/kotadb/graphidx/internal/output"
	"github.com/kotadb/graphidx/internal/ui"
	"github.com/kotadb/graphidx/pkg/indexing"
	"github.com/kotadb/graphidx/pkg/query"
)

// runStatus executes 'graphidx status <job-id> --caller <id>'. Jobs are
// looked up against the persisted index_job table (jobstore.go) rather
// than an in-process JobTracker, since status typically runs in a
// separate invocation than the 'index'/'watch' command that created the
// job. --repo selects which repository's graph store to open; it
// defaults to the current directory's .graphidx/config.yaml.
func runStatus(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fullName := fs.String("repo", "", "Repository full name (overrides .graphidx/config.yaml)")
	caller := fs.String("caller", "", "Caller identity for access control")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: graphidx status <job-id> [options]

Prints an index job's current state and statistics.

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
	jobID := fs.Arg(0)

	logger := newCLILogger(globals)
	repositoryID, err := resolveRepositoryID(*fullName)
	if err != nil {
		cliErrors.FatalError(cliErrors.NewInputError("cannot resolve repository", err.Error(), "pass --repo or run this command from an initialized working tree"), globals.JSON)
	}

	backend, err := bootstrap.OpenRepository(bootstrap.RepositoryConfig{RepositoryID: repositoryID}, logger)
	if err != nil {
		cliErrors.FatalError(cliErrors.NewDatabaseError("cannot open graph store", err.Error(), "run 'graphidx init' first", err), globals.JSON)
	}
	defer func() { _ = backend.Close() }()

	client := query.NewClient(backend, nil)
	job, err := client.GetJob(context.Background(), jobID, *caller)
	if err != nil {
		if errors.Is(err, indexing.ErrJobNotFound) {
			cliErrors.FatalError(cliErrors.NewNotFoundError("job not found", fmt.Sprintf("no job %q in this repository", jobID), "check the job ID and --repo"), globals.JSON)
		}
		cliErrors.FatalError(cliErrors.NewDatabaseError("cannot read job", err.Error(), "", err), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(job)
		return
	}
	printIndexResult(job)
	if !globals.Quiet {
		fmt.Printf("%s %s\n", ui.Label("Ref:"), job.Ref)
		fmt.Printf("%s %s\n", ui.Label("Commit:"), job.CommitSHA)
		if job.RetryCount > 0 {
			fmt.Printf("%s %s\n", ui.Label("Retries:"), ui.CountText(job.RetryCount))
		}
	}
}

// resolveRepositoryID derives a repository ID either from an explicit
// --repo full name or from the current directory's on-disk config.
func resolveRepositoryID(fullName string) (string, error) {
	if fullName != "" {
		return indexing.GenerateRepositoryID(fullName), nil
	}
	root, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	cfg, err := LoadConfig(root, "")
	if err != nil {
		return "", fmt.Errorf("load .graphidx/config.yaml: %w", err)
	}
	if cfg.RepositoryID != "" {
		return cfg.RepositoryID, nil
	}
	return indexing.GenerateRepositoryID(cfg.FullName), nil
}
