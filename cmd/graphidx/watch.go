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
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kotadb/graphidx/internal/bootstrap"
	"github.com/kotadb/graphidx/internal/errors"
	"github.com/kotadb/graphidx/internal/ui"
	"github.com/kotadb/graphidx/pkg/indexing"
)

// runWatch executes 'graphidx watch <path> --repo <full_name>': it
// starts the debounced filesystem watcher and drives incremental
// indexing until interrupted.
func runWatch(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fullName := fs.String("repo", "", "Repository full name (e.g. acme/widgets)")
	debounce := fs.Duration("debounce", 500*time.Millisecond, "Debounce interval before flushing changes")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: graphidx watch <path> --repo <full_name> [options]

Watches the working tree at <path> and incrementally re-indexes
changed files until interrupted (Ctrl-C).

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
		errors.FatalError(errors.NewInputError("invalid path", err.Error(), "pass an existing directory"), globals.JSON)
	}

	logger := newCLILogger(globals)
	repositoryID := indexing.GenerateRepositoryID(*fullName)
	repo := indexing.Repository{ID: repositoryID, FullName: *fullName}

	backend, err := bootstrap.OpenRepository(bootstrap.RepositoryConfig{RepositoryID: repositoryID}, logger)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("cannot open graph store", err.Error(), "run 'graphidx init' first", err), globals.JSON)
	}
	defer func() { _ = backend.Close() }()

	cfg := indexing.DefaultConfig()
	pipeline := indexing.NewPipeline(backend, cfg, logger)

	manifest, err := indexing.NewDeletionManifest(ConfigDir(root))
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot open deletion manifest", err.Error(), "check write permissions under .graphidx/", err), globals.JSON)
	}

	incremental := indexing.NewIncrementalIndexer(pipeline, manifest, logger)
	watcher, err := indexing.NewWatcher(repo, root, incremental, *debounce, logger)
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot start watcher", err.Error(), "", err), globals.JSON)
	}

	if err := watcher.Start(); err != nil {
		errors.FatalError(errors.NewInternalError("cannot watch working tree", err.Error(), "check the path exists and is readable", err), globals.JSON)
	}
	defer watcher.Stop()

	if !globals.Quiet {
		ui.Info(fmt.Sprintf("Watching %s for %s (Ctrl-C to stop)", root, *fullName))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	if !globals.Quiet {
		ui.Info("Stopping watcher...")
	}
}
