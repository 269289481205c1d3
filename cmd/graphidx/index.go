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
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/kotadb/graphidx/internal/bootstrap"
	"github.com/kotadb/graphidx/internal/errors"
	"github.com/kotadb/graphidx/internal/output"
	"github.com/kotadb/graphidx/internal/ui"
	"github.com/kotadb/graphidx/pkg/indexing"
)

// runIndex executes 'graphidx index <path> --repo <full_name>': a
// single-worker convenience path over the same JobTracker and
// WorkerPool the background service uses, run synchronously to
// completion.
func runIndex(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	fullName := fs.String("repo", "", "Repository full name (e.g. acme/widgets)")
	ref := fs.String("ref", "", "Git ref being indexed")
	commitSHA := fs.String("commit", "", "Commit SHA being indexed")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprint(os.Stderr, `Usage: graphidx index <path> --repo <full_name> [options]

Runs a full index job over the working tree at <path>.

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

	backend, err := bootstrap.OpenRepository(bootstrap.RepositoryConfig{RepositoryID: repositoryID}, logger)
	if err != nil {
		errors.FatalError(errors.NewDatabaseError("cannot open graph store", err.Error(), "run 'graphidx init' first", err), globals.JSON)
	}
	defer func() { _ = backend.Close() }()

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("cli.index.signal", "signal", sig.String())
		cancel()
	}()

	lock, err := AcquireRepoLock(repositoryID)
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot acquire repository lock", err.Error(), "check ~/.graphidx permissions", err), globals.JSON)
	}
	if lock == nil {
		errors.FatalError(errors.NewInternalError("another index run is in progress", "the repository lock is held", "wait for it to finish or check for a stale lock", nil), globals.JSON)
	}
	defer lock.Release()

	cfg := indexing.DefaultConfig()
	pipeline := indexing.NewPipeline(backend, cfg, logger)
	tracker := indexing.NewJobTracker(nil)
	tracker.AttachBackend(backend, logger)
	pool := indexing.NewWorkerPool(1, pipeline, tracker, logger)
	pool.Start(ctx)

	jobID := tracker.Create(repositoryID, *ref, *commitSHA)
	job, err := tracker.Get(jobID, "")
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot look up just-created job", err.Error(), "", err), globals.JSON)
	}

	progress := NewProgressConfig(globals)
	spinner := NewSpinner(progress, fmt.Sprintf("Indexing %s", *fullName))
	if spinner != nil {
		go spinWhile(spinner, pool.Done())
	}

	pool.Submit(indexing.WorkItem{
		Job:        &job,
		Repository: indexing.Repository{ID: repositoryID, FullName: *fullName},
		RootPath:   root,
	})
	pool.Stop()

	final, err := tracker.Get(jobID, "")
	if err != nil {
		errors.FatalError(errors.NewInternalError("cannot look up finished job", err.Error(), "", err), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(final)
	} else {
		printIndexResult(final)
	}

	if final.Status == indexing.JobFailed {
		os.Exit(1)
	}
}

func newCLILogger(globals GlobalFlags) *slog.Logger {
	level := slog.LevelInfo
	if globals.Verbose > 0 {
		level = slog.LevelDebug
	}
	if globals.Quiet {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	logger.Info("cli.metrics.start", "addr", addr, "path", "/metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("cli.metrics.error", "err", err)
	}
}

func printIndexResult(job indexing.IndexJob) {
	fmt.Println()
	fmt.Println("=== Index Run ===")
	fmt.Printf("Job ID:    %s\n", job.ID)
	fmt.Printf("Status:    %s\n", job.Status)
	fmt.Printf("Files:     %d\n", job.Stats.FilesIndexed)
	fmt.Printf("Symbols:   %d\n", job.Stats.SymbolsExtracted)
	fmt.Printf("Refs:      %d\n", job.Stats.ReferencesFound)
	fmt.Printf("Deps:      %d\n", job.Stats.DependenciesExtracted)
	if job.ErrorMessage != "" {
		ui.Errorf("Error: %s", job.ErrorMessage)
	}
}
