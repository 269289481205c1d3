// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package main implements the graphidx CLI: a thin wrapper over
// pkg/indexing and pkg/storage exposing source indexing, watching,
// status lookups, and cross-machine sync as subcommands.
//
// Usage:
//
//	graphidx init <path> --repo <full_name>
//	graphidx index <path> --repo <full_name> [--ref <ref>] [--commit <sha>]
//	graphidx watch <path> --repo <full_name>
//	graphidx status <job-id> --caller <id>
//	graphidx export <path> --repo <full_name>
//	graphidx import <path> --repo <full_name>
//	graphidx merge <base> <ours> <theirs> <out>
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kotadb/graphidx/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds the flags recognized before the subcommand name.
type GlobalFlags struct {
	JSON    bool
	Quiet   bool
	NoColor bool
	Verbose int
}

func main() {
	fs := flag.NewFlagSet("graphidx", flag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true

	showVersion := fs.Bool("version", false, "Show version and exit")
	var globals GlobalFlags
	fs.BoolVar(&globals.JSON, "json", false, "Output machine-readable JSON")
	fs.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress progress output")
	fs.BoolVar(&globals.NoColor, "no-color", false, "Disable colored output")
	fs.CountVarP(&globals.Verbose, "verbose", "v", "Increase log verbosity (repeatable)")

	fs.Usage = func() { printUsage() }
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	if *showVersion {
		fmt.Printf("graphidx version %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		os.Exit(0)
	}
	if globals.JSON {
		globals.Quiet = true
	}
	ui.InitColors(globals.NoColor)

	args := fs.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, globals)
	case "index":
		runIndex(cmdArgs, globals)
	case "watch":
		runWatch(cmdArgs, globals)
	case "status":
		runStatus(cmdArgs, globals)
	case "query":
		runQuery(cmdArgs, globals)
	case "export":
		runExport(cmdArgs, globals)
	case "import":
		runImport(cmdArgs, globals)
	case "merge":
		runMerge(cmdArgs, globals)
	case "reset":
		runReset(cmdArgs, globals)
	case "install-hook":
		runInstallHook(cmdArgs, globals)
	case "completion":
		runCompletion(cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `graphidx - local code-intelligence engine CLI

Usage:
  graphidx <command> [options]

Commands:
  init          Register a repository and create its graph store
  index         Run a full index job over a working tree
  watch         Watch a working tree and index changes incrementally
  status        Show an index job's state and stats
  query         Execute a Datalog query against the local graph store
  export        Export the graph store to JSONL under .kotadb/export/
  import        Import JSONL exports, applying the deletion manifest
  merge         Three-way merge two JSONL exports against a base
  reset         Delete a repository's local graph store (destructive!)
  install-hook  Install a git post-commit hook that runs index per commit
  completion    Print a bash, zsh or fish completion script

Global Options:
  --json        Output machine-readable JSON
  -q, --quiet   Suppress progress output
  --no-color    Disable colored output
  -v            Increase log verbosity (repeatable)
  --version     Show version and exit

Examples:
  graphidx init . --repo acme/widgets
  graphidx index . --repo acme/widgets
  graphidx watch . --repo acme/widgets
  graphidx status idx_abc123 --caller user_1

Data Storage:
  Repository graph stores live under ~/.graphidx/data/<repository_id>/
`)
}
